package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/metrics"
	"github.com/iscas-system/vtrain-graph/report"
	"github.com/iscas-system/vtrain-graph/timeline"
	"github.com/iscas-system/vtrain-graph/tracing"
	"github.com/iscas-system/vtrain-graph/util"
)

// Result is the outcome of replaying one trace.
type Result struct {
	RunID         string
	TraceName     string
	CommStream    string
	Graph         *graph.Graph
	Timeline      *timeline.Timeline
	Overlap       timeline.Overlap
	Breakdown     map[string]graph.Duration
	CriticalPath  graph.CriticalPath
	Violations    []graph.ScheduleViolation
	Acyclic       bool
	IterationTime graph.Time
	ArtifactDir   string
	Artifacts     []string
	StartedAt     time.Time
	Elapsed       time.Duration
}

// BatchResult collects the successful runs of RunBatch in input order.
type BatchResult struct {
	Results    []*Result
	// Failed names the traces whose run returned an error.
	Failed     []string
	ReportPath string
}

type Simulator struct {
	opts      *Options
	logger    logrus.FieldLogger
	logCloser io.Closer
}

func NewSimulator(setOpts ...SetOption) (*Simulator, error) {
	opts := defaultOptions()
	for _, setOpt := range setOpts {
		setOpt(opts)
	}

	var logger logrus.FieldLogger = opts.logger
	var closer io.Closer = nopCloser{}
	if logger == nil {
		l, c, err := NewLogger(opts)
		if err != nil {
			return nil, err
		}
		logger, closer = l, c
	}
	return &Simulator{
		opts:      opts,
		logger:    logger,
		logCloser: closer,
	}, nil
}

func (s *Simulator) Logger() logrus.FieldLogger {
	return s.logger
}

// Close releases the log file. A store passed in by option stays open.
func (s *Simulator) Close() error {
	return s.logCloser.Close()
}

func (s *Simulator) emitEvent(event RunEvent) {
	if s.opts.eventHandler != nil {
		s.opts.eventHandler(event)
	}
}

// Run builds the graph of t, stamps and checks its schedule, analyzes the
// timeline and writes every artifact into <results dir>/<trace name>/.
func (s *Simulator) Run(ctx context.Context, t *Trace) (*Result, error) {
	res := &Result{
		RunID:      uuid.NewString(),
		TraceName:  t.Name,
		CommStream: t.ResolveCommStream(s.opts.commStream),
		StartedAt:  time.Now(),
	}
	ctx, span := s.opts.tracer.Start(ctx, tracing.SpanRun, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, res.RunID),
		attribute.String(tracing.AttrTraceName, t.Name),
		attribute.String(tracing.AttrOverlapMode, s.opts.overlapMode.String()),
	))
	defer span.End()

	logger := s.logger.WithFields(logrus.Fields{"run_id": res.RunID, "trace": t.Name})
	logger.Debugf("trace loaded:\n%s", util.Pretty(t))

	if err := s.run(ctx, logger, t, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WithError(err).Error("run failed")
		return nil, fmt.Errorf("trace %s: %w", t.Name, err)
	}
	span.SetAttributes(
		attribute.Float64(tracing.AttrIteration, float64(res.IterationTime)),
		attribute.Float64(tracing.AttrOverlap, res.Overlap.OverlapPercentage),
	)
	span.SetStatus(codes.Ok, "")
	s.emitEvent(newRunEventFinished(res))
	return res, nil
}

func (s *Simulator) run(ctx context.Context, logger *logrus.Entry, t *Trace, res *Result) error {
	g, err := s.build(ctx, logger, t, res.CommStream)
	if err != nil {
		return err
	}
	res.Graph = g
	s.emitEvent(newRunEventGraphBuilt(res.RunID, g))

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.validate(ctx, logger, res); err != nil {
		return err
	}
	s.emitEvent(newRunEventScheduleValidated(res.RunID, res.Acyclic, res.Violations))

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.emit(ctx, logger, res); err != nil {
		return err
	}
	res.Elapsed = time.Since(res.StartedAt)

	if s.opts.store != nil {
		if err := s.opts.store.Record(ctx, res.storeRun(s.opts.overlapMode.String())); err != nil {
			return err
		}
	}
	logger.WithFields(logrus.Fields{
		"iteration_time": util.NanosDuration(float64(res.IterationTime)),
		"overlap":        res.Overlap.OverlapPercentage,
		"violations":     len(res.Violations),
		"elapsed":        res.Elapsed,
	}).Info("run completed")
	return nil
}

func (s *Simulator) build(ctx context.Context, logger *logrus.Entry, t *Trace, commStream string) (*graph.Graph, error) {
	_, span := s.opts.tracer.Start(ctx, tracing.SpanBuild)
	defer span.End()

	g, err := t.Build(commStream,
		graph.WithLogger(logger),
		graph.WithStrictAcyclicity(s.opts.strictAcyclicity),
	)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if s.opts.estimator != nil {
		filled, missing := fillDurations(g, s.opts.estimator)
		logger.WithFields(logrus.Fields{"filled": filled, "missing": missing}).Debug("durations estimated")
	}
	if s.opts.scheduler != nil {
		before := startTimes(g)
		if err := s.opts.scheduler.Schedule(g); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("schedule %s: %w", t.Name, err)
		}
		if moved := util.PrettyDiff(before, startTimes(g)); len(moved) > 0 {
			logger.WithField("moved", len(moved)).Debugf("start times rescheduled:\n%s", strings.Join(moved, "\n"))
		}
	}
	stats := g.Stats()
	span.SetAttributes(
		attribute.Int(tracing.AttrStreamCount, len(g.Streams())),
		attribute.Int(tracing.AttrNodeCount, g.Len()),
		attribute.Int(tracing.AttrEdgeCount, g.EdgeCount()),
		attribute.Int(tracing.AttrRejected, stats.EdgesRejected),
	)
	return g, nil
}

func startTimes(g *graph.Graph) []graph.Time {
	starts := make([]graph.Time, 0, g.Len())
	for _, n := range g.Nodes() {
		starts = append(starts, n.Start)
	}
	return starts
}

// validate runs the full cycle check and the schedule check. A cycle fails
// the run only in strict mode; schedule violations are always warnings.
func (s *Simulator) validate(ctx context.Context, logger *logrus.Entry, res *Result) error {
	_, span := s.opts.tracer.Start(ctx, tracing.SpanValidate)
	defer span.End()
	g := res.Graph

	res.Acyclic = true
	if err := g.Validate(); err != nil {
		res.Acyclic = false
		if s.opts.strictAcyclicity {
			span.RecordError(err)
			return err
		}
		logger.WithError(err).Warn("dependency graph is not acyclic")
	}

	res.Violations = g.ValidateSchedule(s.opts.scheduleEpsilon)
	span.SetAttributes(attribute.Int(tracing.AttrViolations, len(res.Violations)))
	if count, avgDelay := MetricViolation(res.Violations); count > 0 {
		logger.WithFields(logrus.Fields{
			"violations": count,
			"avg_delay":  avgDelay,
		}).Warn("schedule does not respect dependencies")
		for _, v := range res.Violations {
			logger.Debugf("%s: %s", v, util.PrettyF("%v", g.Node(v.Node)))
		}
	}

	res.IterationTime = g.IterationTime()
	cp, err := g.CriticalPath()
	if err != nil {
		logger.WithError(err).Warn("critical path unavailable")
		cp = graph.CriticalPath{Nodes: []graph.NodeID{}}
	}
	res.CriticalPath = cp
	return nil
}

// ArtifactPath is where an artifact of the named trace is written.
func (s *Simulator) ArtifactPath(traceName, suffix string) string {
	return filepath.Join(s.opts.resultsDir, traceName, traceName+suffix)
}

func (s *Simulator) emit(ctx context.Context, logger *logrus.Entry, res *Result) error {
	ctx, span := s.opts.tracer.Start(ctx, tracing.SpanEmit)
	defer span.End()
	g := res.Graph
	res.ArtifactDir = filepath.Join(s.opts.resultsDir, res.TraceName)
	res.Artifacts = make([]string, 0, 6)
	artifact := func(suffix string) string {
		path := s.ArtifactPath(res.TraceName, suffix)
		res.Artifacts = append(res.Artifacts, path)
		return path
	}

	plotPath := ""
	if s.opts.plotEnabled {
		plotPath = artifact("_plot.png")
	}
	emitter := report.NewEmitter(
		report.WithLogger(logger),
		report.WithCommStream(res.CommStream),
		report.WithOverlapMode(s.opts.overlapMode),
		report.WithPlotSize(s.opts.plotWidth, s.opts.rowHeight),
	)
	_, analyzeSpan := s.opts.tracer.Start(ctx, tracing.SpanAnalyze)
	tl, overlap, err := emitter.EmitReport(g, plotPath, artifact("_overlap.txt"))
	analyzeSpan.End()
	if err != nil {
		span.RecordError(err)
		return err
	}
	res.Timeline = tl
	res.Overlap = overlap
	res.Breakdown = timeline.Breakdown(tl)

	writes := []struct {
		suffix string
		write  func(f *os.File) error
	}{
		{"_result.txt", func(f *os.File) error {
			return report.WriteResult(f, report.Result{IterationTime: res.IterationTime, Breakdown: res.Breakdown})
		}},
		{"_timeline.json", func(f *os.File) error {
			return report.WriteTimelineJSON(f, tl.Split())
		}},
		{"_graph.dot", func(f *os.File) error {
			return g.WriteDOT(f)
		}},
	}
	for _, w := range writes {
		if err := report.WriteFile(artifact(w.suffix), w.write); err != nil {
			span.RecordError(err)
			return err
		}
	}

	if s.opts.metricsEnabled {
		res.Elapsed = time.Since(res.StartedAt)
		collector := metrics.NewCollector()
		collector.Observe(res.Record())
		if err := collector.WriteTextfile(artifact("_metrics.prom")); err != nil {
			span.RecordError(err)
			return err
		}
	}
	span.SetAttributes(attribute.String(tracing.AttrArtifact, res.ArtifactDir))
	logger.WithField("dir", res.ArtifactDir).Debug("artifacts written")
	return nil
}

// RunBatch replays independent traces concurrently, at most parallelism at a
// time, and saves a combined JSON report over the runs that succeeded. A
// failing run does not stop the others: its error is joined into the
// returned error next to the partial result.
func (s *Simulator) RunBatch(ctx context.Context, batchName string, traces []*Trace) (*BatchResult, error) {
	ctx, span := s.opts.tracer.Start(ctx, tracing.SpanBatch, trace.WithAttributes(
		attribute.String(tracing.AttrTraceName, batchName),
	))
	defer span.End()

	names := make(map[string]bool, len(traces))
	for _, t := range traces {
		if names[t.Name] {
			return nil, fmt.Errorf("batch %s: %w: trace name %q used twice", batchName, ErrInvalidTrace, t.Name)
		}
		names[t.Name] = true
	}

	results := make([]*Result, len(traces))
	errs := make([]error, len(traces))
	var eg errgroup.Group
	eg.SetLimit(s.opts.parallelism)
	for i, t := range traces {
		eg.Go(func() error {
			results[i], errs[i] = s.Run(ctx, t)
			return nil
		})
	}
	_ = eg.Wait()

	batch := &BatchResult{Results: make([]*Result, 0, len(traces))}
	for i, res := range results {
		if errs[i] != nil {
			batch.Failed = append(batch.Failed, traces[i].Name)
			continue
		}
		batch.Results = append(batch.Results, res)
	}
	runErr := errors.Join(errs...)
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		s.logger.WithFields(logrus.Fields{"batch": batchName, "failed": batch.Failed}).Warn("batch runs failed")
	}
	if len(batch.Results) == 0 {
		return batch, runErr
	}

	reports := make([]*metrics.Report, 0, len(batch.Results))
	for _, res := range batch.Results {
		reports = append(reports, metrics.GenerateSingleSimulationReport(res.Record()))
	}
	reportPath, err := metrics.SaveSimulationReport(s.opts.resultsDir, reports, &metrics.SimulationMetaConfig{
		BatchName:        batchName,
		CommStream:       firstStream(s.opts.commStream),
		OverlapMode:      s.opts.overlapMode.String(),
		StrictAcyclicity: s.opts.strictAcyclicity,
	})
	if err != nil {
		return batch, errors.Join(runErr, err)
	}
	batch.ReportPath = reportPath
	s.logger.WithFields(logrus.Fields{
		"batch":  batchName,
		"runs":   len(batch.Results),
		"failed": len(batch.Failed),
		"report": reportPath,
	}).Info("batch completed")
	return batch, runErr
}

// IsCancelled reports whether err comes from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
