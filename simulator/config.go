package simulator

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/iscas-system/vtrain-graph/config"
	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/report"
	"github.com/iscas-system/vtrain-graph/store"
	"github.com/iscas-system/vtrain-graph/timeline"
)

type LogFormat string

const (
	TextFormat = LogFormat("text")
	JSONFormat = LogFormat("json")
)

type Options struct {
	resultsDir string

	logEnabled bool
	logDirPath string
	logLevel   logrus.Level
	logFormat  LogFormat
	logger     logrus.FieldLogger

	commStream       string
	overlapMode      timeline.Mode
	strictAcyclicity bool
	scheduleEpsilon  graph.Duration
	parallelism      int

	plotEnabled    bool
	plotWidth      int
	rowHeight      int
	metricsEnabled bool

	estimator    DurationEstimator
	scheduler    Scheduler
	tracer       trace.Tracer
	store        *store.Store
	eventHandler func(event RunEvent)
}

func defaultOptions() *Options {
	return &Options{
		resultsDir:      "results",
		logEnabled:      true,
		logDirPath:      filepath.Join(os.TempDir(), "vtrain"),
		logLevel:        logrus.InfoLevel,
		logFormat:       TextFormat,
		overlapMode:     timeline.ModeAdjacent,
		scheduleEpsilon: 1e-6,
		parallelism:     4,
		plotEnabled:     true,
		plotWidth:       report.DefaultPlotWidth,
		rowHeight:       report.DefaultRowHeight,
		metricsEnabled:  true,
		tracer:          noop.NewTracerProvider().Tracer("noop"),
	}
}

type SetOption func(options *Options)

func WithOptionResultsDir(dir string) SetOption {
	return func(options *Options) {
		options.resultsDir = dir
	}
}

func WithOptionLogEnabled(enabled bool) SetOption {
	return func(options *Options) {
		options.logEnabled = enabled
	}
}

func WithOptionLogPath(logDirPath string) SetOption {
	return func(options *Options) {
		options.logDirPath = logDirPath
	}
}

func WithOptionLogLevel(level logrus.Level) SetOption {
	return func(options *Options) {
		options.logLevel = level
	}
}

func WithOptionLogFormat(format LogFormat) SetOption {
	return func(options *Options) {
		options.logFormat = format
	}
}

// WithOptionLogger replaces the file and stderr logger built by NewSimulator.
func WithOptionLogger(logger logrus.FieldLogger) SetOption {
	return func(options *Options) {
		options.logger = logger
	}
}

// WithOptionCommStream names the communication stream of traces that do not
// name one themselves.
func WithOptionCommStream(stream string) SetOption {
	return func(options *Options) {
		options.commStream = stream
	}
}

func WithOptionOverlapMode(mode timeline.Mode) SetOption {
	return func(options *Options) {
		options.overlapMode = mode
	}
}

func WithOptionStrictAcyclicity(strict bool) SetOption {
	return func(options *Options) {
		options.strictAcyclicity = strict
	}
}

func WithOptionScheduleEpsilon(eps graph.Duration) SetOption {
	return func(options *Options) {
		options.scheduleEpsilon = eps
	}
}

func WithOptionParallelism(parallelism int) SetOption {
	return func(options *Options) {
		if parallelism > 0 {
			options.parallelism = parallelism
		}
	}
}

func WithOptionPlot(enabled bool, width, rowHeight int) SetOption {
	return func(options *Options) {
		options.plotEnabled = enabled
		options.plotWidth = width
		options.rowHeight = rowHeight
	}
}

func WithOptionMetricsEnabled(enabled bool) SetOption {
	return func(options *Options) {
		options.metricsEnabled = enabled
	}
}

func WithOptionEstimator(estimator DurationEstimator) SetOption {
	return func(options *Options) {
		options.estimator = estimator
	}
}

func WithOptionScheduler(scheduler Scheduler) SetOption {
	return func(options *Options) {
		options.scheduler = scheduler
	}
}

func WithOptionTracer(tracer trace.Tracer) SetOption {
	return func(options *Options) {
		if tracer != nil {
			options.tracer = tracer
		}
	}
}

// WithOptionStore records every finished run into s. The caller keeps
// ownership of s.
func WithOptionStore(s *store.Store) SetOption {
	return func(options *Options) {
		options.store = s
	}
}

func WithOptionEventHandler(handler func(event RunEvent)) SetOption {
	return func(options *Options) {
		options.eventHandler = handler
	}
}

// WithOptionConfig applies every plain setting of cfg. Collaborators that
// need opening (profile table, store, tracer) are wired by the caller.
func WithOptionConfig(cfg config.Config) SetOption {
	return func(options *Options) {
		options.resultsDir = cfg.ResultsDir
		options.logEnabled = cfg.Log.Enabled
		options.logDirPath = cfg.Log.Dir
		if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
			options.logLevel = level
		}
		options.logFormat = LogFormat(cfg.Log.Format)
		options.commStream = cfg.CommStream
		if mode, err := timeline.ParseMode(cfg.OverlapMode); err == nil {
			options.overlapMode = mode
		}
		options.strictAcyclicity = cfg.StrictAcyclicity
		options.scheduleEpsilon = graph.Duration(cfg.ScheduleEpsilon)
		if cfg.Parallelism > 0 {
			options.parallelism = cfg.Parallelism
		}
		options.plotEnabled = cfg.Plot.Enabled
		options.plotWidth = cfg.Plot.Width
		options.rowHeight = cfg.Plot.RowHeight
		options.metricsEnabled = cfg.Metrics.Enabled
	}
}
