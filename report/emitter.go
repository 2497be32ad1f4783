package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/iscas-system/vtrain-graph/graph"
	"github.com/iscas-system/vtrain-graph/timeline"
)

const (
	DefaultPlotWidth = 1600
	DefaultRowHeight = 60
)

type Options struct {
	logger     logrus.FieldLogger
	commStream string
	mode       timeline.Mode
	plotWidth  int
	rowHeight  int
}

type SetOption func(options *Options)

func WithLogger(logger logrus.FieldLogger) SetOption {
	return func(options *Options) {
		options.logger = logger
	}
}

// WithCommStream names the stream treated as the collective communication channel.
func WithCommStream(stream string) SetOption {
	return func(options *Options) {
		options.commStream = stream
	}
}

func WithOverlapMode(mode timeline.Mode) SetOption {
	return func(options *Options) {
		options.mode = mode
	}
}

// WithPlotSize sets the image width and the height of a single stream track,
// both in pixels. Non-positive values keep the defaults.
func WithPlotSize(width, rowHeight int) SetOption {
	return func(options *Options) {
		if width > 0 {
			options.plotWidth = width
		}
		if rowHeight > 0 {
			options.rowHeight = rowHeight
		}
	}
}

// Emitter writes the plot and text artifacts of an analyzed graph.
type Emitter struct {
	opts *Options
}

func NewEmitter(setOpts ...SetOption) *Emitter {
	opts := &Options{
		commStream: graph.DefaultCommStream,
		mode:       timeline.ModeAdjacent,
		plotWidth:  DefaultPlotWidth,
		rowHeight:  DefaultRowHeight,
	}
	for _, setOpt := range setOpts {
		setOpt(opts)
	}
	if opts.logger == nil {
		opts.logger = logrus.New()
	}
	return &Emitter{opts: opts}
}

// EmitReport builds the timeline of g, renders it to plotPath and writes the
// overlap summary to overlapPath. An empty path skips that artifact.
func (e *Emitter) EmitReport(g *graph.Graph, plotPath, overlapPath string) (*timeline.Timeline, timeline.Overlap, error) {
	tl, overlap := timeline.Analyze(g, e.opts.commStream, e.opts.mode)
	if plotPath != "" {
		if err := e.RenderPlot(tl, plotPath); err != nil {
			return tl, overlap, err
		}
	}
	if overlapPath != "" {
		if err := WriteFile(overlapPath, func(f *os.File) error {
			return WriteOverlap(f, overlap)
		}); err != nil {
			return tl, overlap, err
		}
		e.opts.logger.WithField("path", overlapPath).Info("overlap summary written")
	}
	return tl, overlap, nil
}

// WriteFile creates path, including missing parent directories, and hands
// it to write.
func WriteFile(path string, write func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
