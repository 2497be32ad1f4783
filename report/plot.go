package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/iscas-system/vtrain-graph/timeline"
)

const (
	pngDPI = 96

	// Each stream takes a band of bandHeight inside a track of trackHeight,
	// with a margin of trackMargin below the first track.
	trackHeight = 5
	bandHeight  = 4
	trackMargin = 1
)

var (
	forwardPalette = []color.Color{
		color.RGBA{R: 176, G: 224, B: 230, A: 255}, // powderblue
		color.RGBA{R: 135, G: 206, B: 250, A: 255}, // lightskyblue
		color.RGBA{R: 30, G: 144, B: 255, A: 255},  // dodgerblue
	}
	backwardPalette = []color.Color{
		color.RGBA{R: 173, G: 255, B: 47, A: 255}, // greenyellow
		color.RGBA{R: 50, G: 205, B: 50, A: 255},  // limegreen
		color.RGBA{R: 34, G: 139, B: 34, A: 255},  // forestgreen
	}
	weightUpdatePalette = []color.Color{
		color.RGBA{R: 240, G: 128, B: 128, A: 255}, // lightcoral
		color.RGBA{R: 214, G: 39, B: 40, A: 255},   // tab:red
	}
	otherPalette = []color.Color{
		color.RGBA{R: 169, G: 169, B: 169, A: 255}, // darkgrey
	}
)

func stagePalette(stage timeline.Stage) []color.Color {
	switch stage {
	case timeline.StageForward:
		return forwardPalette
	case timeline.StageBackward:
		return backwardPalette
	case timeline.StageWeightUpdate:
		return weightUpdatePalette
	default:
		return otherPalette
	}
}

type bar struct {
	start, end float64
	y          float64
	color      color.Color
}

// timelineBars is a plot.Plotter drawing one horizontal band per stream.
type timelineBars struct {
	bars   []bar
	tracks int
}

// newTimelineBars lays out the streams of tl bottom-up in reverse creation
// order, so the first stream ends up at the top.
func newTimelineBars(tl *timeline.Timeline) *timelineBars {
	streams := tl.Streams()
	tb := &timelineBars{tracks: len(streams)}
	for i := range streams {
		s := tl.Stream(streams[len(streams)-1-i])
		y := float64(trackMargin + i*trackHeight)
		for _, stage := range timeline.Stages {
			palette := stagePalette(stage)
			for j, iv := range s.Stage(stage) {
				tb.bars = append(tb.bars, bar{
					start: float64(iv.Start),
					end:   float64(iv.End()),
					y:     y,
					color: palette[j%len(palette)],
				})
			}
		}
	}
	return tb
}

func (tb *timelineBars) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = math.Inf(1), math.Inf(-1)
	for _, b := range tb.bars {
		xmin = math.Min(xmin, b.start)
		xmax = math.Max(xmax, b.end)
	}
	if len(tb.bars) == 0 {
		xmin, xmax = 0, 1
	}
	if xmax <= xmin {
		xmax = xmin + 1
	}
	return xmin, xmax, 0, float64(trackMargin + trackHeight*tb.tracks)
}

func (tb *timelineBars) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, b := range tb.bars {
		if b.end <= b.start {
			continue
		}
		x0, x1 := trX(b.start), trX(b.end)
		y0, y1 := trY(b.y), trY(b.y+bandHeight)
		c.FillPolygon(b.color, []vg.Point{
			{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
		})
	}
}

func pixels(px int) vg.Length {
	return vg.Length(px) * vg.Inch / pngDPI
}

// RenderPlot draws tl as stacked horizontal interval bars. The image format
// follows the extension of path.
func (e *Emitter) RenderPlot(tl *timeline.Timeline, path string) error {
	tb := newTimelineBars(tl)
	p := plot.New()
	p.HideAxes()
	xmin, xmax, ymin, ymax := tb.DataRange()
	p.X.Min, p.X.Max = xmin, xmax
	p.Y.Min, p.Y.Max = ymin, ymax
	p.Add(tb)

	rows := tb.tracks
	if rows == 0 {
		rows = 1
	}
	width := pixels(e.opts.plotWidth)
	height := pixels(e.opts.rowHeight * rows)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	e.opts.logger.WithField("path", path).WithField("streams", tb.tracks).Debug("timeline plot written")
	return nil
}
