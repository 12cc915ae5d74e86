package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ieee0824/wordalign/ibm1"
)

// Series is one named training history to plot.
type Series struct {
	Name    string
	History []ibm1.IterationStats
}

// ConvergencePlot draws log10 of the max per-cell change against the
// iteration number for every series and saves the image to path.
// The image format follows the file extension.
func ConvergencePlot(path string, series ...Series) error {
	p := plot.New()
	p.Title.Text = "EM convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "log10 max change"

	for k, s := range series {
		xys := make(plotter.XYs, 0, len(s.History))
		for _, h := range s.History {
			if h.MaxDelta <= 0 {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(h.Iteration), Y: math.Log10(h.MaxDelta)})
		}
		if len(xys) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("plot %s: %w", s.Name, err)
		}
		line.Color = plotColors[k%len(plotColors)]
		points.Color = line.Color
		p.Add(line, points)
		p.Legend.Add(s.Name, line, points)
	}

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// Timer logs the time elapsed since it was started.
type Timer struct {
	label string
	start time.Time
	w     io.Writer
}

// StartTimer starts a timer that reports to w when stopped.
func StartTimer(w io.Writer, label string) *Timer {
	return &Timer{label: label, start: time.Now(), w: w}
}

// Stop writes the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	if t.w != nil {
		fmt.Fprintf(t.w, "%s: %v\n", t.label, d.Round(time.Millisecond))
	}
	return d
}
