package tracker

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot renders a tracked series, one point per episode, to a PNG file
// at out
func Plot(data []float64, title, yLabel, out string) error {
	if len(data) == 0 {
		return fmt.Errorf("plot: no data")
	}

	pts := make(plotter.XYs, len(data))
	for i, y := range data {
		pts[i] = plotter.XY{X: float64(i + 1), Y: y}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, out); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	return nil
}

// PlotFile renders the data saved by a Tracker at filename
func PlotFile(filename, title, yLabel, out string) error {
	data, err := LoadData(filename)
	if err != nil {
		return fmt.Errorf("plotFile: %w", err)
	}
	return Plot(data, title, yLabel, out)
}
