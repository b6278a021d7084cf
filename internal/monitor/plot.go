package monitor

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var axisColors = []color.Color{
	color.RGBA{R: 220, G: 60, B: 60, A: 255},
	color.RGBA{R: 60, G: 170, B: 60, A: 255},
	color.RGBA{R: 60, G: 90, B: 220, A: 255},
}

// NewPlot builds a static plot of raw (dashed) and filtered (solid)
// positions against seconds since the first sample.
func NewPlot(title string, samples []Sample) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t (s)"
	p.Y.Label.Text = "position"
	p.Add(plotter.NewGrid())

	for k, axis := range axes {
		rawPts := make(plotter.XYs, len(samples))
		filtPts := make(plotter.XYs, len(samples))
		for i, s := range samples {
			x := s.At.Sub(samples[0].At).Seconds()
			r, f := axis.get(s)
			rawPts[i] = plotter.XY{X: x, Y: r}
			filtPts[i] = plotter.XY{X: x, Y: f}
		}

		rawLine, err := plotter.NewLine(rawPts)
		if err != nil {
			return nil, fmt.Errorf("raw %s line: %w", axis.name, err)
		}
		rawLine.Color = axisColors[k]
		rawLine.Width = vg.Points(0.5)
		rawLine.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}

		filtLine, err := plotter.NewLine(filtPts)
		if err != nil {
			return nil, fmt.Errorf("filtered %s line: %w", axis.name, err)
		}
		filtLine.Color = axisColors[k]
		filtLine.Width = vg.Points(1.5)

		p.Add(rawLine, filtLine)
		p.Legend.Add("raw "+axis.name, rawLine)
		p.Legend.Add("filtered "+axis.name, filtLine)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	return p, nil
}

// WritePNG renders the plot of samples as a PNG.
func WritePNG(w io.Writer, title string, samples []Sample) error {
	p, err := NewPlot(title, samples)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
