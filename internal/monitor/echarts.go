package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var axes = []struct {
	name string
	get  func(Sample) (raw, filtered float64)
}{
	{"x", func(s Sample) (float64, float64) { return s.Raw.X, s.Filtered.X }},
	{"y", func(s Sample) (float64, float64) { return s.Raw.Y, s.Filtered.Y }},
	{"z", func(s Sample) (float64, float64) { return s.Raw.Z, s.Filtered.Z }},
}

// RenderChart writes an HTML page with one line chart per axis comparing
// raw and filtered positions. The x axis is milliseconds since the first
// sample.
func RenderChart(w io.Writer, title string, samples []Sample) error {
	page := components.NewPage()
	page.PageTitle = title

	labels := make([]string, len(samples))
	for i, s := range samples {
		labels[i] = fmt.Sprintf("%d", s.At.Sub(samples[0].At).Milliseconds())
	}

	for _, axis := range axes {
		raw := make([]opts.LineData, len(samples))
		filtered := make([]opts.LineData, len(samples))
		for i, s := range samples {
			r, f := axis.get(s)
			raw[i] = opts.LineData{Value: r}
			filtered[i] = opts.LineData{Value: f}
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "100%", Height: "320px"}),
			charts.WithTitleOpts(opts.Title{Title: title + " " + axis.name, Subtitle: fmt.Sprintf("samples=%d", len(samples))}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "ms", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: axis.name, Scale: opts.Bool(true)}),
		)
		line.SetXAxis(labels).
			AddSeries("raw", raw, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
			AddSeries("filtered", filtered, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Smooth: opts.Bool(false)}))
		page.AddCharts(line)
	}
	return page.Render(w)
}
