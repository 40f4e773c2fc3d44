package calibrate

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders the report as a page of bar charts, one group per window size
func (r Report) WriteHTML(w io.Writer) error {
	sizes := make([]string, len(r.Results))
	samples := make([]opts.BarData, len(r.Results))
	distance := make([]opts.BarData, len(r.Results))
	p90 := make([]opts.BarData, len(r.Results))
	matched := make([]opts.BarData, len(r.Results))
	for i, res := range r.Results {
		sizes[i] = strconv.Itoa(res.Size) + "x" + strconv.Itoa(res.Size)
		samples[i] = opts.BarData{Value: res.MeanSamples}
		distance[i] = opts.BarData{Value: res.MeanDistance}
		p90[i] = opts.BarData{Value: res.P90Distance}
		matched[i] = opts.BarData{Value: 100 * res.MatchedRatio()}
	}
	subtitle := fmt.Sprintf("surfaces=%d roughness=%g seed=%d", r.Config.Surfaces, r.Config.Roughness, r.Config.Seed)

	cost := charts.NewBar()
	cost.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Fine window calibration", Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Samples per cycle", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	cost.SetXAxis(sizes).
		AddSeries("mean samples", samples,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	quality := charts.NewBar()
	quality.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Distance from optimum", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	quality.SetXAxis(sizes).
		AddSeries("mean", distance).
		AddSeries("p90", p90)

	match := charts.NewBar()
	match.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Matched %", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	match.SetXAxis(sizes).
		AddSeries("matched", matched,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.PageTitle = "Fine window calibration"
	page.AddCharts(cost, quality, match)

	return page.Render(w)
}
