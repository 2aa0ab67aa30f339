// Package report renders session summaries as self-contained HTML charts
// for quick visual inspection without a frontend.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/repcoach/repcoach/internal/engine"
)

// RenderSession writes an HTML page charting the per-rep form scores and
// bottom extremums of one session.
func RenderSession(w io.Writer, summary engine.Summary, reps []engine.RepRecord) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s session %s", summary.Exercise, summary.SessionID)

	labels := make([]string, len(reps))
	scores := make([]opts.BarData, len(reps))
	bottoms := make([]opts.LineData, len(reps))
	for i, r := range reps {
		labels[i] = fmt.Sprintf("rep %d", r.Index+1)
		scores[i] = opts.BarData{Value: r.Score}
		bottoms[i] = opts.LineData{Value: r.Bottom}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s: %d reps, avg score %.1f", summary.Exercise, summary.TotalReps, summary.AverageFormScore),
			Subtitle: fmt.Sprintf("%.0fs elapsed, ~%.1f kcal",
				summary.DurationSeconds, summary.EstimatedCalories),
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "form score", Max: 100}),
	)
	bar.SetXAxis(labels).AddSeries("form score", scores)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "bottom extremum per rep"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "degrees"}),
	)
	line.SetXAxis(labels).AddSeries("bottom angle", bottoms)

	page.AddCharts(bar, line)
	return page.Render(w)
}
