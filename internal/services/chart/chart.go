// Package chart renders cached price series as PNG line charts.
package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/gbard/histcache/internal/models"
)

// RenderSeries renders a PNG line chart from a cached series.
// Two series: adjusted close (blue solid) and raw close (gray dashed).
// Returns raw PNG bytes.
func RenderSeries(series *models.Series) ([]byte, error) {
	if len(series.Bars) < 2 {
		return nil, fmt.Errorf("need at least 2 bars, got %d", len(series.Bars))
	}

	xValues := make([]time.Time, len(series.Bars))
	adjY := make([]float64, len(series.Bars))
	closeY := make([]float64, len(series.Bars))

	for i, b := range series.Bars {
		xValues[i] = b.Date
		adjY[i] = b.AdjClose
		closeY[i] = b.Close
	}

	adjSeries := chart.TimeSeries{
		Name: "Adj Close",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: adjY,
	}

	closeSeries := chart.TimeSeries{
		Name: "Close",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: closeY,
	}

	graph := chart.Chart{
		Title:  series.Symbol,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			adjSeries,
			closeSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
