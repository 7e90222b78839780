// Package analytics turns stored ROI rows into chart series: percentage
// scaling, trailing moving averages and back-filled predictions for horizons
// that have not matured yet. Every function works on its own copy of the input.
package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/AngelCh415/roi-insights/internal/models"
)

// DisplayFloor is the smallest percentage drawn on the log-scale chart.
const DisplayFloor = 0.5

// FormatSeries converts one (app, country) series into chart points in
// percent. A horizon after the first absent one of a row is treated as absent:
// the cohort is not old enough to have accrued it. Values are not floored;
// see Floor.
func FormatSeries(recs []models.RoiRecord) []models.ChartPoint {
	out := make([]models.ChartPoint, len(recs))
	for i, r := range recs {
		p := models.ChartPoint{Date: r.Date.Format(models.DateLayout)}
		for _, h := range models.AllHorizons() {
			m := r.Roi[h]
			if !m.Present() {
				break
			}
			v, _ := m.Float()
			p.Values[h] = m.WithFloat(percent(v))
		}
		out[i] = p
	}
	return out
}

func percent(ratio float64) float64 {
	f, _ := decimal.NewFromFloat(ratio).Shift(2).Float64()
	return f
}

// Floor raises every present value below DisplayFloor to it, keeping its
// observed or predicted state. It is the last step before points are drawn.
func Floor(points []models.ChartPoint) []models.ChartPoint {
	out := make([]models.ChartPoint, len(points))
	copy(out, points)
	for i := range out {
		for h, m := range out[i].Values {
			if v, ok := m.Float(); ok {
				out[i].Values[h] = m.WithFloat(clamp(v))
			}
		}
	}
	return out
}

func clamp(v float64) float64 {
	if v < DisplayFloor {
		return DisplayFloor
	}
	return v
}
