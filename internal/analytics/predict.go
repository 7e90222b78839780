package analytics

import "github.com/AngelCh415/roi-insights/internal/models"

// Predict fills absent values of long horizon h with daily × the series'
// mean h/daily ratio and marks them predicted. The ratio is learned only from
// points where both values were observed and daily is positive; without such
// points the gaps stay absent. Observed values are never touched.
func Predict(points []models.ChartPoint, h models.Horizon) []models.ChartPoint {
	out := make([]models.ChartPoint, len(points))
	copy(out, points)
	if h == models.Daily {
		return out
	}
	ratio, ok := meanRatio(points, h)
	if !ok {
		return out
	}
	for i, p := range points {
		if p.Values[h].Present() {
			continue
		}
		daily, ok := p.Values[models.Daily].Float()
		if !ok {
			continue
		}
		out[i].Values[h] = models.Predict(daily * ratio)
	}
	return out
}

// PredictAll runs Predict for every long horizon.
func PredictAll(points []models.ChartPoint) []models.ChartPoint {
	for _, h := range models.LongHorizons() {
		points = Predict(points, h)
	}
	return points
}

func meanRatio(points []models.ChartPoint, h models.Horizon) (float64, bool) {
	var (
		sum float64
		n   int
	)
	for _, p := range points {
		if !p.Values[models.Daily].IsObserved() || !p.Values[h].IsObserved() {
			continue
		}
		daily, _ := p.Values[models.Daily].Float()
		if daily <= 0 {
			continue
		}
		v, _ := p.Values[h].Float()
		sum += v / daily
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
