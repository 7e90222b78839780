package analytics

import "github.com/AngelCh415/roi-insights/internal/models"

const DefaultWindow = 7

// Smooth replaces horizon h of every point with the mean of the trailing
// window ending at that point. Windows near the start are shorter. A window
// holding anything but observed values yields Absent; gaps are never
// averaged over.
func Smooth(points []models.ChartPoint, h models.Horizon, window int) []models.ChartPoint {
	if window < 1 {
		window = 1
	}
	out := make([]models.ChartPoint, len(points))
	copy(out, points)
	for i := range points {
		lo := max(0, i-window+1)
		var (
			sum float64
			ok  = true
		)
		for j := lo; j <= i; j++ {
			m := points[j].Values[h]
			if !m.IsObserved() {
				ok = false
				break
			}
			v, _ := m.Float()
			sum += v
		}
		if ok {
			out[i].Values[h] = models.Observe(sum / float64(i-lo+1))
		} else {
			out[i].Values[h] = models.Metric{}
		}
	}
	return out
}

// SmoothAll smooths every horizon.
func SmoothAll(points []models.ChartPoint, window int) []models.ChartPoint {
	for _, h := range models.AllHorizons() {
		points = Smooth(points, h, window)
	}
	return points
}
