package analytics

import "github.com/AngelCh415/roi-insights/internal/models"

type Mode string

const (
	ModeRaw     Mode = "raw"
	ModeAverage Mode = "average"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "":
		return ModeAverage, true
	case ModeRaw, ModeAverage:
		return Mode(s), true
	}
	return "", false
}

// Options controls how a series is prepared for display.
type Options struct {
	Mode   Mode
	Window int
}

// Chart formats one (app, country) series, optionally smooths it, then
// back-fills immature horizons. Prediction runs after smoothing so predicted
// values are never averaged into anything, and the display floor is applied
// only once everything else has worked on the real percentages.
func Chart(recs []models.RoiRecord, opt Options) []models.ChartPoint {
	points := FormatSeries(recs)
	if opt.Mode != ModeRaw {
		w := opt.Window
		if w <= 0 {
			w = DefaultWindow
		}
		points = SmoothAll(points, w)
	}
	return Floor(PredictAll(points))
}
