package metrics

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/roi-insights/internal/analytics"
	"github.com/AngelCh415/roi-insights/internal/apperr"
	"github.com/AngelCh415/roi-insights/internal/cache"
	"github.com/AngelCh415/roi-insights/internal/models"
)

const maxWindow = 90

type Querier interface {
	Query(ctx context.Context, q models.RoiQuery) ([]models.RoiRecord, error)
}

// Service answers the read side of the API: filtered rows and chart series.
type Service struct {
	st     Querier
	cache  *cache.Cache
	window int
	log    *slog.Logger
}

// NewService builds the query service. c may be nil to disable caching.
func NewService(st Querier, c *cache.Cache, window int, log *slog.Logger) *Service {
	if window < 1 || window > maxWindow {
		window = analytics.DefaultWindow
	}
	return &Service{st: st, cache: c, window: window, log: log}
}

func norm(s string) string { return strings.TrimSpace(s) }

// ParseQuery validates the app, country, startDate and endDate filters. All
// problems are reported together.
func ParseQuery(v url.Values) (models.RoiQuery, error) {
	var (
		q      models.RoiQuery
		issues []apperr.FieldIssue
	)
	if app := norm(v.Get("app")); app != "" {
		if models.IsApp(app) {
			q.App = app
		} else {
			issues = append(issues, apperr.FieldIssue{Field: "app", Message: "must be one of " + strings.Join(models.Apps, ", ")})
		}
	}
	if c := norm(v.Get("country")); c != "" {
		if models.IsCountry(c) {
			q.Country = c
		} else {
			issues = append(issues, apperr.FieldIssue{Field: "country", Message: "must be one of " + strings.Join(models.Countries, ", ")})
		}
	}
	for _, f := range []struct {
		name string
		dst  **time.Time
	}{{"startDate", &q.Start}, {"endDate", &q.End}} {
		s := norm(v.Get(f.name))
		if s == "" {
			continue
		}
		t, err := parseTime(s)
		if err != nil {
			issues = append(issues, apperr.FieldIssue{Field: f.name, Message: "must be an ISO 8601 date or date-time"})
			continue
		}
		*f.dst = &t
	}
	if q.Start != nil && q.End != nil && q.Start.After(*q.End) {
		issues = append(issues, apperr.FieldIssue{Field: "endDate", Message: "must not be before startDate"})
	}
	if len(issues) > 0 {
		return models.RoiQuery{}, apperr.Validation("Invalid query parameters", issues...)
	}
	return q, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation(models.DateLayout, s, time.UTC)
}

func (s *Service) query(ctx context.Context, q models.RoiQuery) ([]models.RoiRecord, error) {
	recs, err := s.st.Query(ctx, q)
	if err != nil {
		return nil, apperr.Database("Failed to query ROI data", err)
	}
	return recs, nil
}

// Rois returns the matching rows ordered by date.
func (s *Service) Rois(ctx context.Context, v url.Values) ([]models.RoiResponse, error) {
	q, err := ParseQuery(v)
	if err != nil {
		return nil, err
	}
	recs, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]models.RoiResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, models.ToResponse(r))
	}
	return out, nil
}

// Chart returns one display-ready series per (app, country) in the result.
// Extra parameters: mode (raw or average) and window (1..90).
func (s *Service) Chart(ctx context.Context, v url.Values) ([]models.ChartSeries, error) {
	q, err := ParseQuery(v)
	if err != nil {
		return nil, err
	}
	opt, err := s.chartOptions(v)
	if err != nil {
		return nil, err
	}

	key, err := s.cache.Key(ctx, cacheQuery(q, opt))
	if err != nil {
		s.log.Warn("chart cache unavailable", slog.String("err", err.Error()))
		key = ""
	}
	var cached []models.ChartSeries
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("chart cache read failed", slog.String("err", err.Error()))
	} else if hit {
		return cached, nil
	}

	recs, err := s.query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := buildSeries(recs, opt)
	if err := s.cache.Set(ctx, key, out); err != nil {
		s.log.Warn("chart cache write failed", slog.String("err", err.Error()))
	}
	return out, nil
}

func (s *Service) chartOptions(v url.Values) (analytics.Options, error) {
	var issues []apperr.FieldIssue
	mode, ok := analytics.ParseMode(norm(v.Get("mode")))
	if !ok {
		issues = append(issues, apperr.FieldIssue{Field: "mode", Message: "must be raw or average"})
	}
	window := s.window
	if w := norm(v.Get("window")); w != "" {
		n := atoiDef(w, 0)
		if n < 1 || n > maxWindow {
			issues = append(issues, apperr.FieldIssue{Field: "window", Message: "must be an integer between 1 and 90"})
		}
		window = n
	}
	if len(issues) > 0 {
		return analytics.Options{}, apperr.Validation("Invalid query parameters", issues...)
	}
	return analytics.Options{Mode: mode, Window: window}, nil
}

func buildSeries(recs []models.RoiRecord, opt analytics.Options) []models.ChartSeries {
	groups := map[models.SeriesKey][]models.RoiRecord{}
	for _, r := range recs {
		groups[r.Key()] = append(groups[r.Key()], r)
	}
	keys := make([]models.SeriesKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].App != keys[j].App {
			return keys[i].App < keys[j].App
		}
		return keys[i].Country < keys[j].Country
	})

	out := make([]models.ChartSeries, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.ChartSeries{
			App:     k.App,
			Country: k.Country,
			Points:  analytics.Chart(groups[k], opt),
		})
	}
	return out
}

// cacheQuery is the canonical form of a chart request.
func cacheQuery(q models.RoiQuery, opt analytics.Options) string {
	v := url.Values{}
	v.Set("app", q.App)
	v.Set("country", q.Country)
	if q.Start != nil {
		v.Set("start", q.Start.Format(time.RFC3339))
	}
	if q.End != nil {
		v.Set("end", q.End.Format(time.RFC3339))
	}
	v.Set("mode", string(opt.Mode))
	v.Set("window", strconv.Itoa(opt.Window))
	return v.Encode()
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
