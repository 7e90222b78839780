package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	BidTypeCPI = "CPI"
	DateLayout = "2006-01-02"
)

var (
	Apps      = []string{"App-1", "App-2", "App-3", "App-4", "App-5"}
	Countries = []string{"美国", "英国"}
)

func IsApp(s string) bool     { return contains(Apps, s) }
func IsCountry(s string) bool { return contains(Countries, s) }

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// MetricState distinguishes a value that was never reported from one that was
// measured and one the analytics layer synthesized.
type MetricState uint8

const (
	Absent MetricState = iota
	Observed
	Predicted
)

func (s MetricState) String() string {
	switch s {
	case Observed:
		return "observed"
	case Predicted:
		return "predicted"
	default:
		return "absent"
	}
}

// Metric is a single ROI figure. The zero value is Absent.
type Metric struct {
	state MetricState
	v     float64
}

func Observe(v float64) Metric { return Metric{state: Observed, v: v} }
func Predict(v float64) Metric { return Metric{state: Predicted, v: v} }

func (m Metric) State() MetricState { return m.state }
func (m Metric) Present() bool      { return m.state != Absent }
func (m Metric) IsObserved() bool   { return m.state == Observed }
func (m Metric) IsPredicted() bool  { return m.state == Predicted }

// Float returns the numeric value and whether one is present.
func (m Metric) Float() (float64, bool) {
	if m.state == Absent {
		return 0, false
	}
	return m.v, true
}

// WithFloat keeps the state and replaces the number. Absent stays Absent.
func (m Metric) WithFloat(v float64) Metric {
	if m.state == Absent {
		return m
	}
	return Metric{state: m.state, v: v}
}

func (m Metric) String() string {
	if m.state == Absent {
		return "absent"
	}
	return fmt.Sprintf("%s(%g)", m.state, m.v)
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if m.state == Absent {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, m.v, 'f', -1, 64), nil
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*m = Metric{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Observe(f)
	return nil
}

// Value stores Absent as SQL NULL. Predicted values are never persisted.
func (m Metric) Value() (driver.Value, error) {
	switch m.state {
	case Absent:
		return nil, nil
	case Predicted:
		return nil, fmt.Errorf("predicted metric %g cannot be stored", m.v)
	}
	return m.v, nil
}

func (m *Metric) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Metric{}
	case float64:
		*m = Observe(v)
	case float32:
		*m = Observe(float64(v))
	case int64:
		*m = Observe(float64(v))
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return fmt.Errorf("scan metric: %w", err)
		}
		*m = Observe(f)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("scan metric: %w", err)
		}
		*m = Observe(f)
	default:
		return fmt.Errorf("scan metric: unsupported type %T", src)
	}
	return nil
}

// Horizon indexes the eight ROI measurements, shortest first.
type Horizon int

const (
	Daily Horizon = iota
	Day1
	Day3
	Day7
	Day14
	Day30
	Day60
	Day90
	NumHorizons = 8
)

var (
	horizonKeys = [NumHorizons]string{"daily", "day1", "day3", "day7", "day14", "day30", "day60", "day90"}
	horizonDays = [NumHorizons]int{0, 1, 3, 7, 14, 30, 60, 90}
)

func (h Horizon) Key() string { return horizonKeys[h] }
func (h Horizon) Days() int   { return horizonDays[h] }

func AllHorizons() []Horizon {
	out := make([]Horizon, NumHorizons)
	for i := range out {
		out[i] = Horizon(i)
	}
	return out
}

// LongHorizons are the horizons eligible for prediction: everything but Daily.
func LongHorizons() []Horizon { return AllHorizons()[1:] }

func HorizonByKey(k string) (Horizon, bool) {
	for i, v := range horizonKeys {
		if v == k {
			return Horizon(i), true
		}
	}
	return 0, false
}

// Horizons holds one Metric per horizon and encodes as {"daily":..,"day1":..}.
type Horizons [NumHorizons]Metric

func (hs Horizons) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range hs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(horizonKeys[i]))
		buf.WriteByte(':')
		b, _ := m.MarshalJSON()
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (hs *Horizons) UnmarshalJSON(b []byte) error {
	raw := map[string]Metric{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*hs = Horizons{}
	for k, m := range raw {
		if h, ok := HorizonByKey(k); ok {
			hs[h] = m
		}
	}
	return nil
}

type RoiRecord struct {
	Date     time.Time
	App      string
	BidType  string
	Country  string
	Installs int
	Roi      Horizons
}

type SeriesKey struct {
	App     string
	Country string
}

func (r RoiRecord) Key() SeriesKey { return SeriesKey{App: r.App, Country: r.Country} }

// RoiQuery filters the dataset. Zero fields match everything; the date range is inclusive.
type RoiQuery struct {
	App     string
	Country string
	Start   *time.Time
	End     *time.Time
}

func (q RoiQuery) Matches(r RoiRecord) bool {
	if q.App != "" && r.App != q.App {
		return false
	}
	if q.Country != "" && r.Country != q.Country {
		return false
	}
	if q.Start != nil && r.Date.Before(*q.Start) {
		return false
	}
	if q.End != nil && r.Date.After(*q.End) {
		return false
	}
	return true
}

type RoiResponse struct {
	Date     string   `json:"date"`
	App      string   `json:"app"`
	Country  string   `json:"country"`
	Installs int      `json:"installs"`
	Roi      Horizons `json:"roi"`
}

func ToResponse(r RoiRecord) RoiResponse {
	return RoiResponse{
		Date:     r.Date.Format(DateLayout),
		App:      r.App,
		Country:  r.Country,
		Installs: r.Installs,
		Roi:      r.Roi,
	}
}

// ChartPoint is one date of a chart series with values already in percent.
type ChartPoint struct {
	Date   string
	Values Horizons
}

func (p ChartPoint) Predicted(h Horizon) bool { return p.Values[h].IsPredicted() }

func (p ChartPoint) MarshalJSON() ([]byte, error) {
	flags := make(map[string]bool, NumHorizons-1)
	for _, h := range LongHorizons() {
		flags[h.Key()] = p.Predicted(h)
	}
	return json.Marshal(struct {
		Date      string          `json:"date"`
		Values    Horizons        `json:"values"`
		Predicted map[string]bool `json:"predicted"`
	}{p.Date, p.Values, flags})
}

// UnmarshalJSON restores predicted states from the predicted flags.
func (p *ChartPoint) UnmarshalJSON(b []byte) error {
	var raw struct {
		Date      string          `json:"date"`
		Values    Horizons        `json:"values"`
		Predicted map[string]bool `json:"predicted"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Date, p.Values = raw.Date, raw.Values
	for k, pred := range raw.Predicted {
		h, ok := HorizonByKey(k)
		if !ok || !pred {
			continue
		}
		if v, ok := p.Values[h].Float(); ok {
			p.Values[h] = Predict(v)
		}
	}
	return nil
}

type ChartSeries struct {
	App     string       `json:"app"`
	Country string       `json:"country"`
	Points  []ChartPoint `json:"points"`
}

type ImportResult struct {
	ImportID string `json:"-"`
	Count    int    `json:"count"`
}
