package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/roi-insights/internal/apperr"
	"github.com/AngelCh415/roi-insights/internal/models"
)

// Transform converts a validated row into a RoiRecord. Blank ROI cells become
// Absent; "0%" is an observed zero.
func Transform(rec RawRecord, line int) (models.RoiRecord, error) {
	var out models.RoiRecord

	raw, ok := rec[ColDate]
	if !ok {
		return out, apperr.CSVMissingField(line, ColDate)
	}
	if len(raw) < len(models.DateLayout) {
		return out, apperr.CSVField(line, ColDate, raw, "expected YYYY-MM-DD")
	}
	d, err := time.ParseInLocation(models.DateLayout, raw[:len(models.DateLayout)], time.UTC)
	if err != nil {
		return out, apperr.CSVField(line, ColDate, raw, "not a calendar date")
	}
	out.Date = d

	for _, col := range []string{ColApp, ColBidType, ColCountry, ColInstalls} {
		if _, ok := rec[col]; !ok {
			return out, apperr.CSVMissingField(line, col)
		}
	}
	out.App = rec[ColApp]
	out.BidType = rec[ColBidType]
	out.Country = rec[ColCountry]

	installs, err := strconv.Atoi(strings.ReplaceAll(rec[ColInstalls], ",", ""))
	if err != nil || installs < 0 {
		return out, apperr.CSVField(line, ColInstalls, rec[ColInstalls], "not an integer")
	}
	// roi_data.installs is a Postgres INTEGER.
	if installs > math.MaxInt32 {
		return out, apperr.CSVField(line, ColInstalls, rec[ColInstalls], "exceeds 2147483647")
	}
	out.Installs = installs

	for h, col := range RoiColumns {
		m, err := parseRatio(rec[col])
		if err != nil {
			return out, apperr.CSVField(line, col, rec[col], "not a number")
		}
		out.Roi[h] = m
	}
	return out, nil
}

// parseRatio turns "12.5%" into 0.125 and "+.5%" into 0.005. Decimal
// arithmetic keeps the result identical to the literal ratio, so 14.24% reads
// back as exactly 0.1424.
func parseRatio(s string) (models.Metric, error) {
	if s == "" {
		return models.Metric{}, nil
	}
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, ".")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if neg {
		s = "-" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return models.Metric{}, err
	}
	f, _ := d.Shift(-2).Float64()
	return models.Observe(f), nil
}
