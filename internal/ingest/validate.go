package ingest

import (
	"regexp"

	"github.com/AngelCh415/roi-insights/internal/apperr"
	"github.com/AngelCh415/roi-insights/internal/models"
)

var (
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	installsRe = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)$`)
	roiRe      = regexp.MustCompile(`^[+-]?(?:(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d*)?|\.\d+)%?$`)
)

// Validate checks one row against the column contract. line is the 1-based
// line of the row in the file and only feeds the error message.
func Validate(rec RawRecord, line int) error {
	date, ok := rec[ColDate]
	if !ok {
		return apperr.CSVMissingField(line, ColDate)
	}
	if !dateRe.MatchString(date) {
		return apperr.CSVField(line, ColDate, date, "expected YYYY-MM-DD")
	}

	app, ok := rec[ColApp]
	if !ok {
		return apperr.CSVMissingField(line, ColApp)
	}
	if !models.IsApp(app) {
		return apperr.CSVField(line, ColApp, app, "unknown app")
	}

	bid, ok := rec[ColBidType]
	if !ok {
		return apperr.CSVMissingField(line, ColBidType)
	}
	if bid != models.BidTypeCPI {
		return apperr.CSVField(line, ColBidType, bid, "expected "+models.BidTypeCPI)
	}

	country, ok := rec[ColCountry]
	if !ok {
		return apperr.CSVMissingField(line, ColCountry)
	}
	if !models.IsCountry(country) {
		return apperr.CSVField(line, ColCountry, country, "unknown country")
	}

	installs, ok := rec[ColInstalls]
	if !ok {
		return apperr.CSVMissingField(line, ColInstalls)
	}
	if !installsRe.MatchString(installs) {
		return apperr.CSVField(line, ColInstalls, installs, "expected a non-negative integer")
	}

	// ROI columns may be blank or missing: the horizon has not matured yet.
	for _, col := range RoiColumns {
		v := rec[col]
		if v == "" {
			continue
		}
		if !roiRe.MatchString(v) {
			return apperr.CSVField(line, col, v, "expected a number or percentage")
		}
	}
	return nil
}
