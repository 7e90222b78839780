package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/roi-insights/internal/apperr"
	"github.com/AngelCh415/roi-insights/internal/models"
)

func rawRow(date, app, country, installs string, roi ...string) RawRecord {
	r := RawRecord{
		ColDate:     date,
		ColApp:      app,
		ColBidType:  models.BidTypeCPI,
		ColCountry:  country,
		ColInstalls: installs,
	}
	for i, col := range RoiColumns {
		if i < len(roi) {
			r[col] = roi[i]
		} else {
			r[col] = ""
		}
	}
	return r
}

func fieldDetails(t *testing.T, err error) apperr.FieldDetails {
	t.Helper()
	ae, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	assert.Equal(t, apperr.NameCSVField, ae.Name)
	d, ok := ae.Details.(apperr.FieldDetails)
	require.True(t, ok)
	return d
}

func TestValidateAcceptsContractRow(t *testing.T) {
	r := rawRow("2025-04-13(日)", "App-1", "美国", "1,200", "6.79%", "14.24%", "-3.5%", "1,024.5%", "12.")
	assert.NoError(t, Validate(r, 2))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(RawRecord)
		field string
	}{
		{"bad date", func(r RawRecord) { r[ColDate] = "13/04/2025" }, ColDate},
		{"unknown app", func(r RawRecord) { r[ColApp] = "App-9" }, ColApp},
		{"wrong bid type", func(r RawRecord) { r[ColBidType] = "CPC" }, ColBidType},
		{"unknown country", func(r RawRecord) { r[ColCountry] = "日本" }, ColCountry},
		{"negative installs", func(r RawRecord) { r[ColInstalls] = "-5" }, ColInstalls},
		{"malformed separators", func(r RawRecord) { r[ColInstalls] = "12,34" }, ColInstalls},
		{"text roi", func(r RawRecord) { r[RoiColumns[models.Day7]] = "n/a" }, RoiColumns[models.Day7]},
		{"double sign roi", func(r RawRecord) { r[RoiColumns[models.Day1]] = "+-5%" }, RoiColumns[models.Day1]},
		{"bare dot roi", func(r RawRecord) { r[RoiColumns[models.Day1]] = ".%" }, RoiColumns[models.Day1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rawRow("2025-04-13", "App-1", "美国", "10", "1%")
			tt.mut(r)
			err := Validate(r, 7)
			require.Error(t, err)
			d := fieldDetails(t, err)
			assert.Equal(t, 7, d.Line)
			assert.Equal(t, tt.field, d.Field)
			assert.Contains(t, err.Error(), "line 7")
		})
	}
}

func TestValidateMissingColumn(t *testing.T) {
	r := rawRow("2025-04-13", "App-1", "美国", "10")
	delete(r, ColCountry)
	err := Validate(r, 4)
	require.Error(t, err)
	ae, _ := apperr.As(err)
	assert.Equal(t, "line 4: Missing required field: 国家地区", ae.Message)
}

func TestValidateReportsFirstFailingColumn(t *testing.T) {
	r := rawRow("bad", "App-9", "日本", "x")
	d := fieldDetails(t, Validate(r, 2))
	assert.Equal(t, ColDate, d.Field)
}

func TestTransformZeroIsNotAbsent(t *testing.T) {
	zero, err := Transform(rawRow("2025-04-13", "App-1", "美国", "10", "0%"), 2)
	require.NoError(t, err)
	blank, err := Transform(rawRow("2025-04-13", "App-1", "美国", "10", ""), 3)
	require.NoError(t, err)

	v, ok := zero.Roi[models.Daily].Float()
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
	assert.True(t, zero.Roi[models.Daily].IsObserved())
	assert.False(t, blank.Roi[models.Daily].Present())
}

func TestTransformNormalizes(t *testing.T) {
	rec, err := Transform(rawRow("2025-04-13(日)", "App-2", "英国", "12,345", "6.79%", "14.24%", "1,024.5%", "-3%", "12."), 2)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 4, 13, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, "App-2", rec.App)
	assert.Equal(t, models.BidTypeCPI, rec.BidType)
	assert.Equal(t, 12345, rec.Installs)

	want := map[models.Horizon]float64{
		models.Daily: 0.0679,
		models.Day1:  0.1424,
		models.Day3:  10.245,
		models.Day7:  -0.03,
		models.Day14: 0.12,
	}
	for h, w := range want {
		got, ok := rec.Roi[h].Float()
		assert.True(t, ok, h.Key())
		assert.Equal(t, w, got, h.Key())
	}
	assert.False(t, rec.Roi[models.Day30].Present())
	assert.False(t, rec.Roi[models.Day90].Present())
}

func TestTransformSignedAndLeadingDotRoi(t *testing.T) {
	r := rawRow("2025-04-13", "App-1", "美国", "10", "+5%", ".5%", "-.25%", "+1,000.5%")
	require.NoError(t, Validate(r, 2))
	rec, err := Transform(r, 2)
	require.NoError(t, err)

	want := map[models.Horizon]float64{
		models.Daily: 0.05,
		models.Day1:  0.005,
		models.Day3:  -0.0025,
		models.Day7:  10.005,
	}
	for h, w := range want {
		got, ok := rec.Roi[h].Float()
		assert.True(t, ok, h.Key())
		assert.Equal(t, w, got, h.Key())
	}
}

func TestTransformRejectsInstallsBeyondInt32(t *testing.T) {
	r := rawRow("2025-04-13", "App-1", "美国", "3,000,000,000", "1%")
	require.NoError(t, Validate(r, 9))
	_, err := Transform(r, 9)
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.NameCSVField, ae.Name)
	assert.Equal(t, 400, ae.Status)
	d := fieldDetails(t, err)
	assert.Equal(t, 9, d.Line)
	assert.Equal(t, ColInstalls, d.Field)
	assert.Equal(t, "3,000,000,000", d.Value)

	edge, err := Transform(rawRow("2025-04-13", "App-1", "美国", "2,147,483,647", "1%"), 9)
	require.NoError(t, err)
	assert.Equal(t, 2147483647, edge.Installs)
}

func TestTransformRejectsImpossibleDate(t *testing.T) {
	err := Validate(rawRow("2025-02-30", "App-1", "美国", "1"), 5)
	require.NoError(t, err)
	_, err = Transform(rawRow("2025-02-30", "App-1", "美国", "1"), 5)
	d := fieldDetails(t, err)
	assert.Equal(t, ColDate, d.Field)
	assert.Equal(t, 5, d.Line)
}

func TestHeaderOrder(t *testing.T) {
	h := Header()
	require.Len(t, h, 13)
	assert.Equal(t, "日期,app,出价类型,国家地区,应用安装.总次数,当日ROI,1日ROI,3日ROI,7日ROI,14日ROI,30日ROI,60日ROI,90日ROI", strings.Join(h, ","))
}
