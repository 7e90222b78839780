package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/roi-insights/internal/models"
)

func day(s string) time.Time {
	t, _ := time.ParseInLocation(models.DateLayout, s, time.UTC)
	return t
}

func rec(date, app, country string, installs int, daily float64) models.RoiRecord {
	r := models.RoiRecord{Date: day(date), App: app, BidType: models.BidTypeCPI, Country: country, Installs: installs}
	r.Roi[models.Daily] = models.Observe(daily)
	return r
}

func TestMemoryStoreReplaceAllAndQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.ReplaceAll(ctx, []models.RoiRecord{
		rec("2025-04-02", "App-1", "美国", 10, 0.1),
		rec("2025-04-01", "App-2", "英国", 20, 0.2),
		rec("2025-04-01", "App-1", "美国", 30, 0.3),
	}))
	assert.Equal(t, 3, s.Len())

	all, err := s.Query(ctx, models.RoiQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "App-1", all[0].App)
	assert.Equal(t, "App-2", all[1].App)
	assert.Equal(t, day("2025-04-02"), all[2].Date)

	start := day("2025-04-02")
	got, err := s.Query(ctx, models.RoiQuery{App: "App-1", Start: &start})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Installs)

	none, err := s.Query(ctx, models.RoiQuery{Country: "英国", Start: &start})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	require.NoError(t, s.ReplaceAll(ctx, []models.RoiRecord{rec("2025-05-01", "App-3", "英国", 1, 0)}))
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreCancelledReplaceKeepsData(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.ReplaceAll(context.Background(), []models.RoiRecord{rec("2025-04-01", "App-1", "美国", 1, 0)}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.ReplaceAll(ctx, nil))
	assert.Equal(t, 1, s.Len())
}

func setupMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresStore(db), mock
}

func TestPostgresReplaceAllCommits(t *testing.T) {
	s, mock := setupMock(t)
	s.batchSize = 2

	recs := []models.RoiRecord{
		rec("2025-04-01", "App-1", "美国", 10, 0.1),
		rec("2025-04-02", "App-1", "美国", 11, 0.2),
		rec("2025-04-03", "App-1", "美国", 12, 0.3),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM roi_data")).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO roi_data (date, app, bid_type, country, installs, daily_roi")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO roi_data")).
		WithArgs("2025-04-03", "App-1", models.BidTypeCPI, "美国", 12, 0.3, nil, nil, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.ReplaceAll(context.Background(), recs))
}

func TestPostgresReplaceAllRollsBackOnInsertFailure(t *testing.T) {
	s, mock := setupMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM roi_data")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO roi_data")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.ReplaceAll(context.Background(), []models.RoiRecord{rec("2025-04-01", "App-1", "美国", 1, 0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresQueryScansNullsAsAbsent(t *testing.T) {
	s, mock := setupMock(t)

	cols := append([]string{"date", "app", "bid_type", "country", "installs"}, roiColumns...)
	rows := sqlmock.NewRows(cols).
		AddRow(day("2025-04-13"), "App-1", "CPI", "美国", 1200, 0.0679, 0.1424, nil, nil, nil, nil, nil, nil)

	start := day("2025-04-01").Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("FROM roi_data WHERE app = $1 AND country = $2 AND date >= $3::date ORDER BY date ASC")).
		WithArgs("App-1", "美国", "2025-04-02").
		WillReturnRows(rows)

	got, err := s.Query(context.Background(), models.RoiQuery{App: "App-1", Country: "美国", Start: &start})
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, day("2025-04-13"), r.Date)
	assert.Equal(t, 1200, r.Installs)
	v, ok := r.Roi[models.Day1].Float()
	assert.True(t, ok)
	assert.Equal(t, 0.1424, v)
	assert.True(t, r.Roi[models.Daily].IsObserved())
	assert.False(t, r.Roi[models.Day3].Present())
	assert.False(t, r.Roi[models.Day90].Present())
}

func TestPostgresQueryWithoutFilters(t *testing.T) {
	s, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM roi_data ORDER BY date ASC, app ASC, country ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"date"}))

	got, err := s.Query(context.Background(), models.RoiQuery{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDateBounds(t *testing.T) {
	start := day("2025-04-01")
	end := day("2025-04-30").Add(23 * time.Hour)
	from, to := dateBounds(models.RoiQuery{Start: &start, End: &end})
	assert.Equal(t, "2025-04-01", from)
	assert.Equal(t, "2025-04-30", to)

	late := start.Add(time.Minute)
	from, _ = dateBounds(models.RoiQuery{Start: &late})
	assert.Equal(t, "2025-04-02", from)
}
