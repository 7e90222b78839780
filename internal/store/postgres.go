package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/AngelCh415/roi-insights/internal/models"
)

//go:embed schema.sql
var schemaSQL string

const insertBatchSize = 500

var roiColumns = []string{"daily_roi", "roi_1d", "roi_3d", "roi_7d", "roi_14d", "roi_30d", "roi_60d", "roi_90d"}

var insertColumns = append([]string{"date", "app", "bid_type", "country", "installs"}, roiColumns...)

// PostgresStore keeps the dataset in the roi_data table.
type PostgresStore struct {
	db        *sql.DB
	batchSize int
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, batchSize: insertBatchSize}
}

// Open configures a lib/pq pool. It does not dial; callers Ping.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate roi_data: %w", describe(err))
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ReplaceAll deletes every row and inserts recs in one transaction. DELETE is
// used rather than TRUNCATE so concurrent readers keep seeing the old rows
// until commit instead of blocking on an exclusive lock.
func (s *PostgresStore) ReplaceAll(ctx context.Context, recs []models.RoiRecord) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM roi_data`); err != nil {
			return fmt.Errorf("clear roi_data: %w", describe(err))
		}
		for start := 0; start < len(recs); start += s.batchSize {
			end := min(start+s.batchSize, len(recs))
			if err := insertBatch(ctx, tx, recs[start:end]); err != nil {
				return fmt.Errorf("insert roi_data rows %d-%d: %w", start, end-1, describe(err))
			}
		}
		return nil
	})
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", describe(err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", describe(err))
	}
	return nil
}

func insertBatch(ctx context.Context, tx *sql.Tx, recs []models.RoiRecord) error {
	var b strings.Builder
	b.WriteString("INSERT INTO roi_data (")
	b.WriteString(strings.Join(insertColumns, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(recs)*len(insertColumns))
	for i, r := range recs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range insertColumns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", i*len(insertColumns)+j+1)
		}
		b.WriteByte(')')

		args = append(args, r.Date.Format(models.DateLayout), r.App, r.BidType, r.Country, r.Installs)
		for _, m := range r.Roi {
			args = append(args, m)
		}
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

func (s *PostgresStore) Query(ctx context.Context, q models.RoiQuery) ([]models.RoiRecord, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.App != "" {
		add("app = $%d", q.App)
	}
	if q.Country != "" {
		add("country = $%d", q.Country)
	}
	from, to := dateBounds(q)
	if from != "" {
		add("date >= $%d::date", from)
	}
	if to != "" {
		add("date <= $%d::date", to)
	}

	query := "SELECT date, app, bid_type, country, installs, " + strings.Join(roiColumns, ", ") + " FROM roi_data"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, app ASC, country ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query roi_data: %w", describe(err))
	}
	defer rows.Close()

	out := []models.RoiRecord{}
	for rows.Next() {
		var r models.RoiRecord
		dest := []any{&r.Date, &r.App, &r.BidType, &r.Country, &r.Installs}
		for i := range r.Roi {
			dest = append(dest, &r.Roi[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan roi_data: %w", err)
		}
		y, m, d := r.Date.Date()
		r.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roi_data: %w", describe(err))
	}
	return out, nil
}

// dateBounds turns the instant filters into inclusive calendar-day bounds so
// the DATE column is compared without any session time zone involved. A
// start instant after midnight excludes that day's row, as in RoiQuery.Matches.
func dateBounds(q models.RoiQuery) (from, to string) {
	if q.Start != nil {
		s := q.Start.UTC()
		day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
		if s.After(day) {
			day = day.AddDate(0, 0, 1)
		}
		from = day.Format(models.DateLayout)
	}
	if q.End != nil {
		to = q.End.UTC().Format(models.DateLayout)
	}
	return from, to
}

// describe adds the SQLSTATE to driver errors for the logs.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("pq %s (%s): %w", pqErr.Code.Name(), pqErr.Code, err)
	}
	return err
}
