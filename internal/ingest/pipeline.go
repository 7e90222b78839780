package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/roi-insights/internal/apperr"
	"github.com/AngelCh415/roi-insights/internal/lock"
	"github.com/AngelCh415/roi-insights/internal/models"
	"github.com/AngelCh415/roi-insights/internal/utils"
)

// Replacer installs a complete dataset in one atomic step.
type Replacer interface {
	ReplaceAll(ctx context.Context, recs []models.RoiRecord) error
}

// Invalidator drops derived data computed from the previous dataset.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Pipeline turns an uploaded CSV into the live dataset. An import either
// replaces everything or changes nothing.
type Pipeline struct {
	st  Replacer
	lk  lock.Locker
	inv Invalidator
	log *slog.Logger
}

// NewPipeline wires the pipeline. inv may be nil.
func NewPipeline(st Replacer, lk lock.Locker, inv Invalidator, log *slog.Logger) *Pipeline {
	return &Pipeline{st: st, lk: lk, inv: inv, log: log}
}

func (p *Pipeline) Import(ctx context.Context, data []byte) (models.ImportResult, error) {
	start := time.Now()
	res, err := p.run(ctx, data)

	outcome := "success"
	if err != nil {
		outcome = apperr.NameInternal
		if ae, ok := apperr.As(err); ok {
			outcome = ae.Name
		}
	}
	utils.ObserveImport(outcome, res.Count, time.Since(start))
	return res, err
}

func (p *Pipeline) run(ctx context.Context, data []byte) (models.ImportResult, error) {
	var res models.ImportResult
	if data == nil {
		return res, apperr.DataImport("No file uploaded")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return res, apperr.DataImport("File is empty")
	}
	text, err := decodeText(data)
	if err != nil {
		return res, err
	}
	recs, err := ParseRecords(bytes.NewReader(text))
	if err != nil {
		return res, err
	}

	lease, err := p.lk.Acquire(ctx)
	if errors.Is(err, lock.ErrHeld) {
		return res, apperr.Conflict("Another import is in progress")
	}
	if err != nil {
		return res, apperr.Internal(err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			p.log.Warn("import lock release failed", slog.String("err", err.Error()))
		}
	}()

	start := time.Now()
	if err := p.st.ReplaceAll(ctx, recs); err != nil {
		if _, ok := apperr.As(err); ok {
			return res, err
		}
		return res, apperr.Database("Failed to replace ROI dataset", err)
	}

	if p.inv != nil {
		if err := p.inv.Invalidate(ctx); err != nil {
			p.log.Warn("cache invalidation failed", slog.String("err", err.Error()))
		}
	}

	res = models.ImportResult{ImportID: uuid.NewString(), Count: len(recs)}
	p.log.Info("import committed",
		slog.String("import_id", res.ImportID),
		slog.Int("rows", res.Count),
		slog.Int64("replace_ms", time.Since(start).Milliseconds()),
	)
	return res, nil
}
