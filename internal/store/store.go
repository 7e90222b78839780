package store

import (
	"context"
	"sort"

	"github.com/AngelCh415/roi-insights/internal/models"
)

// Store holds the one live ROI dataset.
//
// ReplaceAll is the transactional boundary of an import: it discards every
// existing record and installs recs as a single atomic step. Readers see
// either the old dataset or the new one, never an empty table in between.
type Store interface {
	ReplaceAll(ctx context.Context, recs []models.RoiRecord) error
	Query(ctx context.Context, q models.RoiQuery) ([]models.RoiRecord, error)
	Ping(ctx context.Context) error
}

// sortRecords orders by date, then app, then country.
func sortRecords(recs []models.RoiRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.Before(recs[j].Date)
		}
		if recs[i].App != recs[j].App {
			return recs[i].App < recs[j].App
		}
		return recs[i].Country < recs[j].Country
	})
}
