package services

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/core"
)

// DeleteMode selects how much of a series a deletion removes.
type DeleteMode string

const (
	DeleteSingle  DeleteMode = "single"
	DeleteForward DeleteMode = "forward"
	DeleteSeries  DeleteMode = "series"
)

func (m DeleteMode) Valid() bool {
	switch m {
	case DeleteSingle, DeleteForward, DeleteSeries:
		return true
	}
	return false
}

// SeriesDeleter removes records with awareness of the series they
// belong to.
type SeriesDeleter struct {
	ledger Ledger
}

func NewSeriesDeleter(ledger Ledger) *SeriesDeleter {
	return &SeriesDeleter{ledger: ledger}
}

// Delete removes the records selected by mode and returns their ids.
// Resolution happens fully before any row is removed, so an integrity
// failure deletes nothing.
func (d *SeriesDeleter) Delete(ctx context.Context, id string, mode DeleteMode) ([]string, error) {
	ids, err := d.resolve(ctx, id, mode)
	if err != nil {
		return nil, err
	}
	if _, err := d.ledger.DeleteByIDs(ctx, ids); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Records deleted",
		"target_id", id,
		"mode", string(mode),
		"count", len(ids))
	return ids, nil
}

// DeleteOne removes exactly the target record.
func (d *SeriesDeleter) DeleteOne(ctx context.Context, id string) (int64, error) {
	return d.count(ctx, id, DeleteSingle)
}

// DeleteWholeSeries removes every record sharing the target's series,
// or every record referencing the target when it is the series root.
func (d *SeriesDeleter) DeleteWholeSeries(ctx context.Context, id string) (int64, error) {
	return d.count(ctx, id, DeleteSeries)
}

// DeleteFromHere removes the target plus every later-dated member of
// its series. A target without a series reference degrades to a whole
// series deletion keyed on its own id.
func (d *SeriesDeleter) DeleteFromHere(ctx context.Context, id string) (int64, error) {
	return d.count(ctx, id, DeleteForward)
}

func (d *SeriesDeleter) count(ctx context.Context, id string, mode DeleteMode) (int64, error) {
	ids, err := d.Delete(ctx, id, mode)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (d *SeriesDeleter) resolve(ctx context.Context, id string, mode DeleteMode) ([]string, error) {
	rec, err := d.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load record %s: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}

	switch mode {
	case DeleteSingle:
		return []string{id}, nil

	case DeleteSeries:
		seriesID := id
		if rec.InSeries() {
			seriesID = *rec.SeriesID
		}
		members, err := d.ledger.FindSeries(ctx, seriesID)
		if err != nil {
			return nil, fmt.Errorf("load series %s: %w", seriesID, err)
		}
		ids := make([]string, 0, len(members)+1)
		seen := false
		for _, m := range members {
			if m.ID == rec.ID {
				seen = true
			}
			ids = append(ids, m.ID)
		}
		// An unexpanded template carries no series reference yet.
		if !seen {
			ids = append(ids, rec.ID)
		}
		return ids, nil

	case DeleteForward:
		if !rec.InSeries() {
			return d.resolve(ctx, id, DeleteSeries)
		}
		members, err := d.ledger.FindSeries(ctx, *rec.SeriesID)
		if err != nil {
			return nil, fmt.Errorf("load series %s: %w", *rec.SeriesID, err)
		}
		// Position is by date order within the series, not by id.
		pos := -1
		for i, m := range members {
			if m.ID == rec.ID {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, fmt.Errorf("%w: record %s missing from series %s",
				core.ErrIntegrity, rec.ID, *rec.SeriesID)
		}
		ids := make([]string, 0, len(members)-pos)
		for _, m := range members[pos:] {
			ids = append(ids, m.ID)
		}
		return ids, nil
	}

	return nil, fmt.Errorf("%w: unknown delete mode %q", core.ErrValidation, mode)
}
