package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"saldo/internal/core"
)

// DefaultHorizon is the number of instances materialized for a
// recurring template with no end date, regardless of unit.
const DefaultHorizon = 12

// SeriesGenerator materializes the bounded series of dated instances
// belonging to a recurring template. Generation is idempotent: every
// instance is guarded by a (series, date) existence check, so a pass
// that failed partway is completed by simply invoking it again.
type SeriesGenerator struct {
	ledger  Ledger
	horizon int
}

func NewSeriesGenerator(ledger Ledger, horizon int) *SeriesGenerator {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &SeriesGenerator{ledger: ledger, horizon: horizon}
}

// Generate expands template into its full series. The template itself
// becomes instance 1 of N: its description gains the "1/N" suffix, the
// recurring flag is cleared and its series reference is set to its own
// id. Instances 2..N are created at the advanced dates unless a record
// already exists for that (series, date) pair.
//
// The returned slice holds the records written during this pass, date
// ascending. A second invocation against the same state writes nothing
// new and returns a subset of the first pass's result.
func (g *SeriesGenerator) Generate(ctx context.Context, template core.Record) ([]core.Record, error) {
	if err := validateTemplate(&template); err != nil {
		return nil, err
	}

	n := g.instanceCount(&template)
	origDesc := baseDescription(template.Description, n)

	var written []core.Record

	// Relabel the root exactly once; a root already carrying its series
	// reference was expanded before and keeps its description.
	if !template.InSeries() {
		template.Description = fmt.Sprintf("%s 1/%d", origDesc, n)
		template.IsRecurring = false
		sid := template.ID
		template.SeriesID = &sid

		existing, err := g.ledger.FindByID(ctx, template.ID)
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", template.ID, err)
		}
		if existing == nil {
			if err := g.ledger.Insert(ctx, template); err != nil {
				return nil, fmt.Errorf("persist series root: %w", err)
			}
		} else if _, err := g.ledger.Update(ctx, template); err != nil {
			return nil, fmt.Errorf("relabel series root: %w", err)
		}
		written = append(written, template)
	}

	cursor := template.Date
	for i := 2; i <= n; i++ {
		cursor = cursor.Advance(template.RecurrenceUnit, template.RecurrenceInterval)

		existing, err := g.ledger.FindBySeriesAndDate(ctx, template.ID, cursor)
		if err != nil {
			return nil, fmt.Errorf("check instance %d: %w", i, err)
		}
		if existing != nil {
			// Already materialized by an earlier pass; keep advancing.
			continue
		}

		instance := core.Record{
			ID:          newID(),
			Kind:        template.Kind,
			Amount:      template.Amount,
			Description: fmt.Sprintf("%s %d/%d", origDesc, i, n),
			Category:    template.Category,
			Date:        cursor,
			SeriesID:    &template.ID,
		}
		if err := g.ledger.Insert(ctx, instance); err != nil {
			return written, fmt.Errorf("persist instance %d/%d: %w", i, n, err)
		}
		written = append(written, instance)
	}

	sort.SliceStable(written, func(a, b int) bool {
		return written[a].Date.Before(written[b].Date)
	})

	slog.InfoContext(ctx, "Series materialized",
		"series_id", template.ID,
		"instances", n,
		"written", len(written),
		"unit", template.RecurrenceUnit,
		"interval", template.RecurrenceInterval)

	return written, nil
}

// GenerateDue scans for still-unexpanded templates whose series has
// not ended as of asOf and expands each one. This is the bulk catch-up
// entry point invoked by the recurring worker.
func (g *SeriesGenerator) GenerateDue(ctx context.Context, asOf core.Date) ([]core.Record, error) {
	templates, err := g.ledger.FindDueTemplates(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("find due templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing due recurring templates",
		"total_due", len(templates),
		"as_of", asOf.String())

	var all []core.Record
	for _, tpl := range templates {
		written, err := g.Generate(ctx, tpl)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize series",
				"template_id", tpl.ID,
				"description", tpl.Description,
				"error", err)
			continue
		}
		all = append(all, written...)
	}
	return all, nil
}

// instanceCount determines N: the fixed horizon when there is no end
// date, otherwise the whole months spanned up to the end date divided
// by the interval, rounded up, with a floor of one.
func (g *SeriesGenerator) instanceCount(template *core.Record) int {
	if template.RecurrenceEndDate == nil {
		return g.horizon
	}
	months := core.MonthsBetween(template.Date, *template.RecurrenceEndDate)
	n := (months + template.RecurrenceInterval - 1) / template.RecurrenceInterval
	if n < 1 {
		n = 1
	}
	return n
}

func validateTemplate(template *core.Record) error {
	if template.ID == "" {
		return fmt.Errorf("%w: template has no id", core.ErrValidation)
	}
	if !template.IsRecurring && !template.InSeries() {
		return fmt.Errorf("%w: record is not a recurring template", core.ErrValidation)
	}
	if !template.RecurrenceUnit.Valid() {
		return fmt.Errorf("%w: unknown recurrence unit %q", core.ErrValidation, template.RecurrenceUnit)
	}
	if template.RecurrenceInterval < 1 {
		return fmt.Errorf("%w: recurrence interval must be at least 1", core.ErrValidation)
	}
	if template.Date.IsZero() {
		return fmt.Errorf("%w: template has no start date", core.ErrValidation)
	}
	return nil
}

// baseDescription strips the "1/N" suffix a previously relabeled root
// carries, so resumed passes number new instances consistently.
func baseDescription(desc string, n int) string {
	return strings.TrimSuffix(desc, fmt.Sprintf(" 1/%d", n))
}
