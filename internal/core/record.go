package core

import (
	"fmt"
	"time"
)

// Kind distinguishes income from expense records.
type Kind string

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// Valid reports whether k is a supported record kind.
func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// Record is the single persistent entity of the ledger. A record is
// either a standalone entry, a still-unexpanded recurring template
// (IsRecurring true, SeriesID nil), or one instance of a materialized
// series (SeriesID set; the series root references its own ID).
type Record struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"type"`
	Amount      Money  `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        Date   `json:"date"`

	IsRecurring        bool   `json:"is_recurring"`
	RecurrenceUnit     Unit   `json:"recurring_type,omitempty"`
	RecurrenceInterval int    `json:"recurring_interval,omitempty"`
	RecurrenceEndDate  *Date  `json:"recurring_end_date,omitempty"`
	SeriesID           *string `json:"series_id,omitempty"`

	// Received is meaningful for income only; expenses are always
	// treated as realized.
	Received bool `json:"received"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the record's fields. Recurrence fields are only
// checked while the record is still a template.
func (r *Record) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: type must be income or expense", ErrValidation)
	}
	if r.Amount.Cents <= 0 {
		return fmt.Errorf("%w: %v", ErrValidation, ErrInvalidAmount)
	}
	if r.Description == "" {
		return fmt.Errorf("%w: missing description", ErrValidation)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrValidation)
	}
	if r.IsRecurring {
		if !r.RecurrenceUnit.Valid() {
			return fmt.Errorf("%w: unknown recurrence unit %q", ErrValidation, r.RecurrenceUnit)
		}
		if r.RecurrenceInterval < 1 {
			return fmt.Errorf("%w: recurrence interval must be at least 1", ErrValidation)
		}
		if r.RecurrenceEndDate != nil && r.RecurrenceEndDate.Before(r.Date) {
			return fmt.Errorf("%w: recurrence end date precedes start date", ErrValidation)
		}
	}
	return nil
}

// InSeries reports whether the record belongs to a materialized series.
func (r *Record) InSeries() bool {
	return r.SeriesID != nil && *r.SeriesID != ""
}

// RealizedDelta is the record's contribution to the realized balance:
// positive for received income, negative for expenses, zero for income
// that has not been received yet.
func (r *Record) RealizedDelta() int64 {
	switch r.Kind {
	case Income:
		if r.Received {
			return r.Amount.Cents
		}
		return 0
	case Expense:
		return -r.Amount.Cents
	}
	return 0
}
