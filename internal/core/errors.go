package core

import "errors"

// Error taxonomy shared across the ledger. Validation failures are
// rejected before any store mutation; integrity failures abort the
// operation with nothing deleted.
var (
	ErrInvalidAmount = errors.New("amount must be a positive decimal")
	ErrValidation    = errors.New("invalid record")
	ErrNotFound      = errors.New("record not found")
	ErrIntegrity     = errors.New("series integrity violation")
)
