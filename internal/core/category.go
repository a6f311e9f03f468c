package core

import "fmt"

// Category is a display label for grouping records. Records reference
// categories by name only; the ledger core treats the name as opaque
// and never assumes the category still exists.
type Category struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"type"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (c *Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: missing category name", ErrValidation)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: category type must be income or expense", ErrValidation)
	}
	return nil
}
