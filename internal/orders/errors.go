package orders

import (
	"fmt"
)

// ParseError is returned when a required field was found but its contents are not
// in the expected format.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("parse %s: missing value", e.Field)
	}
	return fmt.Sprintf("parse %s: unexpected format (%s)", e.Field, e.Value)
}

// LookupError is returned when a required element could not be located.
type LookupError struct {
	Field   string
	Locator string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s (%s): %v", e.Field, e.Locator, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// OrderError attaches the location of a failing order group to the underlying
// ParseError or LookupError.
type OrderError struct {
	// Index is the 0-based position of the order group on its page.
	Index int
	Page  string
	Err   error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %d on %s: %v", e.Index+1, e.Page, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NavigationError is returned when pagination could not advance.
type NavigationError struct {
	Address string
	Err     error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to next page (%s): %v", e.Address, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
