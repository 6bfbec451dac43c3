// Package servererrors defines the error taxonomy shared by the ledger,
// billing store and external gateways. Handlers translate these into HTTP
// statuses with errors.As.
package servererrors

import "fmt"

// ValidationError reports bad input shape or range.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidation builds a ValidationError with a formatted message.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an identifier that did not resolve.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return "Cannot find " + e.Resource }

// InsufficientStockError reports a sell that would drive remaining quantity
// negative.
type InsufficientStockError struct {
	ItemID    string
	Requested int64
	Remaining int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock: requested %d, remaining %d", e.Requested, e.Remaining)
}

// ExternalServiceError reports an unreachable or failing external
// collaborator. It never affects ledger state.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	if e.Err != nil {
		return e.Service + " unavailable: " + e.Err.Error()
	}
	return e.Service + " unavailable"
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
