/*
errors.go - Centralized error types for the ledger and statistics engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps them to status codes with the helpers at the bottom.

ERROR CATEGORIES:
  1. Input errors - Malformed requests or movements (safe to retry after fixing)
  2. Consistency errors - The ledger itself is invalid at some point of the
     replay (missing unit cost, insufficient stock). Fatal to the computation;
     retrying without fixing the data reproduces the failure.
  3. Store errors - Persistence failures (safe to retry)

SEE ALSO:
  - validate.go: Produces InputError
  - stats/replay.go: Produces ConsistencyError
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrYearRequired is returned when a statistics query has no year.
	ErrYearRequired = errors.New(`parameter "year" is required`)

	// ErrUnknownKind is returned when a movement kind is not one of the four kinds.
	ErrUnknownKind = errors.New("unknown movement kind")

	// ErrInvalidMovement is returned when a movement fails input validation.
	ErrInvalidMovement = errors.New("invalid movement")

	// ErrLedgerInconsistent is returned when replay finds a movement that
	// moves stock without an established cost or beyond the available quantity.
	ErrLedgerInconsistent = errors.New("ledger inconsistent")

	// ErrMovementNotFound is returned when a referenced movement doesn't exist.
	ErrMovementNotFound = errors.New("movement not found")

	// ErrProductNotFound is returned when a referenced product doesn't exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrStoreNotFound is returned when a referenced store doesn't exist.
	ErrStoreNotFound = errors.New("store not found")

	// ErrNeighborhoodNotFound is returned when a referenced neighborhood doesn't exist.
	ErrNeighborhoodNotFound = errors.New("neighborhood not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InputError describes a movement that failed validation.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidMovement
}

func inputErr(field, format string, args ...any) *InputError {
	return &InputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConsistencyError identifies the first movement line that could not be
// valued during replay.
type ConsistencyError struct {
	Kind        Kind
	ProductID   ProductID
	StoreID     StoreID // empty when the check was against owned stock
	Date        TimePoint
	Available   decimal.Decimal
	Requested   decimal.Decimal
	MissingCost bool
}

func (e *ConsistencyError) Error() string {
	reason := fmt.Sprintf("insufficient stock (available %s, requested %s)", e.Available, e.Requested)
	if e.MissingCost {
		reason = "no unit cost established"
	}
	where := ""
	if e.StoreID != "" {
		where = fmt.Sprintf(", store=%s", e.StoreID)
	}
	return fmt.Sprintf("invalid %s: product=%s%s, date=%s: %s", e.Kind, e.ProductID, where, e.Date, reason)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrLedgerInconsistent
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrYearRequired) ||
		errors.Is(err, ErrInvalidMovement) ||
		errors.Is(err, ErrUnknownKind)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMovementNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrStoreNotFound) ||
		errors.Is(err, ErrNeighborhoodNotFound)
}

// IsInconsistent returns true if the error comes from ledger replay.
func IsInconsistent(err error) bool {
	return errors.Is(err, ErrLedgerInconsistent)
}
