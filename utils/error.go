package utils

import (
	"errors"
	"fmt"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorVersionConflict is returned inside a guarded mutation when the parent
// aggregate changed underneath. It never leaves the guard: callers see a
// Conflict BusinessError once the retries are exhausted.
var ErrorVersionConflict = errors.New("aggregate version changed")

type ErrorKind string

const (
	ErrorKindValidation         ErrorKind = "ValidationError"
	ErrorKindNotFound           ErrorKind = "NotFound"
	ErrorKindAllocationNotFound ErrorKind = "AllocationNotFound"
	ErrorKindBudgetExceeded     ErrorKind = "BudgetExceeded"
	ErrorKindProgressExceeded   ErrorKind = "ProgressExceeded"
	ErrorKindDuplicateKey       ErrorKind = "DuplicateKey"
	ErrorKindConflict           ErrorKind = "Conflict"
	ErrorKindInUse              ErrorKind = "InUse"
	ErrorKindInvalidTransition  ErrorKind = "InvalidTransition"
)

// BusinessError carries enough detail for the client to render a precise message.
// Current/Proposed/Ceiling are only set for the running-total kinds.
type BusinessError struct {
	Kind     ErrorKind        `json:"kind"`
	Field    string           `json:"field,omitempty"`
	Message  string           `json:"message"`
	Current  *decimal.Decimal `json:"current,omitempty"`
	Proposed *decimal.Decimal `json:"proposed,omitempty"`
	Ceiling  *decimal.Decimal `json:"ceiling,omitempty"`
}

func (e *BusinessError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, ErrorRecordNotFound) keep working for NotFound errors.
func (e *BusinessError) Is(target error) bool {
	return target == ErrorRecordNotFound && (e.Kind == ErrorKindNotFound || e.Kind == ErrorKindAllocationNotFound)
}

func NewValidationError(field string, message string) *BusinessError {
	return &BusinessError{Kind: ErrorKindValidation, Field: field, Message: message}
}

func NewRequiredError(field string) *BusinessError {
	return &BusinessError{Kind: ErrorKindValidation, Field: field, Message: field + " is required"}
}

func NewNotFoundError(entity string, id interface{}) *BusinessError {
	return &BusinessError{Kind: ErrorKindNotFound, Field: entity, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// NewAllocationNotFoundError reports a package pointing at an account code the ledger has no allocation for.
func NewAllocationNotFoundError(anggaranId int, kodeRekeningId int) *BusinessError {
	return &BusinessError{
		Kind:    ErrorKindAllocationNotFound,
		Field:   "kode_rekening_id",
		Message: fmt.Sprintf("anggaran %d has no allocation for kode rekening %d", anggaranId, kodeRekeningId),
	}
}

// NewBudgetExceededError reports current + proposed > ceiling.
func NewBudgetExceededError(field string, current, proposed, ceiling decimal.Decimal) *BusinessError {
	total := current.Add(proposed)
	return &BusinessError{
		Kind:     ErrorKindBudgetExceeded,
		Field:    field,
		Message:  fmt.Sprintf("total %s exceeds ceiling %s", total.String(), ceiling.String()),
		Current:  &current,
		Proposed: &proposed,
		Ceiling:  &ceiling,
	}
}

func NewProgressExceededError(current, proposed decimal.Decimal) *BusinessError {
	ceiling := decimal.NewFromInt(100)
	total := current.Add(proposed)
	return &BusinessError{
		Kind:     ErrorKindProgressExceeded,
		Field:    "progress_pct",
		Message:  fmt.Sprintf("progress %s%% exceeds 100%%", total.String()),
		Current:  &current,
		Proposed: &proposed,
		Ceiling:  &ceiling,
	}
}

func NewDuplicateKeyError(field string, value interface{}) *BusinessError {
	return &BusinessError{Kind: ErrorKindDuplicateKey, Field: field, Message: fmt.Sprintf("duplicate %s %v", field, value)}
}

func NewConflictError(entity string, id interface{}) *BusinessError {
	return &BusinessError{Kind: ErrorKindConflict, Field: entity, Message: fmt.Sprintf("%s %v was modified concurrently, retry later", entity, id)}
}

func NewInUseError(entity string, dependent string) *BusinessError {
	return &BusinessError{Kind: ErrorKindInUse, Field: entity, Message: fmt.Sprintf("%s is still referenced by %s", entity, dependent)}
}

func NewInvalidTransitionError(from string, to string) *BusinessError {
	return &BusinessError{Kind: ErrorKindInvalidTransition, Field: "status", Message: fmt.Sprintf("cannot move from %s to %s", from, to)}
}

// AsBusinessError unwraps err into a *BusinessError if it is one.
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

func IsErrorKind(err error, kind ErrorKind) bool {
	be, ok := AsBusinessError(err)
	return ok && be.Kind == kind
}

// IsDuplicateKeyErr recognizes unique violations from mysql (1062), postgres (23505) and sqlite.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
