package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlErrDeadlock        = 1213
	mysqlErrLockWaitTimeout = 1205
)

// Machine codes for booking failures. Controllers echo them in the "code" field.
const (
	CodeRoomNotFound          = "ROOM_NOT_FOUND"
	CodeBookingNotFound       = "BOOKING_NOT_FOUND"
	CodePaymentNotFound       = "PAYMENT_NOT_FOUND"
	CodeCapacityExceeded      = "CAPACITY_EXCEEDED"
	CodeDateRangeInvalid      = "DATE_RANGE_INVALID"
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	CodeRoomUnavailable       = "ROOM_UNAVAILABLE"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeAlreadyCancelled      = "ALREADY_CANCELLED"
	CodeGatewayError          = "GATEWAY_ERROR"
	CodeDeadlock              = "DEADLOCK"
	CodeValidation            = "VALIDATION_ERROR"
	CodeInternal              = "INTERNAL_ERROR"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Code    string
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

// NewDateRangeError reports an unusable stay window (inverted, in the past, too long).
func NewDateRangeError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Code:    CodeDateRangeInvalid,
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Code    string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Code: "NOT_FOUND", Message: message}
}

func NewRoomNotFoundError(roomID uint64) *NotFoundError {
	return &NotFoundError{Code: CodeRoomNotFound, Message: fmt.Sprintf("room with id %d not found", roomID)}
}

func NewBookingNotFoundError(bookingID uint64) *NotFoundError {
	return &NotFoundError{Code: CodeBookingNotFound, Message: fmt.Sprintf("booking with id %d not found", bookingID)}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if stderrors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

// ConflictError covers requests that are well formed but clash with current state:
// capacity, inventory, lifecycle edges and repeated cancellation.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(code, message string) *ConflictError {
	return &ConflictError{Code: code, Message: message}
}

func NewCapacityExceededError(guests, limit int) *ConflictError {
	return &ConflictError{
		Code:    CodeCapacityExceeded,
		Message: fmt.Sprintf("%d guests exceed room capacity of %d", guests, limit),
	}
}

func NewInsufficientInventoryError(requested, free int) *ConflictError {
	return &ConflictError{
		Code:    CodeInsufficientInventory,
		Message: fmt.Sprintf("requested %d units but only %d available", requested, free),
	}
}

func NewInvalidTransitionError(from, to string) *ConflictError {
	return &ConflictError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition booking from %s to %s", from, to),
	}
}

func NewAlreadyCancelledError(bookingID uint64) *ConflictError {
	return &ConflictError{
		Code:    CodeAlreadyCancelled,
		Message: fmt.Sprintf("booking %d is already cancelled", bookingID),
	}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type ForbiddenError struct {
	Code    string
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Code: CodeUnauthorized, Message: message}
}

func IsForbiddenError(err error) (*ForbiddenError, bool) {
	var fe *ForbiddenError
	if stderrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

type DeadlockError struct {
	Message string
}

func (e *DeadlockError) Error() string {
	return e.Message
}

func NewDeadlockError(message string) *DeadlockError {
	return &DeadlockError{Message: message}
}

func IsDeadlockError(err error) (*DeadlockError, bool) {
	var de *DeadlockError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsLockConflict reports whether err is a MySQL deadlock or lock wait timeout,
// both of which are worth retrying.
func IsLockConflict(err error) bool {
	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDeadlock || mysqlErr.Number == mysqlErrLockWaitTimeout
	}
	return false
}

// GatewayError wraps a failure of the external payment provider.
type GatewayError struct {
	Operation string
	Cause     error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("payment gateway %s failed: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("payment gateway %s failed", e.Operation)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

func NewGatewayError(operation string, cause error) *GatewayError {
	return &GatewayError{Operation: operation, Cause: cause}
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if stderrors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}

// Code returns the machine code carried by err, or CodeInternal.
func Code(err error) string {
	if ve, ok := IsValidationError(err); ok {
		return ve.Code
	}
	if nfe, ok := IsNotFoundError(err); ok {
		return nfe.Code
	}
	if ce, ok := IsConflictError(err); ok {
		return ce.Code
	}
	if fe, ok := IsForbiddenError(err); ok {
		return fe.Code
	}
	if _, ok := IsDeadlockError(err); ok {
		return CodeDeadlock
	}
	if _, ok := IsGatewayError(err); ok {
		return CodeGatewayError
	}
	return CodeInternal
}
