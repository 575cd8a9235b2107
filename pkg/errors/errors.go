package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable machine readable identifier sent as error.code.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeEmptyOrder        Code = "EMPTY_ORDER"
	CodeOutOfStock        Code = "OUT_OF_STOCK"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeInvalidSignature  Code = "INVALID_SIGNATURE"
	CodeUpstream          Code = "UPSTREAM_ERROR"
	CodePayloadTooLarge   Code = "PAYLOAD_TOO_LARGE"
)

// Metadata drives how a Code is rendered over HTTP.
type Metadata struct {
	HTTPStatus    int
	PublicMessage string
	// ExposeMessage lets the error's own message replace PublicMessage.
	ExposeMessage bool
	// DetailsAllowed lets WithDetails payloads reach the client.
	DetailsAllowed bool
}

const (
	showMessage = true
	hideMessage = false
	showDetails = true
	hideDetails = false
)

func meta(status int, public string, exposeMessage, detailsAllowed bool) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		ExposeMessage:  exposeMessage,
		DetailsAllowed: detailsAllowed,
	}
}

// Server side failures never leak their message. The cause stays in logs.
var metadataByCode = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, "validation failed", showMessage, showDetails),
	CodeUnauthorized:  meta(http.StatusUnauthorized, "authentication required", showMessage, hideDetails),
	CodeForbidden:     meta(http.StatusForbidden, "access denied", showMessage, hideDetails),
	CodeNotFound:      meta(http.StatusNotFound, "resource not found", showMessage, hideDetails),
	CodeConflict:      meta(http.StatusConflict, "conflict detected", showMessage, hideDetails),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, "state transition disallowed", showMessage, showDetails),
	CodeIdempotency:   meta(http.StatusConflict, "idempotency key reused", showMessage, showDetails),
	CodeRateLimit:     meta(http.StatusTooManyRequests, "rate limit exceeded", showMessage, hideDetails),
	CodeInternal:      meta(http.StatusInternalServerError, "internal server error", hideMessage, hideDetails),
	CodeDependency:    meta(http.StatusServiceUnavailable, "dependency unavailable", hideMessage, showDetails),

	CodeEmptyOrder:        meta(http.StatusBadRequest, "order has no items", showMessage, hideDetails),
	CodeOutOfStock:        meta(http.StatusBadRequest, "product is out of stock", showMessage, showDetails),
	CodeInsufficientStock: meta(http.StatusBadRequest, "insufficient stock", showMessage, showDetails),
	CodeInvalidSignature:  meta(http.StatusBadRequest, "invalid signature", showMessage, hideDetails),
	CodeUpstream:          meta(http.StatusBadGateway, "payment gateway error", hideMessage, hideDetails),
	CodePayloadTooLarge:   meta(http.StatusRequestEntityTooLarge, "request body too large", showMessage, showDetails),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error that services return and handlers render.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches cause for logging; a nil cause behaves like New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether err carries code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
