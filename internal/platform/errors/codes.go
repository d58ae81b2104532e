// Package errors provides structured error handling with machine-readable codes.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Marshalling errors
	CodeInvalidAmount Code = "INVALID_AMOUNT"

	// Token directory errors
	CodeTokenLookupFailed Code = "TOKEN_LOOKUP_FAILED"

	// Employee errors
	CodeEmployeeFetchFailed Code = "EMPLOYEE_FETCH_FAILED"
	CodeEmployeeEmptyID     Code = "EMPLOYEE_EMPTY_ID"

	// Ledger read-service errors
	CodeTransportError Code = "TRANSPORT_ERROR"
	CodeNotInitialized Code = "NOT_INITIALIZED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes for the read API.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad input on the wire
	case CodeInvalidAmount,
		CodeEmployeeEmptyID:
		return http.StatusBadRequest

	// Upstream dependency failures
	case CodeTokenLookupFailed,
		CodeEmployeeFetchFailed,
		CodeTransportError:
		return http.StatusBadGateway

	// State not ready yet
	case CodeNotInitialized:
		return http.StatusServiceUnavailable

	case CodeNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
