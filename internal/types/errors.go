package types

import "errors"

// Failure taxonomy for command processing. Errors raised anywhere in the
// batch pipeline wrap exactly one of these sentinels so the boundary can
// categorize them without knowing which layer failed.
var (
	// ErrInvalidMessage marks a malformed payload or a value that fails
	// coercion or range checking for its target.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrUnknownCommand marks an action name that matches no configured
	// coil or holding register.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrTransport marks a fieldbus write that failed at the protocol or
	// connection layer.
	ErrTransport = errors.New("modbus transport error")
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
