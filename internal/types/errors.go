package types

import "errors"

// Sentinel errors shared by services and mapped to HTTP status codes by the api package.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
	ErrUnauthenticated    = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrProductUnavailable = errors.New("product is not available")
	ErrOwnProduct         = errors.New("cannot buy your own product")
)

// Response is the generic success envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
