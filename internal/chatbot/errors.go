package chatbot

import (
	"errors"
	"fmt"
	"net/http"
)

// GatewayError is a failed outbound send for one handler's reply. It aborts
// only that handler's pipeline.
type GatewayError struct {
	Handler string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("handler %s: send reply: %v", e.Handler, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// StatusCode maps a failed send to 502 for the HTTP layer.
func (e *GatewayError) StatusCode() int { return http.StatusBadGateway }

// HandlerError is a failure inside a handler's own hooks: an error returned by
// BuildMessage or a panic in any phase.
type HandlerError struct {
	Handler string
	Phase   string
	Err     error
	Panic   any
}

func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("handler %s: panic in %s: %v", e.Handler, e.Phase, e.Panic)
	}
	return fmt.Sprintf("handler %s: %s: %v", e.Handler, e.Phase, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// IsGatewayError reports whether err is or wraps a *GatewayError.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

// IsHandlerFailure reports whether err is or wraps a *HandlerError.
func IsHandlerFailure(err error) bool {
	var he *HandlerError
	return errors.As(err, &he)
}
