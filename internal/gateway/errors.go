package gateway

import (
	"errors"
	"fmt"
)

// Error is a failed outbound send: transport failure or a non-2xx reply.
type Error struct {
	App        string
	StatusCode int    // 0 on transport failure
	Code       string // remote error code, if any
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("gateway send for app %s: %v", e.App, e.Err)
	case e.Code != "":
		return fmt.Sprintf("gateway send for app %s: status %d: %s: %s", e.App, e.StatusCode, e.Code, e.Message)
	default:
		return fmt.Sprintf("gateway send for app %s: status %d", e.App, e.StatusCode)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsGatewayError reports whether err is or wraps an *Error.
func IsGatewayError(err error) bool {
	var ge *Error
	return errors.As(err, &ge)
}
