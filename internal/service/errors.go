package service

import (
	"errors"
	"net/http"
)

// appNotFoundError is returned for callbacks addressed to an unknown app key.
type appNotFoundError struct{ key string }

func (e appNotFoundError) Error() string   { return "app not found: " + e.key }
func (e appNotFoundError) StatusCode() int { return http.StatusNotFound }

func ErrAppNotFound(key string) error { return appNotFoundError{key: key} }

// IsAppNotFound reports whether err indicates an unknown app key.
func IsAppNotFound(err error) bool {
	var e appNotFoundError
	return errors.As(err, &e)
}

// drainingError signals that the service stopped accepting work.
type drainingError struct{}

func (drainingError) Error() string   { return "service is shutting down" }
func (drainingError) StatusCode() int { return http.StatusServiceUnavailable }

// IsDraining reports whether err was returned because the service is closing.
func IsDraining(err error) bool {
	var e drainingError
	return errors.As(err, &e)
}

// deliveryError wraps a reply that could not be delivered by the gateway.
type deliveryError struct{ err error }

func (e deliveryError) Error() string   { return "reply delivery failed: " + e.err.Error() }
func (e deliveryError) Unwrap() error   { return e.err }
func (e deliveryError) StatusCode() int { return http.StatusBadGateway }

// IsDeliveryFailed reports whether a robot reply could not be sent.
func IsDeliveryFailed(err error) bool {
	var e deliveryError
	return errors.As(err, &e)
}
