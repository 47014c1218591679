package xtream

import (
	"errors"
	"strconv"
)

// ErrInvalidServer marks responses that don't look like an Xtream panel at
// all (non-2xx auth responses, unparseable bodies).
var ErrInvalidServer = errors.New("invalid server")

// AuthError reports a recognized account whose status is not "Active".
type AuthError struct {
	Status string
}

func (e *AuthError) Error() string {
	return "account status: " + e.Status
}

// StatusError is a non-2xx HTTP response from the panel.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "unexpected status: " + strconv.Itoa(e.Code)
}
