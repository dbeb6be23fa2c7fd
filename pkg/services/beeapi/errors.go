package beeapi

import (
	"fmt"
	"net/http"
)

// AuthError means the API key is missing or was rejected.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return "api key is missing"
	}
	return fmt.Sprintf("api key rejected: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// NetworkError wraps a transport failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network failure: %s", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError is a non-2xx answer carrying the server's message.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if len(e.Message) == 0 {
		return fmt.Sprintf("remote error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("remote error: %d %s", e.StatusCode, e.Message)
}
