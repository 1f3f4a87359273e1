package models

import "net/http"

// Context keys, following the empty-struct key convention.
type UserContext struct{}
type ClientContext struct{}

type RoundTripperFunc func(req *http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
