package provider

import (
	"errors"
	"fmt"
)

// Fetch error taxonomy. Providers translate transport and protocol
// failures into these so the poller can decide whether a retry makes
// sense without knowing provider internals.
var (
	// ErrUnauthorized is returned on 401/403 after any in-provider
	// credential refresh has already been attempted.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited is returned on HTTP 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformedResponse is returned when a body cannot be parsed.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnknownAuthIndex is returned when a proxy reports that the
	// configured auth index does not exist.
	ErrUnknownAuthIndex = errors.New("unknown auth index")

	// ErrNetwork marks transport-level failures. Match with errors.Is;
	// the concrete error wraps the underlying cause.
	ErrNetwork = errors.New("network error")
)

// NetworkErr wraps a transport failure so it matches ErrNetwork.
func NetworkErr(err error) error {
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// MalformedErr wraps a parse failure so it matches ErrMalformedResponse.
func MalformedErr(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
}

// StatusErr maps an unexpected HTTP status to the taxonomy.
func StatusErr(code int) error {
	switch code {
	case 401, 403:
		return ErrUnauthorized
	case 429:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: HTTP %d", ErrMalformedResponse, code)
	}
}

// Retryable reports whether an in-tick retry could help. Only transport
// failures qualify; auth, rate-limit and parse failures wait for the
// next scheduled tick.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}
