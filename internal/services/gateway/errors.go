package gateway

import "fmt"

// GatewayError is an upstream failure. Message carries the provider's
// message when one was returned.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("freemopay %s: %d %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("freemopay %s: %s", e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }
