package domain

import "time"

// EventProxy is the name of the event emitted around every call.
const EventProxy = "proxy"

// Event is the instrumentation record of one HTTP call.
type Event struct {
	Name          string
	URL           string
	ResourceClass string
	AppID         string
	RequestID     string
	Fake          bool

	StatusCode int
	Duration   time.Duration
	// Err is set when the call failed; a status >= 400 is not an Err.
	Err error
}

// Outcome labels the event for metrics: the status code, or "error"
// when the call produced no response.
func (e Event) Outcome() string {
	if e.StatusCode == 0 {
		return "error"
	}
	return statusClass(e.StatusCode)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
