package metrics

import "time"

// ErrorKind classifies why a request failed.
type ErrorKind string

const (
	ErrorKindNone       ErrorKind = ""
	ErrorKindConnection ErrorKind = "connection"
	ErrorKindTimeout    ErrorKind = "timeout"
	ErrorKindStatus     ErrorKind = "status"
	ErrorKindRequest    ErrorKind = "request"
	ErrorKindCanceled   ErrorKind = "canceled"
)

// Outcome is the immutable record of one issued request.
type Outcome struct {
	StartedAt  time.Time
	Latency    time.Duration
	Succeeded  bool
	Kind       ErrorKind
	StatusCode int
	Err        error
}

// Success builds a successful outcome.
func Success(started time.Time, latency time.Duration, status int) Outcome {
	return Outcome{
		StartedAt:  started,
		Latency:    clampLatency(latency),
		Succeeded:  true,
		StatusCode: status,
	}
}

// Failure builds a failed outcome. An empty kind is recorded as ErrorKindRequest.
func Failure(started time.Time, latency time.Duration, kind ErrorKind, status int, err error) Outcome {
	if kind == ErrorKindNone {
		kind = ErrorKindRequest
	}
	return Outcome{
		StartedAt:  started,
		Latency:    clampLatency(latency),
		Kind:       kind,
		StatusCode: status,
		Err:        err,
	}
}

func clampLatency(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
