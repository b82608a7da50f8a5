package domain

import (
	"time"
)

// NotAvailable is reported for geolocation fields missing from a response.
const NotAvailable = "N/A"

type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureBadStatus     FailureKind = "bad_status"
	FailureBadBody       FailureKind = "bad_body"
	FailureProxyRejected FailureKind = "proxy_rejected"
	FailureTimeout       FailureKind = "timeout"
	FailureConnection    FailureKind = "connection"
	FailureUnclassified  FailureKind = "unclassified"
)

type Endpoint struct {
	Name string
	URL  string
}

type ProbeAttempt struct {
	Endpoint   Endpoint
	StatusCode int
	Failure    FailureKind
	// ErrorType is the Go type of the underlying error for unclassified failures.
	ErrorType string
	Message   string
	Duration  time.Duration
}

func (a ProbeAttempt) Succeeded() bool {
	return a.Failure == FailureNone
}

type GeoInfo struct {
	IP       string
	Country  string
	City     string
	ISP      string
	Timezone string
}

type ProbeResult struct {
	Success    bool
	Proxied    bool
	StatusCode int
	Endpoint   Endpoint
	Geo        GeoInfo
	Attempts   []ProbeAttempt
}

type StopMethod string

const (
	StopNotStarted StopMethod = ""
	StopExited     StopMethod = "already_exited"
	StopGraceful   StopMethod = "graceful"
	StopForced     StopMethod = "forced"
)

// Diagnosis is the outcome of a single diagnostic run
type Diagnosis struct {
	Success    bool
	FailedStep ErrorKind
	Err        error
	Probe      *ProbeResult
	Stop       StopMethod
	ConfigPath string
	Started    time.Time
	Duration   time.Duration
}

// ProbeObserver is notified around every probe attempt
type ProbeObserver interface {
	AttemptStarted(endpoint Endpoint)
	AttemptFinished(attempt ProbeAttempt)
}
