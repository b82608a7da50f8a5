package domain

import "time"

type MetricsCollector interface {
	RecordStep(step string, status string)
	RecordLaunch(result string)
	RecordProbeAttempt(attempt ProbeAttempt)
	RecordStop(method StopMethod)
	ProbeStats() []EndpointStats
}

// EndpointStats aggregates the probe attempts made against one endpoint.
type EndpointStats struct {
	Endpoint  string
	Attempts  int
	Succeeded int
	Duration  time.Duration
}
