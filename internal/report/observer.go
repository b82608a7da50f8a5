package report

import (
	"time"

	"xray-ip-diag/internal/domain"
)

// AttemptStarted implements domain.ProbeObserver.
func (r *Reporter) AttemptStarted(endpoint domain.Endpoint) {
	r.Blank()
	r.Info("Trying %s...", endpoint.Name)
	r.Detail("-> sending request")
}

// AttemptFinished implements domain.ProbeObserver.
func (r *Reporter) AttemptFinished(attempt domain.ProbeAttempt) {
	if attempt.StatusCode != 0 {
		r.Detail("-> status: %d", attempt.StatusCode)
	}

	switch attempt.Failure {
	case domain.FailureNone:
		r.Detail("-> JSON received in %s", attempt.Duration.Round(time.Millisecond))
	case domain.FailureBadStatus:
		r.Failure("HTTP %d", attempt.StatusCode)
		r.Detail("Response: %s", attempt.Message)
	case domain.FailureBadBody:
		r.Failure("Response is not a JSON document")
		r.Detail("Details: %s", attempt.Message)
	case domain.FailureProxyRejected:
		r.Failure("PROXY ERROR - check the VLESS configuration")
		r.Warning("Make sure that:")
		r.Detail("  - the UUID is correct")
		r.Detail("  - the server address is correct")
		r.Detail("  - the port is open on the server")
	case domain.FailureTimeout:
		r.Failure("TIMEOUT - the server does not respond")
		r.Warning("Check:")
		r.Detail("  - is the host address correct?")
		r.Detail("  - is the internet connection up?")
	case domain.FailureConnection:
		r.Failure("CONNECTION ERROR")
		r.Detail("Details: %s", attempt.Message)
	default:
		r.Failure("UNKNOWN ERROR")
		r.Detail("Type: %s", attempt.ErrorType)
		r.Detail("Message: %s", attempt.Message)
	}
}
