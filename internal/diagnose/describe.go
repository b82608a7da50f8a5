package diagnose

import (
	"errors"

	"xray-ip-diag/internal/link"
	"xray-ip-diag/internal/xray"
)

func (r *Runner) describeLink(raw string, outbound *xray.OutboundConfig) {
	server := outbound.Server()
	r.reporter.Success("Parsed")
	r.reporter.Detail("Protocol: VLESS")
	r.reporter.Detail("Server:   %s:%d", server.Address, server.Port)
	r.reporter.Detail("Network:  %s, security: %s",
		outbound.StreamSettings.Network, outbound.StreamSettings.Security)

	if remark := link.Remark(raw); remark != "" {
		r.reporter.Detail("Remark:   %s", remark)
	}

	if id := server.Users[0].ID; !link.IsCanonicalID(id) {
		r.reporter.Warning("User id %q is not a canonical UUID, xray will derive one from it", id)
	}
}

func (r *Runner) describeLaunchFailure(err error) {
	var failure *xray.LaunchFailure
	if !errors.As(err, &failure) {
		return
	}

	r.reporter.Failure("xray did not start (exit code %d)", failure.ExitCode)
	if failure.Stderr != "" {
		r.reporter.Detail("STDERR: %s", failure.Stderr)
	}
	if failure.Stdout != "" {
		r.reporter.Detail("STDOUT: %s", failure.Stdout)
	}

	rerun := failure.Rerun
	if rerun == nil {
		return
	}

	r.reporter.Blank()
	r.reporter.Warning("Running xray again in the foreground for debugging...")
	switch {
	case rerun.Blocked:
		r.reporter.Warning("xray stays up when re-run, the first launch failure may be transient")
	case rerun.Err != nil:
		r.reporter.Detail("Debug run failed: %v", rerun.Err)
	default:
		r.reporter.Detail("Return code: %d", rerun.ExitCode)
		if rerun.Stderr != "" {
			r.reporter.Detail("Error output: %s", rerun.Stderr)
		}
	}
}
