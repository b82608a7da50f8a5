//go:build !windows

package xray

import (
	"os"
	"syscall"
)

// sysProcAttr puts the child into its own process group so terminal
// signals reach only this program, which then stops the child itself.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}

func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
