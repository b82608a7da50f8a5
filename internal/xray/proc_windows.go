//go:build windows

package xray

import (
	"os"
	"syscall"
)

const createNoWindow = 0x08000000

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}

// Windows has no SIGTERM for console-less children.
func terminate(p *os.Process) error {
	return p.Kill()
}
