//go:build windows

package action

import (
	"os/exec"
	"syscall"
)

const detachedProcess = 0x00000008

// detach starts the child without a console in a new process group so
// Ctrl+C sent to the monitor does not reach it
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
}
