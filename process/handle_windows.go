//go:build windows

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

func configureGroup(c *exec.Cmd, group bool) {
	if group {
		c.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
	}
}

func groupID(pid int, group bool) int {
	if group {
		return pid
	}
	return 0
}

// sendTerm asks politely; most Windows programs ignore it, which the grace
// period then absorbs before Kill.
func (h *Handle) sendTerm() error {
	_ = h.cmd.Process.Signal(os.Interrupt)
	return nil
}

func (h *Handle) sendKill() error {
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %d: %w", h.pid, err)
	}
	return nil
}

// groupGone is always true: Windows process groups only route console
// signals, so the leader is the whole tree Terminate can track.
func (h *Handle) groupGone() bool { return true }

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	return state.ExitCode()
}
