//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func configureGroup(c *exec.Cmd, group bool) {
	if group {
		c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
}

func groupID(pid int, group bool) int {
	if !group {
		return 0
	}
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		// Setpgid with Pgid 0 makes the child its own group leader.
		return pid
	}
	return pgid
}

func (h *Handle) sendTerm() error { return h.signal(unix.SIGTERM) }

func (h *Handle) sendKill() error { return h.signal(unix.SIGKILL) }

func (h *Handle) signal(sig syscall.Signal) error {
	if h.group && h.pgid > 0 {
		if err := unix.Kill(-h.pgid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("signal process group %d: %w", h.pgid, err)
		}
		return nil
	}
	if err := h.cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal process %d: %w", h.pid, err)
	}
	return nil
}

// groupGone reports whether no live member of the process group is left.
// It is always true without group semantics.
func (h *Handle) groupGone() bool {
	return !h.group || h.pgid <= 0 || !groupAlive(h.pgid)
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return state.ExitCode()
}
