package process

import (
	"errors"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	goerrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
)

// State is the lifecycle stage of a Handle. Transitions only move forward.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	// StateExited means the process ended on its own.
	StateExited
	// StateEscalated means the process ended after a termination request.
	StateEscalated
	StateReaped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateEscalated:
		return "escalated"
	case StateReaped:
		return "reaped"
	default:
		return "unknown"
	}
}

// killRetryInterval is how often SIGKILL is re-sent while waiting for a
// killed process to disappear.
const killRetryInterval = 100 * time.Millisecond

// treePollInterval is how often group membership is re-checked while the
// leader has already exited.
const treePollInterval = 25 * time.Millisecond

// stdinWaitDelay bounds how long Wait blocks on a stdin copier after the
// process has exited.
const stdinWaitDelay = time.Second

// Handle owns one live OS process and, when started with group semantics,
// its whole process group. It is the only place the process is waited on.
type Handle struct {
	cmd   *exec.Cmd
	pid   int
	pgid  int
	group bool
	log   *logger.Logger

	state     atomic.Int32
	escalated atomic.Bool

	done     chan struct{}
	exitCode int
	waitErr  error
}

// Start spawns cmd with its combined stdout/stderr written to output.
// With group set, the child leads a new process group so that termination
// reaches every descendant that stays in the group.
func Start(cmd Command, output *os.File, group bool) (*Handle, error) {
	if cmd.Binary == "" {
		return nil, goerrors.InvalidInput("binary", "binary is required")
	}

	c := exec.Command(cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	if output != nil {
		c.Stdout = output
		c.Stderr = output
	}
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
		c.WaitDelay = stdinWaitDelay
	}
	configureGroup(c, group)

	if err := c.Start(); err != nil {
		return nil, goerrors.SpawnFailed(cmd.Binary, err)
	}

	h := &Handle{
		cmd:   c,
		pid:   c.Process.Pid,
		group: group,
		log:   logger.WithComponent("process"),
		done:  make(chan struct{}),
	}
	h.pgid = groupID(h.pid, group)
	h.state.Store(int32(StateRunning))

	go h.wait()
	return h, nil
}

func (h *Handle) wait() {
	err := h.cmd.Wait()
	h.exitCode = exitCode(h.cmd.ProcessState)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		h.waitErr = err
	}

	next := StateExited
	if h.escalated.Load() {
		next = StateEscalated
	}
	h.state.CompareAndSwap(int32(StateRunning), int32(next))
	close(h.done)
}

// PID returns the process id of the direct child.
func (h *Handle) PID() int { return h.pid }

// PGID returns the process group id, or 0 without group semantics.
func (h *Handle) PGID() int { return h.pgid }

// State returns the current lifecycle stage.
func (h *Handle) State() State { return State(h.state.Load()) }

// Done is closed once the process has exited and been waited on.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Poll returns the exit code if the process has exited. It never blocks.
func (h *Handle) Poll() (int, bool) {
	select {
	case <-h.done:
		return h.exitCode, true
	default:
		return 0, false
	}
}

// Wait blocks until the process exits or timeout elapses. A timeout of zero
// or less waits indefinitely. exited is false when the timeout won.
func (h *Handle) Wait(timeout time.Duration) (code int, exited bool) {
	if timeout <= 0 {
		<-h.done
		return h.exitCode, true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-h.done:
		return h.exitCode, true
	case <-t.C:
		return 0, false
	}
}

// RequestGracefulStop asks the process (group) to terminate. It is a no-op
// once the process has exited.
func (h *Handle) RequestGracefulStop() error {
	if _, exited := h.Poll(); exited {
		return nil
	}
	h.escalated.Store(true)
	return h.sendTerm()
}

// ForceKill unconditionally kills the process (group). It is a no-op once
// the process has exited.
func (h *Handle) ForceKill() error {
	if _, exited := h.Poll(); exited {
		return nil
	}
	h.escalated.Store(true)
	return h.sendKill()
}

// Terminate runs the escalation protocol: graceful stop, wait up to grace
// for the process and its group to disappear, then SIGKILL repeatedly for
// up to killWait. Grace is a single deadline shared by the whole group. It
// returns a PROCESS_UNKILLABLE error if anything is still alive afterwards
// and does nothing if the process and its group are already gone.
func (h *Handle) Terminate(grace, killWait time.Duration) error {
	if h.treeGone() {
		return nil
	}

	fields := logger.Fields(logger.FieldPID, h.pid, logger.FieldPGID, h.pgid)
	h.log.Debug("requesting graceful stop", fields)
	h.markEscalated()
	if err := h.sendTerm(); err != nil {
		h.log.Warn("graceful stop failed", logger.Fields(logger.FieldPID, h.pid, logger.FieldError, err.Error()))
	}
	if grace > 0 && h.waitTreeGone(grace) {
		return nil
	}

	h.log.Warn("grace period elapsed, killing process", fields)
	deadline := time.Now().Add(killWait)
	var lastErr error
	for {
		h.markEscalated()
		if err := h.sendKill(); err != nil {
			lastErr = err
		}
		if h.waitTreeGone(killRetryInterval) {
			return nil
		}
		if !time.Now().Before(deadline) {
			return goerrors.Unkillable(h.pid, lastErr).WithDetail("pgid", h.pgid)
		}
	}
}

// reapGroup terminates group members that outlived the leader, such as
// backgrounded grandchildren still holding the output pipe.
func (h *Handle) reapGroup(grace, killWait time.Duration) error {
	<-h.done
	if h.treeGone() {
		return nil
	}
	h.log.Debug("terminating leftover process group members", logger.Fields(logger.FieldPGID, h.pgid))
	return h.Terminate(grace, killWait)
}

func (h *Handle) markEscalated() {
	if _, exited := h.Poll(); !exited {
		h.escalated.Store(true)
	}
}

// treeGone reports whether the process has exited and no member of its
// group is left.
func (h *Handle) treeGone() bool {
	if _, exited := h.Poll(); !exited {
		return false
	}
	return h.groupGone()
}

// waitTreeGone polls until treeGone holds or d elapses.
func (h *Handle) waitTreeGone(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if h.treeGone() {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		step := min(remaining, treePollInterval)
		if _, exited := h.Poll(); exited {
			time.Sleep(step)
		} else {
			h.Wait(step)
		}
	}
}

// Reap returns the final exit status, blocking until the process has been
// waited on. The first call moves the handle to StateReaped; later calls
// return the same status.
func (h *Handle) Reap() (int, error) {
	<-h.done
	for {
		cur := h.state.Load()
		if State(cur) == StateReaped || h.state.CompareAndSwap(cur, int32(StateReaped)) {
			break
		}
	}
	return h.exitCode, h.waitErr
}
