package process

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type supervisorState int32

const (
	supervisorArmed supervisorState = iota
	supervisorFired
	supervisorDisarmed
)

// supervisor races a deadline (and the caller's context) against natural
// process exit. A single CAS on state decides the winner, so escalation runs
// at most once no matter how the goroutines are scheduled.
type supervisor struct {
	h     *Handle
	state atomic.Int32

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// Written by the supervisor goroutine before done is closed.
	cause         error
	escalationErr error
}

func arm(ctx context.Context, h *Handle, timeout, grace, killWait time.Duration) *supervisor {
	s := &supervisor{
		h:    h,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.state.Store(int32(supervisorArmed))
	go s.run(ctx, timeout, grace, killWait)
	return s
}

func (s *supervisor) run(ctx context.Context, timeout, grace, killWait time.Duration) {
	defer close(s.done)

	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	var cause error
	select {
	case <-s.h.Done():
		s.disarmState()
		return
	case <-s.stop:
		s.disarmState()
		return
	case <-deadline:
		cause = context.DeadlineExceeded
	case <-ctx.Done():
		cause = ctx.Err()
	}

	// Natural exit wins a tie with the deadline.
	if _, exited := s.h.Poll(); exited {
		s.disarmState()
		return
	}
	if !s.state.CompareAndSwap(int32(supervisorArmed), int32(supervisorFired)) {
		return
	}
	s.cause = cause
	s.h.log.Debug("deadline reached, terminating process")
	s.escalationErr = s.h.Terminate(grace, killWait)
}

func (s *supervisor) disarmState() {
	s.state.CompareAndSwap(int32(supervisorArmed), int32(supervisorDisarmed))
}

// disarm stops the supervisor if it has not fired and waits for its
// goroutine to finish, including any escalation in progress.
func (s *supervisor) disarm() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *supervisor) fired() bool {
	return supervisorState(s.state.Load()) == supervisorFired
}
