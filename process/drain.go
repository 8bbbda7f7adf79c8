package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	goerrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/logger"
)

// chunkSize is the largest read delivered to sinks in one Write.
const chunkSize = 32 * 1024

type drainConfig struct {
	sinks    []io.Writer
	capture  bool
	maxBytes int
	mode     CaptureMode
	log      *logger.Logger
}

// drain reads a process's combined output on its own goroutine and fans
// each chunk out to the sinks in order. Fields other than r are owned by
// the reader goroutine until done is closed.
type drain struct {
	r   io.ReadCloser
	cfg drainConfig

	capture  *captureBuffer
	failed   []bool
	sinkErrs []error
	total    int64
	readErr  error

	done      chan struct{}
	closeOnce sync.Once
}

func attachDrain(r io.ReadCloser, cfg drainConfig) *drain {
	d := &drain{
		r:      r,
		cfg:    cfg,
		failed: make([]bool, len(cfg.sinks)),
		done:   make(chan struct{}),
	}
	if cfg.capture {
		d.capture = newCaptureBuffer(cfg.maxBytes, cfg.mode)
	}
	go d.run()
	return d
}

func (d *drain) run() {
	defer close(d.done)
	chunk := make([]byte, chunkSize)
	for {
		n, err := d.r.Read(chunk)
		if n > 0 {
			d.dispatch(chunk[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
				d.readErr = err
			}
			return
		}
	}
}

func (d *drain) dispatch(p []byte) {
	d.total += int64(len(p))
	for i, sink := range d.cfg.sinks {
		if d.failed[i] {
			continue
		}
		if err := writeSink(sink, p); err != nil {
			d.failed[i] = true
			d.sinkErrs = append(d.sinkErrs, goerrors.SinkFailed(i, err))
			d.cfg.log.Warn("output sink failed, skipping it", logger.Fields(
				logger.FieldSink, i,
				logger.FieldError, err.Error(),
			))
		}
	}
	if d.capture != nil {
		d.capture.Write(p)
	}
}

func writeSink(w io.Writer, p []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	n, err := w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return err
}

// wait joins the reader. If the stream has not ended within timeout the
// read end is closed so the reader returns; ended reports whether the
// stream reached EOF on its own.
func (d *drain) wait(timeout time.Duration) (ended bool) {
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-d.done:
			return true
		case <-t.C:
		}
	} else {
		select {
		case <-d.done:
			return true
		default:
		}
	}
	d.close()
	<-d.done
	return false
}

func (d *drain) close() {
	d.closeOnce.Do(func() { _ = d.r.Close() })
}

func (d *drain) output() ([]byte, bool) {
	if d.capture == nil {
		return nil, false
	}
	return d.capture.Bytes(), d.capture.Truncated()
}
