package process

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/kbukum/execkit/logger"
)

// SinkFunc adapts a function to an output sink.
type SinkFunc func(p []byte) (int, error)

// Write calls f(p).
func (f SinkFunc) Write(p []byte) (int, error) { return f(p) }

// StdoutSink streams output to the current process's stdout.
func StdoutSink() io.Writer { return os.Stdout }

// LineSink logs each complete output line through a logger. Call Flush
// after Execute returns to emit a trailing partial line.
type LineSink struct {
	log     *logger.Logger
	message string

	mu      sync.Mutex
	partial []byte
}

// NewLineSink creates a LineSink that logs lines at info level under msg.
func NewLineSink(log *logger.Logger, msg string) *LineSink {
	return &LineSink{log: log, message: msg}
}

// Write splits p into lines and logs the complete ones.
func (s *LineSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := append(s.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		s.emit(data[:i])
		data = data[i+1:]
	}
	s.partial = append(s.partial[:0:0], data...)
	return len(p), nil
}

// Flush logs any buffered partial line.
func (s *LineSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.partial) > 0 {
		s.emit(s.partial)
		s.partial = nil
	}
}

func (s *LineSink) emit(line []byte) {
	s.log.Info(s.message, logger.Fields(logger.FieldOutput, string(bytes.TrimRight(line, "\r"))))
}
