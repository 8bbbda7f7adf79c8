package process

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/execkit/logger"
)

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) / 2, nil }

func TestDrain_DeliversUntilEOF(t *testing.T) {
	var got strings.Builder
	d := attachDrain(io.NopCloser(strings.NewReader("hello drain")), drainConfig{
		sinks:   []io.Writer{&got},
		capture: true,
		mode:    CaptureTail,
		log:     logger.NewNop(),
	})
	if !d.wait(time.Second) {
		t.Fatal("expected the stream to end on its own")
	}
	if got.String() != "hello drain" {
		t.Fatalf("unexpected sink content %q", got.String())
	}
	out, truncated := d.output()
	if string(out) != "hello drain" || truncated {
		t.Fatalf("unexpected capture %q truncated=%v", out, truncated)
	}
	if d.total != int64(len("hello drain")) {
		t.Fatalf("expected total=%d, got %d", len("hello drain"), d.total)
	}
}

func TestDrain_ShortWriteDisablesSink(t *testing.T) {
	d := attachDrain(io.NopCloser(strings.NewReader("abcd")), drainConfig{
		sinks: []io.Writer{shortWriter{}},
		log:   logger.NewNop(),
	})
	d.wait(time.Second)
	if len(d.sinkErrs) != 1 {
		t.Fatalf("expected one sink error, got %v", d.sinkErrs)
	}
}

func TestDrain_WaitClosesStalledStream(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	d := attachDrain(pr, drainConfig{log: logger.NewNop()})
	start := time.Now()
	if d.wait(50 * time.Millisecond) {
		t.Fatal("expected the stalled stream to be closed, not ended")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("wait did not honour its timeout: %v", elapsed)
	}
	if d.readErr != nil {
		t.Fatalf("closing the stream must not be a read error, got %v", d.readErr)
	}
}
