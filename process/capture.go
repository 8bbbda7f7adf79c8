package process

// captureBuffer accumulates output up to a limit using a CaptureMode.
type captureBuffer struct {
	limit     int
	mode      CaptureMode
	buf       []byte
	truncated bool
}

func newCaptureBuffer(limit int, mode CaptureMode) *captureBuffer {
	return &captureBuffer{limit: limit, mode: mode}
}

func (c *captureBuffer) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	if c.limit <= 0 {
		c.buf = append(c.buf, p...)
		return
	}

	if c.mode == CaptureHead {
		room := c.limit - len(c.buf)
		if room <= 0 {
			c.truncated = true
			return
		}
		if len(p) > room {
			p = p[:room]
			c.truncated = true
		}
		c.buf = append(c.buf, p...)
		return
	}

	if len(p) >= c.limit {
		c.truncated = c.truncated || len(c.buf) > 0 || len(p) > c.limit
		c.buf = append(c.buf[:0], p[len(p)-c.limit:]...)
		return
	}
	c.buf = append(c.buf, p...)
	if over := len(c.buf) - c.limit; over > 0 {
		n := copy(c.buf, c.buf[over:])
		c.buf = c.buf[:n]
		c.truncated = true
	}
}

// Bytes returns a copy of the captured output.
func (c *captureBuffer) Bytes() []byte {
	if len(c.buf) == 0 {
		return nil
	}
	out := make([]byte, len(c.buf))
	copy(out, c.buf)
	return out
}

func (c *captureBuffer) Truncated() bool { return c.truncated }
