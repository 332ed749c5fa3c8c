package execution

import (
	"bytes"
	"io"
	"sync"
)

// captureBuffer collects combined command output. Stdout and stderr copies
// run on separate goroutines, so writes need the mutex.
type captureBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func newCaptureBuffer() *captureBuffer {
	return &captureBuffer{}
}

func (c *captureBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *captureBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// destWriter combines the capture buffer with an optional live writer,
// skipping nil writers.
func destWriter(live io.Writer, capture *captureBuffer) io.Writer {
	writers := make([]io.Writer, 0, 2)
	if live != nil {
		writers = append(writers, live)
	}
	if capture != nil {
		writers = append(writers, capture)
	}
	switch len(writers) {
	case 0:
		return io.Discard
	case 1:
		return writers[0]
	default:
		return io.MultiWriter(writers...)
	}
}
