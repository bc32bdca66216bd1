package utils

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// LogInterceptor is an io.Writer that prefixes every complete line with a
// sequence number and an RFC3339 timestamp before forwarding it to the target.
// The file slog handler strips its own time attribute, so the prefix keeps
// log lines ordered and timestamped even across daemon restarts.
type LogInterceptor struct {
	target io.Writer
	seq    atomic.Uint64

	mu  sync.Mutex
	buf bytes.Buffer
}

func NewLogInterceptor(target io.Writer) *LogInterceptor {
	return &LogInterceptor{target: target}
}

func (i *LogInterceptor) writeLine(line []byte) (int, error) {
	prefix := slog.Uint64("line", i.seq.Add(1)).String() + " " +
		slog.String("time", time.Now().Format(time.RFC3339)).String() + " "

	total, err := io.WriteString(i.target, prefix)
	if err != nil {
		return total, err
	}

	n, err := i.target.Write(line)
	return total + n, err
}

// Write implements io.Writer. Input is buffered until a newline arrives,
// then each complete line is written with its prefix.
func (i *LogInterceptor) Write(p []byte) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, err := i.buf.Write(p); err != nil {
		return 0, err
	}

	total := 0
	for {
		idx := bytes.IndexByte(i.buf.Bytes(), '\n')
		if idx < 0 {
			return total, nil
		}

		line := make([]byte, idx+1)
		if _, err := i.buf.Read(line); err != nil {
			return total, err
		}

		n, err := i.writeLine(line)
		total += n
		if err != nil {
			return total, err
		}
	}
}

// Close flushes any partial line left in the buffer.
func (i *LogInterceptor) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.buf.Len() == 0 {
		return nil
	}

	_, err := i.writeLine(i.buf.Bytes())
	i.buf.Reset()
	return err
}
