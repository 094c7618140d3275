package util

import (
	"bytes"
	"sync"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/message"
)

// maxBufferedLine bounds how much of an unterminated line is held before it
// is logged anyway.
const maxBufferedLine = 4 * 1024

// LineLogWriter is an io.WriteCloser that sends the newline-delimited lines
// written to it to a logger as separate messages, buffering partial lines as
// needed. Close flushes any remaining partial line.
type LineLogWriter struct {
	buf      []byte
	logger   grip.Journaler
	priority level.Priority
	fields   message.Fields
	mu       sync.Mutex
}

// NewLineLogWriter returns a writer that logs each line at the given priority.
// Every message carries a copy of fields in addition to the line itself.
func NewLineLogWriter(logger grip.Journaler, priority level.Priority, fields message.Fields) *LineLogWriter {
	return &LineLogWriter{
		buf:      []byte{},
		logger:   logger,
		priority: priority,
		fields:   fields,
	}
}

func (w *LineLogWriter) send(line []byte) {
	line = bytes.TrimRight(line, "\r")
	msg := message.Fields{}
	for k, v := range w.fields {
		msg[k] = v
	}
	msg["line"] = string(line)
	w.logger.Log(w.priority, msg)
}

// Write logs any newline-terminated lines and buffers the remainder.
func (w *LineLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(p)+len(w.buf) >= maxBufferedLine && len(w.buf) > 0 {
		w.send(w.buf)
		w.buf = []byte{}
	}

	full := append(w.buf, p...)
	lines := bytes.Split(full, []byte{'\n'})
	for idx, line := range lines {
		if idx == len(lines)-1 {
			w.buf = append([]byte{}, line...)
			continue
		}
		w.send(line)
	}

	return len(p), nil
}

// Flush logs whatever is in the buffer.
func (w *LineLogWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) == 0 {
		return nil
	}
	w.send(w.buf)
	w.buf = []byte{}
	return nil
}

// Close flushes the buffer.
func (w *LineLogWriter) Close() error {
	return w.Flush()
}
