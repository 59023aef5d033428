package log

import (
	"bytes"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LineWriter implements io.Writer on top of a logrus entry, emitting one log line
// per newline-terminated chunk. Used to route renderer driver output into the logs.
type LineWriter struct {
	*logrus.Entry // Embed logrus Entry
	level         logrus.Level
	mu            sync.Mutex
	buf           bytes.Buffer
}

// NewLineWriter creates a writer that logs at the given level
func NewLineWriter(entry *logrus.Entry, level logrus.Level) *LineWriter {
	return &LineWriter{Entry: entry, level: level}
}

// Write buffers p and logs every complete line
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line, keep it for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs any buffered partial line
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *LineWriter) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	w.Entry.Log(w.level, line)
}
