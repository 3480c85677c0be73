package activation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// JSONLSink writes one event per line to a stream. Events are never written
// to disk.
type JSONLSink struct {
	name string
	w    *bufio.Writer
	mu   sync.Mutex
}

// NewStdoutSink writes events to stdout.
func NewStdoutSink() *JSONLSink {
	return NewWriterSink("stdout", os.Stdout)
}

// NewWriterSink writes events to w. Close flushes but does not close w.
func NewWriterSink(name string, w io.Writer) *JSONLSink {
	return &JSONLSink{name: name, w: bufio.NewWriter(w)}
}

func (s *JSONLSink) Name() string { return s.name }

func (s *JSONLSink) Deliver(_ context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return s.w.Flush()
}

func (s *JSONLSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}
