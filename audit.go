package goGate

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// AuditSink receives a copy of every audit record the identity store accepted.
// Emit gets a bounded context and is called from one goroutine.
type AuditSink interface {
	Emit(ctx context.Context, rec AuditRecord)
}

// NoOpSink discards records.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditRecord) {}

// ChannelSink forwards records to a buffered channel.
type ChannelSink struct {
	records chan AuditRecord
}

// NewChannelSink returns a ChannelSink with the given buffer (minimum 1).
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		records: make(chan AuditRecord, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, rec AuditRecord) {
	select {
	case s.records <- rec:
	case <-ctx.Done():
	}
}

// Records returns the receive side of the sink.
func (s *ChannelSink) Records() <-chan AuditRecord {
	return s.records
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, rec AuditRecord) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(append(data, '\n'))
}

// MultiSink fans a record out to several sinks in order.
type MultiSink []AuditSink

func (m MultiSink) Emit(ctx context.Context, rec AuditRecord) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, rec)
		}
	}
}
