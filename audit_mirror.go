package goGate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// mirrorSinkTimeout bounds one AuditSink.Emit call. A stalled broker must not
// hold Close past shutdown.
const mirrorSinkTimeout = 5 * time.Second

// auditMirror copies records the identity store accepted to an AuditSink from
// a single goroutine. Records emitted after Close are counted as dropped.
type auditMirror struct {
	sink    AuditSink
	logger  *zap.Logger
	queue   chan AuditRecord
	block   bool
	timeout time.Duration

	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
	closed  atomic.Bool

	dropped atomic.Uint64
	failed  atomic.Uint64
}

func newAuditMirror(cfg AuditConfig, sink AuditSink, logger *zap.Logger) *auditMirror {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &auditMirror{
		sink:    sink,
		logger:  logger,
		queue:   make(chan AuditRecord, max(cfg.BufferSize, 1)),
		block:   !cfg.DropIfFull,
		timeout: mirrorSinkTimeout,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *auditMirror) run() {
	defer close(m.stopped)

	for {
		select {
		case rec := <-m.queue:
			m.forward(rec)
		case <-m.stop:
			for {
				select {
				case rec := <-m.queue:
					m.forward(rec)
				default:
					return
				}
			}
		}
	}
}

// forward hands rec to the sink. A panicking sink loses the record, not the
// mirror.
func (m *auditMirror) forward(rec AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			m.failed.Add(1)
			m.logger.Error("audit sink panicked",
				zap.Int64("user_id", rec.IdentityID),
				zap.String("path", rec.Path),
				zap.Any("panic", p))
		}
	}()

	m.sink.Emit(ctx, rec)
}

// Emit queues rec. Without blocking a full queue drops the record; with it,
// Emit waits for space, ctx or Close.
func (m *auditMirror) Emit(ctx context.Context, rec AuditRecord) {
	if m == nil {
		return
	}
	if m.closed.Load() {
		m.dropped.Add(1)
		return
	}

	if !m.block {
		select {
		case m.queue <- rec:
		default:
			m.dropped.Add(1)
			m.logger.Debug("audit mirror full",
				zap.Int64("user_id", rec.IdentityID),
				zap.String("path", rec.Path))
		}
		return
	}

	select {
	case m.queue <- rec:
	case <-ctx.Done():
		m.dropped.Add(1)
	case <-m.stop:
		m.dropped.Add(1)
	}
}

// Close stops accepting records and forwards what is queued.
func (m *auditMirror) Close() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		m.closed.Store(true)
		close(m.stop)
		<-m.stopped
		if n := m.dropped.Load(); n > 0 {
			m.logger.Warn("audit mirror dropped records", zap.Uint64("dropped", n))
		}
	})
}

func (m *auditMirror) Dropped() uint64 {
	if m == nil {
		return 0
	}
	return m.dropped.Load()
}

func (m *auditMirror) Failed() uint64 {
	if m == nil {
		return 0
	}
	return m.failed.Load()
}
