// Package telemetry fans committed market records out to sinks. Emission is
// fire-and-forget: a full buffer drops the record and logs it, and sink
// failures are logged, never retried.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"milestoneamm/models"

	"go.uber.org/zap"
)

// publishTimeout bounds one sink call.
const publishTimeout = 5 * time.Second

// Sink receives emitted records.
type Sink interface {
	Name() string
	Publish(ctx context.Context, rec models.Record) error
}

// Emitter buffers records and delivers them to every sink from one worker.
type Emitter struct {
	ch      chan models.Record
	sinks   []Sink
	log     *zap.Logger
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewEmitter creates an emitter with a buffer of size records.
func NewEmitter(size int, log *zap.Logger, sinks ...Sink) *Emitter {
	if size < 1 {
		size = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{
		ch:    make(chan models.Record, size),
		sinks: sinks,
		log:   log,
		done:  make(chan struct{}),
	}
}

// Start runs the delivery worker until Close drains the buffer.
func (e *Emitter) Start(ctx context.Context) {
	go func() {
		defer close(e.done)
		for rec := range e.ch {
			e.deliver(ctx, rec)
		}
	}()
}

// Emit queues records without blocking.
func (e *Emitter) Emit(recs ...models.Record) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	for _, rec := range recs {
		select {
		case e.ch <- rec:
		default:
			e.dropped.Add(1)
			e.log.Warn("telemetry buffer full, dropping record",
				zap.String("kind", string(rec.Kind)),
				zap.String("market", rec.Market),
				zap.String("id", rec.ID))
		}
	}
}

// Dropped returns how many records were dropped on a full buffer.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops accepting records and waits for queued ones to be delivered.
// Start must have been called.
func (e *Emitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.ch)
	e.mu.Unlock()
	<-e.done
}

func (e *Emitter) deliver(ctx context.Context, rec models.Record) {
	for _, s := range e.sinks {
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := s.Publish(pctx, rec)
		cancel()
		if err != nil {
			e.log.Warn("telemetry sink failed",
				zap.String("sink", s.Name()),
				zap.String("kind", string(rec.Kind)),
				zap.String("id", rec.ID),
				zap.Error(err))
		}
	}
}
