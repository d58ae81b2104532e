// Package service runs the projection: it subscribes to the event feed,
// folds one event at a time, and publishes normalized snapshots to
// consumers. All mutation is event-driven; the exposed surface is read-only.
package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/payrollwatch/internal/payroll/event"
	"github.com/louisbranch/payrollwatch/internal/payroll/normalize"
	"github.com/louisbranch/payrollwatch/internal/payroll/projection"
	"github.com/louisbranch/payrollwatch/internal/payroll/source"
	"github.com/louisbranch/payrollwatch/internal/payroll/state"
)

// DeadLetters receives events whose fold failed. The sqlite-backed store
// satisfies this; a nil sink disables dead-lettering.
type DeadLetters interface {
	Append(ctx context.Context, ev event.Event, cause error) error
}

// Service owns the serialized fold loop and the snapshot broadcast. Folds
// never run concurrently: fold i+1 starts only after fold i's snapshot has
// been committed and published.
type Service struct {
	engine      *projection.Engine
	feed        source.Feed
	deadLetters DeadLetters
	logger      *log.Logger
	tracer      trace.Tracer
	now         func() time.Time
	foldTimeout time.Duration

	mu          sync.RWMutex
	current     state.AppState
	display     normalize.DisplayState
	subscribers map[uuid.UUID]chan normalize.DisplayState
}

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithDeadLetters attaches a sink for failed events.
func WithDeadLetters(sink DeadLetters) Option {
	return func(s *Service) { s.deadLetters = sink }
}

// WithClock overrides the reference clock used for normalization.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithFoldTimeout bounds the ledger reads of each fold. A stalled read fails
// the fold after the deadline instead of wedging the loop; zero disables the
// bound.
func WithFoldTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.foldTimeout = timeout }
}

// New creates a projection service over the given engine and feed.
func New(engine *projection.Engine, feed source.Feed, opts ...Option) *Service {
	s := &Service{
		engine:      engine,
		feed:        feed,
		logger:      log.Default(),
		tracer:      otel.Tracer("payrollwatch/projection"),
		now:         time.Now,
		subscribers: make(map[uuid.UUID]chan normalize.DisplayState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.display = normalize.Snapshot(s.current, s.now())
	return s
}

// Run consumes the feed until it closes or the context is cancelled. A
// synthetic initialization event is folded before any ledger-origin event so
// the scalar fields populate even on an empty feed.
func (s *Service) Run(ctx context.Context) error {
	events, err := s.feed.Events(ctx)
	if err != nil {
		return err
	}

	s.fold(ctx, event.Event{Type: event.TypeInitialization})

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.fold(ctx, ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// fold applies one event and commits the resulting snapshot. A failed fold
// keeps the prior snapshot, records the event to the dead-letter sink, and
// lets the loop continue; one bad event never halts the stream.
func (s *Service) fold(ctx context.Context, ev event.Event) {
	foldCtx, span := s.tracer.Start(ctx, "payroll.fold",
		trace.WithAttributes(
			attribute.String("event.type", string(ev.Type)),
			attribute.String("event.tx_hash", ev.TxHash),
		))
	defer span.End()
	if s.foldTimeout > 0 {
		var cancel context.CancelFunc
		foldCtx, cancel = context.WithTimeout(foldCtx, s.foldTimeout)
		defer cancel()
	}

	next, err := s.engine.Fold(foldCtx, s.snapshot(), ev)
	if err != nil {
		span.RecordError(err)
		if s.deadLetters != nil {
			// The fold context may already be past its deadline; the journal
			// write gets the loop's context so the event is still recorded.
			if dlErr := s.deadLetters.Append(ctx, ev, err); dlErr != nil {
				s.logger.Printf("payroll: dead-letter append failed for %s: %v", ev.Type, dlErr)
			}
		}
		return
	}
	s.commit(next)
}

func (s *Service) snapshot() state.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// commit stores the folded snapshot, normalizes it, and broadcasts the
// display state to every subscriber.
func (s *Service) commit(next state.AppState) {
	display := normalize.Snapshot(next, s.now())

	s.mu.Lock()
	s.current = next
	s.display = display
	for id, ch := range s.subscribers {
		select {
		case ch <- display:
		default:
			// A slow subscriber misses intermediate snapshots rather than
			// stalling the fold loop; Latest always has the newest one.
			s.logger.Printf("payroll: subscriber %s lagging, snapshot dropped", id)
		}
	}
	s.mu.Unlock()
}

// Latest returns the most recently committed display snapshot.
func (s *Service) Latest() normalize.DisplayState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display
}

// Subscribe registers for snapshot updates. The returned channel receives
// one display state per committed fold; the id unregisters it.
func (s *Service) Subscribe() (uuid.UUID, <-chan normalize.DisplayState) {
	id := uuid.New()
	ch := make(chan normalize.DisplayState, 8)
	s.mu.Lock()
	s.subscribers[id] = ch
	s.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Service) Unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	ch, ok := s.subscribers[id]
	if ok {
		delete(s.subscribers, id)
	}
	s.mu.Unlock()
	if ok {
		close(ch)
	}
}
