package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sink persists audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// PostgresSink appends events to the audit_events table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink returns a sink backed by the given pool.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

// Record inserts the event. Events are append-only; there is no update path.
func (s *PostgresSink) Record(ctx context.Context, event Event) error {
	if s == nil || s.pool == nil {
		return errors.New("audit: postgres sink not initialised")
	}
	if event.Kind == "" {
		return errors.New("audit: event kind required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_events (id, kind, subject_id, resource, action, outcome, reason, origin_ip, origin_user_agent, origin_path, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()))`,
		event.ID, string(event.Kind), event.SubjectID, event.Resource, event.Action,
		string(event.Outcome), string(event.Reason),
		event.Origin.IP, event.Origin.UserAgent, event.Origin.Path, event.At)
	return err
}

// AsyncSink decouples audit writes from the request path. Record returns
// immediately; the write runs in its own goroutine with a bounded timeout and
// failures are logged, never propagated to the caller.
type AsyncSink struct {
	next    Sink
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsyncSink wraps next with fire-and-forget semantics.
func NewAsyncSink(next Sink, logger *slog.Logger, timeout time.Duration) *AsyncSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncSink{next: next, logger: logger, timeout: timeout}
}

// Record schedules the write and returns nil unconditionally.
func (s *AsyncSink) Record(_ context.Context, event Event) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.next.Record(ctx, event); err != nil && s.logger != nil {
			s.logger.Error("audit record failed",
				slog.Any("error", err),
				slog.String("kind", string(event.Kind)),
				slog.String("subject", event.SubjectID))
		}
	}()
	return nil
}

// Drain waits for in-flight writes. Used on shutdown and in tests.
func (s *AsyncSink) Drain() {
	s.wg.Wait()
}

// Recorder is an in-memory sink. It backs development setups without a
// database and lets tests assert on emitted events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends the event to the in-memory list.
func (r *Recorder) Record(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
