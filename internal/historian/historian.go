// internal/historian/historian.go is an asynchronous worker that pops session actions from the
// Redis journal and persists them to PostgreSQL in batches.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields journal records. PopAction returns nil, nil when nothing arrived within timeout.
type Source interface {
	PopAction(ctx context.Context, timeout time.Duration) (*cache.ActionRecord, error)
}

// Sink persists records and flags sessions that stopped producing actions.
type Sink interface {
	InsertActions(ctx context.Context, records []cache.ActionRecord) error
	MarkAbandoned(ctx context.Context, sessionID uuid.UUID) error
}

type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	// Inactivity is how long a session may stay quiet before it is marked abandoned.
	Inactivity time.Duration
	PopTimeout time.Duration
	// RetryDelay is how long popping pauses after a full batch failed to flush.
	RetryDelay time.Duration
	Logger     logrus.FieldLogger
}

// Service batches journal records into the sink.
type Service struct {
	src  Source
	sink Sink
	opts Options
	log  logrus.FieldLogger

	batchMu sync.Mutex
	batch   []cache.ActionRecord

	// lastActivity tracks the last action per session, map[uuid.UUID]time.Time.
	lastActivity sync.Map
}

func New(src Source, sink Sink, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 3 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		src:   src,
		sink:  sink,
		opts:  opts,
		log:   opts.Logger,
		batch: make([]cache.ActionRecord, 0, opts.BatchSize),
	}
}

// Run pops records until ctx is cancelled, flushing on size or on the flush ticker,
// and periodically marks quiet sessions abandoned. While a full batch cannot be written,
// popping stops and records stay in the journal. Whatever is still batched is flushed on exit.
func (s *Service) Run(ctx context.Context) {
	go s.flushLoop(ctx)
	go s.inactivityLoop(ctx)

	s.log.Info("historian started")
	for ctx.Err() == nil {
		if s.backlogged() {
			s.waitForSink(ctx)
			continue
		}
		rec, err := s.src.PopAction(ctx, s.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.log.WithError(err).Error("pop action")
			continue
		}
		if rec == nil {
			continue
		}
		s.lastActivity.Store(rec.SessionID, time.Now())
		if rec.ActionType == "session_finish" {
			s.lastActivity.Delete(rec.SessionID)
		}
		s.appendToBatch(ctx, *rec)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(flushCtx); err != nil {
		s.log.Warn("historian stopped with unflushed actions")
	}
	s.log.Info("historian stopped")
}

// appendToBatch adds a record to the in-memory batch and flushes if the threshold is reached.
func (s *Service) appendToBatch(ctx context.Context, rec cache.ActionRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		_ = s.Flush(ctx)
	}
}

// backlogged reports whether the batch is full, which only happens after a failed flush.
func (s *Service) backlogged() bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch) >= s.opts.BatchSize
}

// waitForSink sleeps for RetryDelay and retries the stuck batch.
func (s *Service) waitForSink(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(s.opts.RetryDelay):
		_ = s.Flush(ctx)
	}
}

// Flush writes the current batch to the sink in one call. A failed batch is kept
// so it is retried on the next flush.
func (s *Service) Flush(ctx context.Context) error {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	if len(s.batch) == 0 {
		return nil
	}
	pending := make([]cache.ActionRecord, len(s.batch))
	copy(pending, s.batch)

	if err := s.sink.InsertActions(ctx, pending); err != nil {
		s.log.WithError(err).WithField("records", len(pending)).Error("flush batch")
		return err
	}
	s.batch = s.batch[:0]
	s.log.Debugf("flushed %d actions", len(pending))
	return nil
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Flush(ctx)
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.markInactive(ctx, now)
		}
	}
}

// markInactive marks every session quiet for longer than Inactivity as abandoned.
func (s *Service) markInactive(ctx context.Context, now time.Time) {
	s.lastActivity.Range(func(key, val interface{}) bool {
		sessionID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.opts.Inactivity {
			return true
		}
		if err := s.sink.MarkAbandoned(ctx, sessionID); err != nil {
			s.log.WithError(err).WithField("session", sessionID).Error("mark session abandoned")
			return true
		}
		s.log.WithField("session", sessionID).Info("marked session abandoned due to inactivity")
		s.lastActivity.Delete(sessionID)
		return true
	})
}
