// Package historian drains game action records from a queue and persists them
// in batches, marking games abandoned after a period of inactivity.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pongai/internal/cache"
	log "github.com/sirupsen/logrus"
)

// Queue yields action records, blocking up to timeout for the next one.
type Queue interface {
	PopGameAction(ctx context.Context, timeout time.Duration) (cache.GameActionRecord, bool, error)
}

// Sink persists action records.
type Sink interface {
	InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkGameAbandoned(ctx context.Context, gameID uuid.UUID) (bool, error)
}

// Config tunes batching and inactivity handling. Zero values use defaults.
type Config struct {
	BatchSize       int
	FlushDelay      time.Duration
	PopTimeout      time.Duration
	Inactivity      time.Duration
	InactivityCheck time.Duration
	ErrorBackoff    time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.FlushDelay <= 0 {
		c.FlushDelay = 500 * time.Millisecond
	}
	if c.PopTimeout <= 0 {
		c.PopTimeout = 3 * time.Second
	}
	if c.Inactivity <= 0 {
		c.Inactivity = 10 * time.Minute
	}
	if c.InactivityCheck <= 0 {
		c.InactivityCheck = time.Minute
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = time.Second
	}
	return c
}

// Service encapsulates the queue + sink logic for capturing game actions.
type Service struct {
	queue Queue
	sink  Sink
	cfg   Config

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu sync.Mutex
	batch   []cache.GameActionRecord

	now func() time.Time
}

// NewService wires a queue to a sink.
func NewService(q Queue, sink Sink, cfg Config) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		queue: q,
		sink:  sink,
		cfg:   cfg,
		batch: make([]cache.GameActionRecord, 0, cfg.BatchSize),
		now:   time.Now,
	}
}

// Run consumes the queue until ctx is cancelled. Pending records are flushed
// before it returns.
func (hs *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		hs.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		hs.flushLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		hs.inactivityLoop(ctx)
	}()

	log.Info("pongai-historian service started.")
	<-ctx.Done()
	wg.Wait()

	// the run context is gone; give the last flush its own deadline
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hs.Flush(flushCtx)
	log.Info("pongai-historian shutting down.")
}

func (hs *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		rec, ok, err := hs.queue.PopGameAction(ctx, hs.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("pop game action: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(hs.cfg.ErrorBackoff):
			}
			continue
		}
		if !ok {
			continue
		}
		hs.Append(ctx, rec)
	}
}

func (hs *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(hs.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.Flush(ctx)
		}
	}
}

// Append tracks activity for the record's game and adds it to the batch,
// flushing once the batch is full.
func (hs *Service) Append(ctx context.Context, rec cache.GameActionRecord) {
	if rec.ActionType == "game_end" {
		hs.lastActivity.Delete(rec.GameID)
	} else {
		hs.lastActivity.Store(rec.GameID, hs.now())
	}

	hs.batchMu.Lock()
	hs.batch = append(hs.batch, rec)
	full := len(hs.batch) >= hs.cfg.BatchSize
	hs.batchMu.Unlock()

	if full {
		hs.Flush(ctx)
	}
}

// Flush writes the current batch to the sink. On failure the batch is kept
// for the next attempt.
func (hs *Service) Flush(ctx context.Context) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.GameActionRecord, len(hs.batch))
	copy(batchCopy, hs.batch)

	if err := hs.sink.InsertGameActions(ctx, batchCopy); err != nil {
		log.Errorf("flush %d actions: %v", len(batchCopy), err)
		return
	}
	hs.batch = hs.batch[:0]
	log.Debugf("Flushed %d actions to DB.", len(batchCopy))
}

// Pending is the number of records waiting for the next flush.
func (hs *Service) Pending() int {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	return len(hs.batch)
}

func (hs *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(hs.cfg.InactivityCheck)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.SweepInactive(ctx)
		}
	}
}

// SweepInactive marks every game idle for longer than the inactivity window
// as abandoned and stops tracking it.
func (hs *Service) SweepInactive(ctx context.Context) {
	now := hs.now()
	hs.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= hs.cfg.Inactivity {
			return true
		}
		// pending actions must land before the game row is closed
		hs.Flush(ctx)
		updated, err := hs.sink.MarkGameAbandoned(ctx, gameID)
		if err != nil {
			log.Errorf("%v", err)
			return true
		}
		if updated {
			log.Infof("Marked game %v as 'abandoned' due to inactivity.", gameID)
		}
		hs.lastActivity.Delete(gameID)
		return true
	})
}
