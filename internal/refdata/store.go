package refdata

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"solar-quote/internal/logger"
	"solar-quote/internal/metrics"
)

// ErrNotLoaded is returned by Store.Snapshot before the first successful
// reseed.
var ErrNotLoaded = errors.New("reference data not loaded")

// Store serves the current snapshot and replaces it on Reseed. Readers take
// the pointer once and keep using that snapshot, so a reseed never changes
// data under a running calculation.
type Store struct {
	src     Source
	log     *slog.Logger
	metrics *metrics.Metrics

	cur atomic.Pointer[Snapshot]
	mu  sync.Mutex // one reseed at a time
}

func NewStore(src Source, log *slog.Logger, m *metrics.Metrics) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{src: src, log: log, metrics: m}
}

// Reseed loads and builds a new snapshot and swaps it in. On failure the
// previous snapshot stays current.
func (s *Store) Reseed(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap, err := s.load(ctx)
	s.metrics.ObserveReseed(err, time.Now())
	if err != nil {
		attrs := []any{"err", err, "duration", time.Since(start)}
		if old := s.cur.Load(); old != nil {
			attrs = append(attrs, "kept_version", old.Version)
		}
		s.log.Error("reference data reseed failed", attrs...)
		return nil, err
	}

	prev := s.cur.Swap(snap)
	attrs := []any{"version", snap.Version, "duration", time.Since(start)}
	if prev != nil {
		attrs = append(attrs, "previous_version", prev.Version)
	}
	for k, v := range snap.Counts() {
		attrs = append(attrs, k, v)
	}
	s.log.Info("reference data reseeded", attrs...)
	return snap, nil
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	raw, err := s.src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Build(raw)
}

// Current returns the live snapshot, or nil before the first reseed.
func (s *Store) Current() *Snapshot { return s.cur.Load() }

// Snapshot is the provider call used by the quote assembler.
func (s *Store) Snapshot(context.Context) (*Snapshot, error) {
	snap := s.cur.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}
