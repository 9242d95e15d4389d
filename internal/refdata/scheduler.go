package refdata

import (
	"context"
	"log/slog"
	"time"

	"solar-quote/internal/logger"

	"github.com/robfig/cron/v3"
)

// DefaultReseedTimeout bounds one scheduled reseed.
const DefaultReseedTimeout = 2 * time.Minute

// Scheduler reseeds a Store on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	store   *Store
	log     *slog.Logger
	timeout time.Duration
	entry   cron.EntryID
}

// NewScheduler registers spec (standard 5-field cron) in timezone. An unknown
// timezone falls back to UTC with a warning; an invalid spec is an error.
func NewScheduler(store *Store, spec, timezone string, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Discard()
	}
	var opts []cron.Option
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err == nil {
			opts = append(opts, cron.WithLocation(loc))
		} else {
			log.Warn("unknown reseed timezone, using UTC", "timezone", timezone, "err", err)
		}
	}

	s := &Scheduler{
		cron:    cron.New(opts...),
		store:   store,
		log:     log,
		timeout: DefaultReseedTimeout,
	}
	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return nil, err
	}
	s.entry = id
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	// Store.Reseed logs the outcome.
	_, _ = s.store.Reseed(ctx)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("reseed scheduler started", "next", s.Next())
}

// Stop halts the schedule and waits for a running reseed to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next is the time of the next scheduled reseed, zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}
