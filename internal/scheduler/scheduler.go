package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	HourlyCleanupSpec     = "0 * * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	cleanupTimeout        = 5 * time.Minute
)

// HistoryStore removes stored documents older than a cutoff.
type HistoryStore interface {
	DeleteDocumentsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Scheduler struct {
	ctx       context.Context
	cron      *cron.Cron
	store     HistoryStore
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func New(ctx context.Context, store HistoryStore, retention time.Duration, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:       ctx,
		cron:      c,
		store:     store,
		retention: retention,
		now:       time.Now,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(HourlyCleanupSpec, s.cleanupHistory); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) cleanupHistory() {
	ctx, cancel := context.WithTimeout(s.ctx, cleanupTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	if s.retention <= 0 {
		return
	}

	cutoff := s.now().UTC().Add(-s.retention)

	deleted, err := s.store.DeleteDocumentsBefore(ctx, cutoff)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to clean up summary history",
			"error", err,
			"cutoff", cutoff,
			"retention", s.retention)

		return
	}

	if deleted > 0 {
		s.log.InfoContext(ctx, "Summary history is cleaned up",
			"deletedDocuments", deleted,
			"cutoff", cutoff)
	}
}
