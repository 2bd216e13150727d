package scheduler

import (
	"context"
	"sync"
	"time"

	"mailledger-backend/pkg/logger"
)

// Syncer is the part of the sync usecase the scheduler drives
type Syncer interface {
	ResetStaleSyncs(ctx context.Context) (int64, error)
	SyncAllEnabled(ctx context.Context)
}

// SyncScheduler periodically imports transactions for every enabled user
type SyncScheduler struct {
	syncer   Syncer
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSyncScheduler creates a new scheduler
func NewSyncScheduler(syncer Syncer, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SyncScheduler{
		syncer:   syncer,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *SyncScheduler) Start() {
	log := logger.Component(context.Background(), "sync_scheduler")
	log.Info().Dur("interval", s.interval).Msg("Starting sync scheduler")

	go func() {
		defer close(s.done)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-s.stopChan:
				cancel()
			case <-ctx.Done():
			}
		}()

		// Run immediately on start
		s.tick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-s.stopChan:
				log.Info().Msg("Sync scheduler stopped")
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the current tick to finish
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

// tick releases stale leases and then syncs every enabled user
func (s *SyncScheduler) tick(ctx context.Context) {
	log := logger.Component(ctx, "sync_scheduler")

	released, err := s.syncer.ResetStaleSyncs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to reset stale syncs")
	} else if released > 0 {
		log.Warn().Int64("released", released).Msg("Released stale sync leases")
	}

	if ctx.Err() != nil {
		return
	}
	s.syncer.SyncAllEnabled(ctx)
}
