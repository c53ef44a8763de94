package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrRateLimited is returned when a manual sync follows the previous one
// within SyncCooldown.
var ErrRateLimited = errors.New("rate limit exceeded")

// SyncCooldown is the minimum time between two manually triggered syncs.
const SyncCooldown = 30 * time.Second

// SyncResult reports one catalog sync.
type SyncResult struct {
	FilesAdded      int       `json:"files_added"`
	FilesUpdated    int       `json:"files_updated"`
	FilesRemoved    int       `json:"files_removed"`
	FilesTotal      int       `json:"files_total"`
	SyncedAt        time.Time `json:"synced_at"`
	NextScheduledAt time.Time `json:"next_scheduled_at,omitempty"`
}

// catalogSyncer is the part of CatalogRegistry the scheduler drives.
type catalogSyncer interface {
	Sync(ctx context.Context) (SyncStats, error)
	FileCount() int
}

// SyncService pulls catalog files from object storage on a schedule and
// on demand. Runs never overlap.
type SyncService struct {
	catalogs catalogSyncer
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	run sync.Mutex

	mu         sync.Mutex
	lastManual time.Time
	next       time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     sync.WaitGroup
}

// NewSyncService creates a sync service. An interval of zero disables
// the schedule; TriggerSync still works.
func NewSyncService(registry *CatalogRegistry, interval time.Duration, logger *slog.Logger) *SyncService {
	return newSyncService(registry, interval, logger, time.Now)
}

func newSyncService(catalogs catalogSyncer, interval time.Duration, logger *slog.Logger, now func() time.Time) *SyncService {
	return &SyncService{
		catalogs: catalogs,
		interval: interval,
		logger:   logger,
		now:      now,
		stop:     make(chan struct{}),
	}
}

// Interval returns the schedule interval.
func (s *SyncService) Interval() time.Duration {
	return s.interval
}

// Start runs the schedule until ctx is canceled or Stop is called.
func (s *SyncService) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.logger.Info("starting catalog sync schedule", "interval", s.interval)

	s.done.Add(1)
	go func() {
		defer s.done.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.setNext(s.now().Add(s.interval))

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				if _, err := s.syncOnce(ctx, "schedule"); err != nil {
					s.logger.Error("scheduled catalog sync failed", "error", err)
				}
				s.setNext(s.now().Add(s.interval))
			}
		}
	}()
}

// Stop ends the schedule and waits for a running sync to finish. It is
// safe to call more than once and without Start.
func (s *SyncService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.done.Wait()
}

// TriggerSync runs a sync now unless the previous manual one was less
// than SyncCooldown ago.
func (s *SyncService) TriggerSync(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	now := s.now()
	if !s.lastManual.IsZero() && now.Sub(s.lastManual) < SyncCooldown {
		s.mu.Unlock()
		return SyncResult{}, ErrRateLimited
	}
	s.lastManual = now
	s.mu.Unlock()

	return s.syncOnce(ctx, "api")
}

func (s *SyncService) syncOnce(ctx context.Context, trigger string) (SyncResult, error) {
	s.run.Lock()
	defer s.run.Unlock()

	stats, err := s.catalogs.Sync(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{
		FilesAdded:   stats.Added,
		FilesUpdated: stats.Updated,
		FilesRemoved: stats.Removed,
		FilesTotal:   s.catalogs.FileCount(),
		SyncedAt:     s.now(),
	}
	s.mu.Lock()
	res.NextScheduledAt = s.next
	s.mu.Unlock()

	s.logger.Info("catalog sync completed",
		"trigger", trigger,
		"added", res.FilesAdded,
		"updated", res.FilesUpdated,
		"removed", res.FilesRemoved,
		"total", res.FilesTotal,
	)
	return res, nil
}

func (s *SyncService) setNext(t time.Time) {
	s.mu.Lock()
	s.next = t
	s.mu.Unlock()
}
