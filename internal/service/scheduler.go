package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/kiwari-pos/archiver/internal/database"
	"github.com/kiwari-pos/archiver/internal/enum"
)

// archiveInvoker is the part of ArchiveService the scheduler needs.
type archiveInvoker interface {
	Settings(ctx context.Context) (ArchiveSettings, []database.SystemSetting, error)
	Invoke(ctx context.Context, action string) (*InvokeResult, error)
}

// Scheduler triggers run-scheduled invocations in-process. It wakes every tick
// and only invokes once archive_interval_hours have passed since the last run.
type Scheduler struct {
	svc  archiveInvoker
	tick time.Duration
	now  func() time.Time
}

// NewScheduler creates a Scheduler for svc.
func NewScheduler(svc archiveInvoker, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = 5 * time.Minute
	}
	return &Scheduler{svc: svc, tick: tick, now: time.Now}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	log.Printf("archive scheduler started (tick %s)", s.tick)
	for {
		select {
		case <-ctx.Done():
			log.Println("archive scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce reports whether a scheduled invocation was made.
func (s *Scheduler) runOnce(ctx context.Context) bool {
	settings, _, err := s.svc.Settings(ctx)
	if err != nil {
		log.Printf("ERROR: archive scheduler: load settings: %v", err)
		return false
	}
	if !isDue(settings, s.now()) {
		return false
	}

	res, err := s.svc.Invoke(ctx, enum.ActionRunScheduled)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			log.Println("archive scheduler: run already in progress, skipping tick")
			return true
		}
		log.Printf("ERROR: archive scheduler: %v", err)
		return true
	}
	log.Printf("archive scheduler: processed=%d errors=%d", res.Processed, res.Errors)
	return true
}

func isDue(settings ArchiveSettings, now time.Time) bool {
	if !settings.AutoArchiveEnabled {
		return false
	}
	if settings.LastRun == nil {
		return true
	}
	return now.Sub(*settings.LastRun) >= hoursDuration(settings.ArchiveIntervalHours)
}
