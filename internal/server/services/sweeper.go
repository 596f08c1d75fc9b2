package services

import (
	"context"
	"database/sql"
	"time"

	"mediavault/internal/blob"
	"mediavault/internal/logging"
	"mediavault/internal/server/repositories/repomanager"
)

// Sweeper reclaims upload sessions abandoned past the retention window.
// Sessions have no expiry of their own, so without the sweeper their
// spooled chunks would accumulate forever.
type Sweeper struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blobs  blob.Store
	logger logging.Logger

	retention time.Duration
	interval  time.Duration
}

func NewSweeper(db *sql.DB, repos repomanager.RepositoryManager, blobs blob.Store,
	logger logging.Logger, retention, interval time.Duration) *Sweeper {
	return &Sweeper{
		db:        db,
		repos:     repos,
		blobs:     blobs,
		logger:    logger.With("module", "sweeper"),
		retention: retention,
		interval:  interval,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error(ctx, "sweep failed", "error", err.Error())
			} else if n > 0 {
				s.logger.Info(ctx, "stale sessions reclaimed", "count", n)
			}
		}
	}
}

// SweepOnce removes every IN_PROGRESS session older than the retention
// window and returns how many were reclaimed. Each session is handled
// independently so one failure does not block the rest.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.retention)

	up := s.repos.Uploads(s.db)
	stale, err := up.ListStaleSessions(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, session := range stale {
		chunks, err := up.ListChunks(ctx, session.ID)
		if err != nil {
			s.logger.Warn(ctx, "stale session skipped", "session_id", session.ID, "error", err.Error())
			continue
		}
		// rows first: once the session is gone no new chunks can attach
		if err := up.DeleteSession(ctx, session.ID); err != nil {
			s.logger.Warn(ctx, "stale session skipped", "session_id", session.ID, "error", err.Error())
			continue
		}
		for _, c := range chunks {
			if derr := s.blobs.Delete(ctx, c.StorageKey); derr != nil {
				s.logger.Warn(ctx, "stale chunk blob not removed", "key", c.StorageKey, "error", derr.Error())
			}
		}
		reclaimed++
	}
	return reclaimed, nil
}
