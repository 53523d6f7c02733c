package session

import (
	"os"
	"time"

	"go.uber.org/zap"
)

// SweepExpired scans every session root, reads its metadata, and destroys
// the ones past their expiry. Unreadable metadata is logged and skipped
// rather than guessed at. Returns the ids that were removed.
func (s *Store) SweepExpired() []string {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		s.logger.Warn("sweep: list session base dir failed", zap.Error(err))
		return nil
	}

	now := time.Now().UTC()
	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() || !ValidID(entry.Name()) {
			continue
		}
		id := entry.Name()
		doc, err := s.ReadMetadata(id)
		if err != nil {
			s.logger.Warn("sweep: unreadable session metadata", zap.String("session_id", id), zap.Error(err))
			continue
		}
		if doc.Expired(now) {
			s.Destroy(id)
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		s.logger.Info("sweep removed expired sessions", zap.Int("count", len(removed)))
	}
	return removed
}

// MaybeSweep runs SweepExpired at most once per the configured minimum
// interval. It stands in for a real scheduler: callers invoke it
// opportunistically on request paths without paying a directory scan each
// time. The bool reports whether a sweep actually ran.
func (s *Store) MaybeSweep() ([]string, bool) {
	s.sweepMu.Lock()
	if time.Since(s.lastSweep) < s.sweepMinInterval {
		s.sweepMu.Unlock()
		return nil, false
	}
	s.lastSweep = time.Now()
	s.sweepMu.Unlock()

	return s.SweepExpired(), true
}

// StartSweeper launches a background goroutine that sweeps expired sessions
// periodically. Best-effort; failures are logged inside SweepExpired.
func (s *Store) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			s.SweepExpired()
		}
	}()
}
