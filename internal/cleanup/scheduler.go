package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// JobPruner forgets finished jobs older than maxAge.
type JobPruner interface {
	PruneJobs(maxAge time.Duration) int
}

// Scheduler handles cleanup of temporary files
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	jobs     JobPruner
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new cleanup scheduler. jobs may be nil.
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int, jobs JobPruner) *Scheduler {
	return &Scheduler{
		tempDir:  tempDir,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		jobs:     jobs,
		stopChan: make(chan struct{}),
	}
}

// Start runs one sweep immediately and then every interval.
func (s *Scheduler) Start() {
	log.Info().Str("dir", s.tempDir).Msg("running initial temp file cleanup")
	s.Sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				return
			}
		}
	}()

	log.Info().
		Dur("interval", s.interval).
		Dur("max_age", s.maxAge).
		Msg("cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		log.Info().Msg("cleanup scheduler stopped")
	})
}

// Sweep removes temp files older than the max age and returns how many were deleted.
func (s *Scheduler) Sweep() int {
	now := time.Now()

	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to delete old temp file")
			return nil
		}
		deletedCount++
		deletedSize += info.Size()
		log.Debug().
			Str("file", filepath.Base(path)).
			Dur("age", age.Round(time.Hour)).
			Int64("size_kb", info.Size()/1024).
			Msg("deleted old temp file")
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("error during cleanup")
	}

	if deletedCount > 0 {
		log.Info().
			Int("files", deletedCount).
			Float64("freed_mb", float64(deletedSize)/(1024*1024)).
			Msg("cleanup complete")
	}

	if s.jobs != nil {
		if n := s.jobs.PruneJobs(s.maxAge); n > 0 {
			log.Info().Int("jobs", n).Msg("forgot finished jobs")
		}
	}
	return deletedCount
}

// EnsureDirs creates every directory the server writes to.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		log.Debug().Str("dir", dir).Msg("directory ready")
	}
	return nil
}
