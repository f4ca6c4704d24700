package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

const watchedOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watch rebuilds the index when files in the content directories change.
// Bursts of events within debounce trigger a single rebuild. It blocks until
// ctx is done.
func (s *Service) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("failed to create content watcher", "err", err.Error())
		return fmt.Errorf("failed to create content watcher: %w", err)
	}
	defer watcher.Close()

	numOfWatchedDirs := 0
	for _, dir := range s.source.Dirs() {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			s.logger.Warn("not watching missing content directory", "path", dir)
			continue
		}
		if err := watcher.Add(dir); err != nil {
			s.logger.Error("failed to watch content directory", "path", dir, "err", err.Error())
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		numOfWatchedDirs++
	}
	s.logger.Info("watching content directories", "num_of_dirs", numOfWatchedDirs, "debounce", debounce.String())

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(watchedOps) {
				continue
			}
			s.logger.Debug("content changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("content watcher error", "err", err.Error())
		case <-timer.C:
			requestID := uuid.NewString()
			if err := s.Build(requestID); err != nil {
				if errors.Is(err, ErrIndexingInProgress) {
					// try again once the running rebuild had time to finish
					timer.Reset(debounce)
					continue
				}
				s.logger.Error("failed to queue rebuild for content change", "err", err.Error())
				continue
			}
			s.logger.Info("queued rebuild for content change", "request_id", requestID)
		case <-ctx.Done():
			return nil
		}
	}
}
