package utils

import (
	"context"
	"time"
)

// TempSweeper removes transitional upload files older than maxAge and reports how many were removed.
type TempSweeper interface {
	SweepTemp(maxAge time.Duration) (int, error)
}

// StartUploadCleaner launches a background goroutine that periodically purges orphaned temp uploads
// (left behind by crashes mid-write). It is best-effort and logs failures. It stops when ctx is done.
func StartUploadCleaner(ctx context.Context, interval, maxAge time.Duration, sweeper TempSweeper) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			n, err := sweeper.SweepTemp(maxAge)
			if err != nil {
				Sugar.Warnf("upload cleaner sweep failed: %v", err)
				continue
			}
			if n > 0 {
				Sugar.Infof("upload cleaner removed %d stale temp files", n)
			}
		}
	}()
}
