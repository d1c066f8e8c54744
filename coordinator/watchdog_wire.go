package coordinator

import (
	"context"
	"log"
	"time"

	"github.com/tolelom/quorumchain/events"
)

// onWatchdogFire is the watchdog's fire callback: it rescues a stuck round
// (clearing processing without clearing the queue) and opportunistically
// schedules a backup if the chain has been idle. It returns the horizon
// for the next re-arm, 1.5x the backup interval, so an idle chain still
// gets periodic backups.
func (c *Coordinator) onWatchdogFire() time.Duration {
	_ = c.transact(func() error {
		if c.queue.Processing {
			c.queue.Processing = false
			c.queue.ProcessingStartedAtMs = 0
			c.queue.CurrentBlock = nil
		}
		return nil
	})
	c.emit(events.Event{Type: events.EventWatchdogFired})
	c.maybeScheduleBackup()

	horizon := c.backupIntervalMs
	if horizon <= 0 {
		horizon = int64(60_000)
	}
	return time.Duration(float64(horizon)*1.5) * time.Millisecond
}

// maybeScheduleBackup dispatches a backup as a detached goroutine if more
// than backupIntervalMs has elapsed since the last one. Never called
// under the coordinator's write lock — backup upload is network I/O and
// must not delay commit.
func (c *Coordinator) maybeScheduleBackup() {
	if c.backupSvc == nil || c.backupIntervalMs <= 0 {
		return
	}
	now := nowMs()
	c.mu.Lock()
	due := now-c.lastBackupMs > c.backupIntervalMs
	if due {
		c.lastBackupMs = now
	}
	snapshot := c.state.Clone()
	c.mu.Unlock()
	if !due {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := c.backupSvc.Backup(ctx, snapshot); err != nil {
			log.Printf("[coordinator] backup failed: %v", err)
			return
		}
		c.emit(events.Event{Type: events.EventBackupDone})
	}()
}

// ReportError records an unhandled proposer-side error for observability,
// per the spec's reportError internal endpoint.
func (c *Coordinator) ReportError(msg string) error {
	return c.transact(func() error {
		c.state.LastProposerError = msg
		return nil
	})
}

// TriggerBackup forces an immediate backup regardless of backupIntervalMs,
// per the spec's triggerBackup internal endpoint. Runs synchronously from
// the caller's perspective but never under the write lock.
func (c *Coordinator) TriggerBackup(ctx context.Context) (string, error) {
	if c.backupSvc == nil {
		return "", nil
	}
	c.mu.Lock()
	snapshot := c.state.Clone()
	c.lastBackupMs = nowMs()
	c.mu.Unlock()
	cid, err := c.backupSvc.Backup(ctx, snapshot)
	if err != nil {
		return "", err
	}
	c.emit(events.Event{Type: events.EventBackupDone})
	return cid, nil
}
