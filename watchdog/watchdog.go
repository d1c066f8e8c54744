// Package watchdog implements the single-shot, re-armable safety-net timer
// described for the coordinator: armed when a round starts packing a
// block, disarmed on commit, and re-armed at a longer horizon on fire so
// an idle chain still gets periodic backup cadence.
package watchdog

import (
	"log"
	"sync"
	"time"
)

// FireFunc is invoked when the timer fires. It returns the delay to the
// next re-arm (the caller decides the idle-backup horizon).
type FireFunc func() time.Duration

// Watchdog is safe for concurrent use.
type Watchdog struct {
	mu    sync.Mutex
	timer *time.Timer
	stopped bool
	onFire FireFunc
}

// New creates a watchdog that is not yet armed.
func New(onFire FireFunc) *Watchdog {
	return &Watchdog{onFire: onFire}
}

// Arm (re)starts the timer to fire after d. Any previously pending fire is
// cancelled.
func (w *Watchdog) Arm(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(d, w.fire)
}

// Disarm cancels any pending fire without scheduling a new one.
func (w *Watchdog) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Stop disarms the watchdog permanently; it will never fire again.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watchdog) fire() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[watchdog] handler panicked: %v", r)
		}
	}()
	next := w.onFire()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.timer = time.AfterFunc(next, w.fire)
}
