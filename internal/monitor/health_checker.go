package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Probe checks that a device still answers, e.g. by grabbing a frame
type Probe func() error

// UnhealthyCallback is called when the bot becomes unhealthy
type UnhealthyCallback func(reason string, err error)

// HealthChecker watches a running session from the side: it reports when
// no activity was recorded for too long and when the probe fails
type HealthChecker struct {
	probe          Probe
	stuckTimeout   time.Duration
	stuckThreshold int
	checkInterval  time.Duration
	onUnhealthy    UnhealthyCallback

	mu               sync.Mutex
	lastActivityTime time.Time
	stuckCount       int
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

// NewHealthChecker creates a checker. A nil probe only watches activity.
func NewHealthChecker(probe Probe) *HealthChecker {
	return &HealthChecker{
		probe:          probe,
		stuckTimeout:   30 * time.Second,
		stuckThreshold: 3,
		checkInterval:  10 * time.Second,
	}
}

// WithUnhealthyCallback sets the callback for unhealthy events
func (hc *HealthChecker) WithUnhealthyCallback(callback UnhealthyCallback) *HealthChecker {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.onUnhealthy = callback
	return hc
}

// WithCheckInterval sets how often activity and the probe are checked
func (hc *HealthChecker) WithCheckInterval(interval time.Duration) *HealthChecker {
	if interval > 0 {
		hc.checkInterval = interval
	}
	return hc
}

// WithStuckTimeout reports a stuck bot after threshold consecutive checks
// without activity for longer than timeout
func (hc *HealthChecker) WithStuckTimeout(timeout time.Duration, threshold int) *HealthChecker {
	if timeout > 0 {
		hc.stuckTimeout = timeout
	}
	if threshold > 0 {
		hc.stuckThreshold = threshold
	}
	return hc
}

// Start begins monitoring until ctx is done or Stop is called. A running
// checker is restarted.
func (hc *HealthChecker) Start(ctx context.Context) {
	hc.Stop()

	ctx, cancel := context.WithCancel(ctx)
	hc.mu.Lock()
	hc.cancel = cancel
	hc.lastActivityTime = time.Now()
	hc.stuckCount = 0
	hc.mu.Unlock()

	hc.wg.Add(1)
	go hc.monitor(ctx)
}

// Stop stops monitoring and waits for the checker goroutine
func (hc *HealthChecker) Stop() {
	hc.mu.Lock()
	cancel := hc.cancel
	hc.cancel = nil
	hc.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	hc.wg.Wait()
}

// RecordActivity records progress and clears the stuck count
func (hc *HealthChecker) RecordActivity() {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.lastActivityTime = time.Now()
	hc.stuckCount = 0
}

func (hc *HealthChecker) monitor(ctx context.Context) {
	defer hc.wg.Done()

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.checkIfStuck()
			hc.checkProbe()
		}
	}
}

func (hc *HealthChecker) checkIfStuck() {
	hc.mu.Lock()
	timeSinceActivity := time.Since(hc.lastActivityTime)
	var report UnhealthyCallback
	if timeSinceActivity > hc.stuckTimeout {
		hc.stuckCount++
		if hc.stuckCount >= hc.stuckThreshold {
			report = hc.onUnhealthy
			hc.stuckCount = 0
		}
	} else {
		hc.stuckCount = 0
	}
	hc.mu.Unlock()

	if report != nil {
		report("bot_stuck", fmt.Errorf("no activity for %v", timeSinceActivity.Round(time.Millisecond)))
	}
}

func (hc *HealthChecker) checkProbe() {
	if hc.probe == nil {
		return
	}
	if err := hc.probe(); err != nil {
		hc.mu.Lock()
		report := hc.onUnhealthy
		hc.mu.Unlock()
		if report != nil {
			report("device_unresponsive", err)
		}
	}
}
