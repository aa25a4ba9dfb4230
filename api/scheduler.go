/*
scheduler.go - Background job scheduler

PURPOSE:
  Runs the two periodic jobs that watch the punch log:
  - Compliance scanner (delay/overtime alerts), every 10 minutes
  - Auto-lunch inserter, every 15 minutes

DESIGN:
  - One background goroutine per job, each on its own ticker
  - Both jobs run immediately on start, then on their cadence
  - Stop() blocks until both goroutines have exited
  - Job runs are also reachable on demand via the /api/checks endpoints;
    overlap is safe (the scanner is read-only, the inserter is idempotent)

CONFIGURATION:
  - ScanInterval:      Scanner cadence (default: 10 minutes)
  - AutoLunchInterval: Inserter cadence (default: 15 minutes)
  - Enabled:           Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewJobScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - compliance/scanner.go: The scan job
  - autolunch/inserter.go: The insert job
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobScheduler runs the compliance scanner and auto-lunch inserter on their
// cadences.
type JobScheduler struct {
	Handler           *Handler
	ScanInterval      time.Duration
	AutoLunchInterval time.Duration
	Enabled           bool

	scanTicker  *time.Ticker
	lunchTicker *time.Ticker
	stop        chan bool
	wg          sync.WaitGroup
	mu          sync.Mutex
}

// NewJobScheduler creates a new scheduler with default cadences.
func NewJobScheduler(handler *Handler) *JobScheduler {
	return &JobScheduler{
		Handler:           handler,
		ScanInterval:      10 * time.Minute,
		AutoLunchInterval: 15 * time.Minute,
		Enabled:           true,
		stop:              make(chan bool),
	}
}

// Start begins both job loops.
func (js *JobScheduler) Start() {
	js.mu.Lock()
	defer js.mu.Unlock()

	if !js.Enabled {
		log.Println("[Jobs] Disabled, not starting")
		return
	}

	js.scanTicker = time.NewTicker(js.ScanInterval)
	js.lunchTicker = time.NewTicker(js.AutoLunchInterval)
	js.wg.Add(2)

	go js.runScanLoop()
	go js.runLunchLoop()

	log.Printf("[Jobs] Started (scan every %v, auto-lunch every %v)",
		js.ScanInterval, js.AutoLunchInterval)
}

// Stop stops both job loops and waits for them to exit.
func (js *JobScheduler) Stop() {
	js.mu.Lock()
	defer js.mu.Unlock()

	if js.scanTicker != nil {
		js.scanTicker.Stop()
		js.lunchTicker.Stop()
		close(js.stop)
		js.wg.Wait()
		log.Println("[Jobs] Stopped")
	}
}

func (js *JobScheduler) runScanLoop() {
	defer js.wg.Done()

	// Run immediately on start
	js.runScan()

	for {
		select {
		case <-js.scanTicker.C:
			js.runScan()
		case <-js.stop:
			return
		}
	}
}

func (js *JobScheduler) runLunchLoop() {
	defer js.wg.Done()

	// Run immediately on start
	js.runAutoLunch()

	for {
		select {
		case <-js.lunchTicker.C:
			js.runAutoLunch()
		case <-js.stop:
			return
		}
	}
}

func (js *JobScheduler) runScan() {
	sent, err := js.Handler.Scanner.Run(context.Background(), js.Handler.now())
	if err != nil {
		log.Printf("[Jobs] Scan failed: %v", err)
		return
	}
	if sent > 0 {
		log.Printf("[Jobs] Scan sent %d alert(s)", sent)
	}
}

func (js *JobScheduler) runAutoLunch() {
	processed, err := js.Handler.Inserter.Run(context.Background(), js.Handler.now())
	if err != nil {
		log.Printf("[Jobs] Auto-lunch run failed: %v", err)
		return
	}
	if processed > 0 {
		log.Printf("[Jobs] Auto-lunch applied to %d technician(s)", processed)
	}
}

// RunNow triggers an immediate pass of both jobs (for testing/admin).
func (js *JobScheduler) RunNow() {
	js.runScan()
	js.runAutoLunch()
}
