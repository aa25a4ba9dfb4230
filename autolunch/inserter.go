/*
Package autolunch implements the periodic lunch-deduction inserter.

PURPOSE:
  For every technician whose effective auto-lunch policy is enabled, once
  the day's cutoff time has passed and the technician clocked in, has not
  clocked out, and recorded no lunch of any kind, the job synthesizes an
  auto_lunch punch with the policy's deduction minutes and notifies the
  technician. It is the one engine component that writes the event log as a
  side effect of policy evaluation.

IDEMPOTENCY:
  The insert must not fire twice for the same technician-day. The write
  goes through PunchStore.AppendAutoLunch, which re-verifies the absence as
  close to the write as the store allows (a partial unique index in
  SQLite, a locked re-check in memory). ErrDuplicateAutoLunch from a
  concurrent run is treated as already-done, not a failure.

SEE ALSO:
  - punch/schedule.go: EffectiveAutoLunch policy resolution
  - compliance: the read-only counterpart of this job
*/
package autolunch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/punch-engine/notify"
	"github.com/fieldops/punch-engine/punch"
)

// SourceDevice marks punches synthesized by this job.
const SourceDevice = "auto_lunch_job"

// Inserter applies the auto-lunch policy across all technicians.
type Inserter struct {
	Store      punch.Store
	Dispatcher notify.Dispatcher

	// Workers bounds concurrent technician evaluations (default 4).
	Workers int
	// PerTechTimeout bounds each technician's evaluation (default 10s).
	PerTechTimeout time.Duration
}

// NewInserter creates an inserter with default bounds.
func NewInserter(store punch.Store, dispatcher notify.Dispatcher) *Inserter {
	return &Inserter{
		Store:          store,
		Dispatcher:     dispatcher,
		Workers:        4,
		PerTechTimeout: 10 * time.Second,
	}
}

// Run performs one pass over all technicians and returns how many
// auto-lunch punches were inserted.
func (in *Inserter) Run(ctx context.Context, now time.Time) (int, error) {
	technicians, err := in.Store.ListByRole(ctx, punch.RoleTechnician)
	if err != nil {
		return 0, err
	}

	settings := punch.LoadSettingsOrDefault(ctx, in.Store)
	log.Printf("[AutoLunch] Checking %d technician(s) at %s", len(technicians), now.Format("15:04"))

	workers := in.Workers
	if workers <= 0 {
		workers = 4
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
	)
	jobs := make(chan punch.User)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tech := range jobs {
				if in.processTechnician(ctx, tech, settings, now) {
					mu.Lock()
					processed++
					mu.Unlock()
				}
			}
		}()
	}

	for _, tech := range technicians {
		jobs <- tech
	}
	close(jobs)
	wg.Wait()

	return processed, nil
}

// processTechnician applies the policy to one technician. Returns true when
// an auto-lunch punch was inserted.
func (in *Inserter) processTechnician(ctx context.Context, tech punch.User, settings punch.Settings, now time.Time) bool {
	timeout := in.PerTechTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	policy := punch.EffectiveAutoLunch(tech, settings)
	if !policy.Enabled {
		return false
	}
	if punch.MinuteOfDay(now) <= policy.LimitTime.Minutes() {
		return false
	}

	todayPunches, err := in.Store.ListByTechAndDay(ctx, tech.Email, now)
	if err != nil {
		log.Printf("[AutoLunch] Error loading punches for %s, skipping: %v", tech.Email, err)
		return false
	}

	hasEntry, hasExit, hasLunch := classify(todayPunches)
	if !hasEntry || hasExit || hasLunch {
		return false
	}

	minutes := policy.Minutes
	if minutes <= 0 {
		minutes = punch.DefaultFixedLunchMinutes
	}

	auto := punch.Punch{
		ID:              uuid.NewString(),
		TechEmail:       tech.Email,
		TechName:        tech.Name,
		Type:            punch.TypeAutoLunch,
		Timestamp:       now,
		DurationMinutes: minutes,
		Justification:   fmt.Sprintf("Dedução automática: sem almoço registrado até %s", policy.LimitTime),
		SourceDevice:    SourceDevice,
	}

	if err := in.Store.AppendAutoLunch(ctx, auto); err != nil {
		if errors.Is(err, punch.ErrDuplicateAutoLunch) {
			// A concurrent run won the race; the day is already covered.
			return false
		}
		log.Printf("[AutoLunch] Error inserting punch for %s: %v", tech.Email, err)
		return false
	}

	log.Printf("[AutoLunch] Inserted %dmin deduction for %s", minutes, tech.Email)

	// Notification failure never rolls back the punch already inserted.
	if len(tech.PushTokens) > 0 {
		_, err := in.Dispatcher.Send(ctx, notify.Notification{
			Title:  "Almoço Automático Aplicado 🍽️",
			Body:   fmt.Sprintf("Nenhum almoço foi registrado até %s. Uma dedução de %d minutos foi aplicada.", policy.LimitTime, minutes),
			Tokens: tech.PushTokens,
		})
		if err != nil {
			log.Printf("[AutoLunch] Dispatch failed for %s: %v", tech.Email, err)
		}
	}
	return true
}

// classify reports whether the day already has an entry, an exit, and any
// form of lunch (interval start, declared offline, or auto).
func classify(punches []punch.Punch) (hasEntry, hasExit, hasLunch bool) {
	for _, p := range punches {
		switch {
		case p.Type == punch.TypeClockIn:
			hasEntry = true
		case p.Type == punch.TypeClockOut:
			hasExit = true
		case p.Type == punch.TypeLunchOut || p.Type.IsFixedLunch():
			hasLunch = true
		}
	}
	return
}
