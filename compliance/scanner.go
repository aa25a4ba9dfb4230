/*
Package compliance implements the periodic delay/overtime scanner.

PURPOSE:
  A stateless-per-run job that re-evaluates every technician against their
  schedule and today's punch log, and pushes alerts for unexcused lateness
  and unexcused overtime. It only reads the store and dispatches
  notifications; it never writes punches.

RE-ALERT SEMANTICS:
  There is deliberately no "already alerted" marker. A technician who stays
  inside a trigger window is re-alerted on every run until the condition
  resolves (entry/exit/justification recorded) or the window elapses. The
  repeated pushes act as reminders; adding a per-day dedup marker would be
  a behavior change, not a fix.

CONCURRENCY:
  Technicians are independent and processed by a bounded worker pool. Each
  technician's evaluation is time-boxed so one slow lookup cannot stall the
  batch; failures are logged and that technician is skipped. Scheduled and
  on-demand runs may overlap safely because the job is read-only.

SEE ALSO:
  - punch/schedule.go: schedule resolution
  - autolunch: the writing counterpart of this job
*/
package compliance

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fieldops/punch-engine/notify"
	"github.com/fieldops/punch-engine/punch"
)

// delayGraceMinutes is the tolerance before a missing clock-in counts as
// lateness.
const delayGraceMinutes = 10

// Scanner evaluates all technicians for delay and overtime alerts.
type Scanner struct {
	Store      punch.Store
	Dispatcher notify.Dispatcher

	// Workers bounds concurrent technician evaluations (default 4).
	Workers int
	// PerTechTimeout bounds each technician's evaluation (default 10s).
	PerTechTimeout time.Duration
}

// NewScanner creates a scanner with default bounds.
func NewScanner(store punch.Store, dispatcher notify.Dispatcher) *Scanner {
	return &Scanner{
		Store:          store,
		Dispatcher:     dispatcher,
		Workers:        4,
		PerTechTimeout: 10 * time.Second,
	}
}

// Run performs one full pass over all technicians and returns the number of
// technician-facing alerts sent. now carries the configured local time zone;
// all weekday and minute math derives from it.
func (s *Scanner) Run(ctx context.Context, now time.Time) (int, error) {
	technicians, err := s.Store.ListByRole(ctx, punch.RoleTechnician)
	if err != nil {
		return 0, err
	}

	admins, err := s.Store.ListByRole(ctx, punch.RoleAdmin)
	if err != nil {
		log.Printf("[Scanner] Error listing admins, alerts go to technicians only: %v", err)
	}
	var adminTokens []string
	for _, a := range admins {
		adminTokens = append(adminTokens, a.PushTokens...)
	}
	adminTokens = notify.DedupTokens(adminTokens)

	settings := punch.LoadSettingsOrDefault(ctx, s.Store)
	log.Printf("[Scanner] Checking %d technician(s) at %s (delay=%dmin, overtime=%dmin)",
		len(technicians), now.Format("15:04"), settings.DelayWindow, settings.OvertimeWindow)

	workers := s.Workers
	if workers <= 0 {
		workers = 4
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	jobs := make(chan punch.User)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tech := range jobs {
				sent := s.checkTechnician(ctx, tech, adminTokens, settings, now)
				mu.Lock()
				total += sent
				mu.Unlock()
			}
		}()
	}

	for _, tech := range technicians {
		jobs <- tech
	}
	close(jobs)
	wg.Wait()

	return total, nil
}

// checkTechnician evaluates one technician and returns how many
// technician-facing alerts were sent (0 or 1 per check).
func (s *Scanner) checkTechnician(ctx context.Context, tech punch.User, adminTokens []string, settings punch.Settings, now time.Time) int {
	timeout := s.PerTechTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sched, ok := tech.Schedule.ForWeekday(now.Weekday())
	if !ok || !sched.Active {
		return 0
	}

	todayPunches, err := s.Store.ListByTechAndDay(ctx, tech.Email, now)
	if err != nil {
		log.Printf("[Scanner] Error loading punches for %s, skipping: %v", tech.Email, err)
		return 0
	}

	session := punch.ReconstructDay(todayPunches, punch.DayOptions{})
	if session.HasSpecialStatus() {
		// Excused day (medical leave, vacation, day off): no alerts at all.
		return 0
	}

	hasEntry := hasType(todayPunches, punch.TypeClockIn)
	nowMinutes := punch.MinuteOfDay(now)

	sent := 0
	sent += s.checkDelay(ctx, tech, adminTokens, settings, sched, nowMinutes, hasEntry)
	sent += s.checkOvertime(ctx, tech, adminTokens, settings, sched, nowMinutes, hasEntry, todayPunches, session)
	return sent
}

func (s *Scanner) checkDelay(ctx context.Context, tech punch.User, adminTokens []string, settings punch.Settings, sched punch.DaySchedule, nowMinutes int, hasEntry bool) int {
	sinceStart := nowMinutes - sched.Start.Minutes()
	if sinceStart <= delayGraceMinutes || sinceStart >= settings.DelayWindow {
		return 0
	}
	if hasEntry {
		return 0
	}

	log.Printf("[Scanner] %s is late (%dmin past %s), alerting", tech.Email, sinceStart, sched.Start)

	sent := 0
	if s.dispatch(ctx, notify.Notification{
		Title:  "Atraso Registrado ⏰",
		Body:   "Você ainda não registrou sua entrada hoje. Por favor, registre o ponto imediatamente.",
		Tokens: tech.PushTokens,
	}) {
		sent++
	}
	s.dispatch(ctx, notify.Notification{
		Title:  "Alerta de Atraso ⚠️",
		Body:   "O técnico " + tech.Name + " está atrasado e ainda não registrou entrada.",
		Tokens: adminTokens,
	})
	return sent
}

func (s *Scanner) checkOvertime(ctx context.Context, tech punch.User, adminTokens []string, settings punch.Settings, sched punch.DaySchedule, nowMinutes int, hasEntry bool, todayPunches []punch.Punch, session punch.DaySession) int {
	sinceEnd := nowMinutes - sched.End.Minutes()
	if sinceEnd < 0 || sinceEnd >= settings.OvertimeWindow {
		return 0
	}
	if !hasEntry {
		// Never clocked in: nothing to cross-check, the delay alert already
		// covered the missing entry.
		return 0
	}
	if hasType(todayPunches, punch.TypeClockOut) {
		return 0
	}
	if session.HasOvertimeJustification {
		log.Printf("[Scanner] %s in overtime but already justified", tech.Email)
		return 0
	}

	log.Printf("[Scanner] %s past scheduled end (%s), alerting overtime", tech.Email, sched.End)

	sent := 0
	if s.dispatch(ctx, notify.Notification{
		Title:  "Fim de Expediente 🛑",
		Body:   "Seu horário acabou. Se continuar trabalhando, confirme a Hora Extra.",
		Data:   map[string]string{"action": "overtime_confirm"},
		Tokens: tech.PushTokens,
	}) {
		sent++
	}
	s.dispatch(ctx, notify.Notification{
		Title:  "Alerta de Hora Extra ⏳",
		Body:   "O técnico " + tech.Name + " excedeu o horário de saída e ainda não encerrou.",
		Tokens: adminTokens,
	})
	return sent
}

// dispatch sends one notification, logging failures without aborting the
// batch. Returns true when at least one token was handed off.
func (s *Scanner) dispatch(ctx context.Context, n notify.Notification) bool {
	if len(n.Tokens) == 0 {
		return false
	}
	sent, err := s.Dispatcher.Send(ctx, n)
	if err != nil {
		log.Printf("[Scanner] Dispatch failed for %q: %v", n.Title, err)
		return false
	}
	return sent > 0
}

func hasType(punches []punch.Punch, t punch.PunchType) bool {
	for _, p := range punches {
		if p.Type == t {
			return true
		}
	}
	return false
}
