/*
schedule.go - Expected-minutes and auto-lunch policy evaluation

PURPOSE:
  Resolves how many minutes a technician was supposed to work on a given
  date, from their weekly schedule, the holiday calendar and any
  special-status punches. Shared by the compliance scanner (live) and the
  monthly report (historical); it has no side effects.

EVALUATION ORDER:
  1. Holiday or special-status punch on the date  -> 0 minutes
  2. Weekly schedule entry for the weekday        -> (end-start)-lunch
  3. No schedule configured at all                -> weekday defaults

FALLBACK DEFAULTS:
  Technicians that were never configured still get a non-empty report:
  weekdays 480 min (8h), Saturday 240 min (08:00-12:00), Sunday 0.
*/
package punch

import "time"

// Fallback expectations for technicians with no configured schedule.
const (
	defaultWeekdayMinutes  = 480
	defaultSaturdayMinutes = 240
)

// ExpectedMinutes computes the policy-derived working minutes for a date.
// dayPunches are the technician's punches for that same date; a
// special-status punch among them zeroes the expectation regardless of the
// configured schedule.
func ExpectedMinutes(user User, date time.Time, holidays HolidaySet, dayPunches []Punch) int {
	if holidays.Contains(date) {
		return 0
	}
	for _, p := range dayPunches {
		if p.Type.IsSpecialStatus() {
			return 0
		}
	}

	if sched, ok := user.Schedule.ForWeekday(date.Weekday()); ok {
		return sched.ExpectedMinutes()
	}

	// No schedule entry for this weekday at all.
	switch date.Weekday() {
	case time.Saturday:
		return defaultSaturdayMinutes
	case time.Sunday:
		return 0
	default:
		return defaultWeekdayMinutes
	}
}

// BalanceMinutes is worked minus expected; negative means owed time.
func BalanceMinutes(workedMinutes, expectedMinutes int) int {
	return workedMinutes - expectedMinutes
}

// =============================================================================
// AUTO-LUNCH POLICY RESOLUTION
// =============================================================================

// AutoLunchPolicy is the effective auto-lunch rule for one technician after
// merging the per-technician override with the global default.
type AutoLunchPolicy struct {
	Enabled   bool
	LimitTime ClockTime
	Minutes   int
}

// EffectiveAutoLunch resolves the policy that applies to a technician: the
// per-technician override when Override is set, the global settings default
// otherwise.
func EffectiveAutoLunch(user User, settings Settings) AutoLunchPolicy {
	if user.AutoLunch != nil && user.AutoLunch.Override {
		return AutoLunchPolicy{
			Enabled:   user.AutoLunch.Enabled,
			LimitTime: user.AutoLunch.LimitTime,
			Minutes:   user.AutoLunch.DeductionMinutes,
		}
	}
	return AutoLunchPolicy{
		Enabled:   settings.AutoLunch.Enabled,
		LimitTime: settings.AutoLunch.LimitTime,
		Minutes:   settings.AutoLunch.Minutes,
	}
}
