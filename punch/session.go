/*
session.go - Day session reconstruction state machine

PURPOSE:
  Folds one technician's punches for a single calendar day into worked and
  lunch durations plus a live status. The same fold serves the live
  dashboard ("today, open-ended, elapsed to now") and closed past days in
  the monthly report.

DESIGN:
  - Two independent open-interval trackers: work start and lunch start
  - Fixed-duration lunches (offline/auto) add their minutes instantly and
    never open a lunch interval
  - Orphaned or out-of-order closing events are no-ops; the fold never fails
  - Pure function of its inputs: re-running over the same fixed punch list
    yields identical output, including after an admin bulk day-edit replaced
    the set

SEE ALSO:
  - types.go: Punch and PunchType
  - report.go: Monthly report built on per-day punch groupings
*/
package punch

import (
	"sort"
	"time"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the live state derived from a day's punches.
type Status string

const (
	StatusOffline  Status = "offline"
	StatusWorking  Status = "working"
	StatusOnLunch  Status = "on_lunch"
	StatusFinished Status = "finished"
)

// =============================================================================
// DAY SESSION
// =============================================================================

// DayOptions controls open-ended reconstruction. When OpenEnded is set the
// day is "today" and still-open intervals accrue up to Now.
type DayOptions struct {
	OpenEnded bool
	Now       time.Time
}

// DaySession is the result of folding one day's punches.
type DaySession struct {
	Worked   time.Duration
	Lunch    time.Duration
	Status   Status
	LastType PunchType

	// OfflineLunch is the last fixed-duration lunch punch seen, kept for
	// display and reporting. Last one wins.
	OfflineLunch *Punch

	// Special-status and audit flags for the policy evaluator.
	HasMedicalLeave          bool
	HasVacation              bool
	HasDayOff                bool
	HasOvertimeJustification bool

	// Completed is true when the day ended with an explicit clock-out.
	Completed bool
}

// HasSpecialStatus reports whether the technician is excused for the day.
func (s DaySession) HasSpecialStatus() bool {
	return s.HasMedicalLeave || s.HasVacation || s.HasDayOff
}

// ReconstructDay folds a single technician's punches for one calendar day.
// The input may arrive unsorted (bulk-replaced days give no ordering
// guarantee); it is sorted by timestamp before folding. Punches that close
// an interval which was never opened are ignored rather than rejected.
func ReconstructDay(punches []Punch, opts DayOptions) DaySession {
	session := DaySession{Status: StatusOffline}
	if len(punches) == 0 {
		return session
	}

	ordered := make([]Punch, len(punches))
	copy(ordered, punches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	var workStart, lunchStart *time.Time

	for i := range ordered {
		p := ordered[i]
		switch p.Type {
		case TypeClockIn, TypeLunchBack:
			// Returning to work closes any open lunch interval.
			if lunchStart != nil {
				session.Lunch += p.Timestamp.Sub(*lunchStart)
				lunchStart = nil
			}
			// Duplicate start events must not reset an open work interval.
			if workStart == nil {
				t := p.Timestamp
				workStart = &t
			}

		case TypeLunchOut, TypeClockOut:
			if workStart != nil {
				session.Worked += p.Timestamp.Sub(*workStart)
				workStart = nil
			}
			if p.Type == TypeLunchOut {
				t := p.Timestamp
				lunchStart = &t
			}

		case TypeLunchOffline, TypeAutoLunch:
			// Fixed deduction, treated as instantaneous: close the work
			// interval but never open a lunch interval.
			session.Lunch += p.FixedLunchDuration()
			if workStart != nil {
				session.Worked += p.Timestamp.Sub(*workStart)
				workStart = nil
			}
			record := p
			session.OfflineLunch = &record

		case TypeOvertimeJustification:
			session.HasOvertimeJustification = true
		case TypeMedicalLeave:
			session.HasMedicalLeave = true
		case TypeVacation:
			session.HasVacation = true
		case TypeDayOff:
			session.HasDayOff = true
		}
	}

	last := ordered[len(ordered)-1]
	session.LastType = last.Type

	switch {
	case workStart != nil:
		session.Status = StatusWorking
		if opts.OpenEnded {
			session.Worked += opts.Now.Sub(*workStart)
		}
	case lunchStart != nil:
		session.Status = StatusOnLunch
		if opts.OpenEnded {
			session.Lunch += opts.Now.Sub(*lunchStart)
		}
	case last.Type == TypeClockOut:
		session.Status = StatusFinished
		session.Completed = true
	case last.Type.IsFixedLunch():
		// An instantaneous lunch record means the technician is presumed
		// back on the clock until an explicit clock-out.
		session.Status = StatusWorking
		if opts.OpenEnded {
			session.Worked += opts.Now.Sub(last.Timestamp)
		}
	default:
		session.Status = StatusOffline
	}

	return session
}

// =============================================================================
// NEXT ACTION - Client-side punch flow hint
// =============================================================================

// NextAction suggests the next punch type for the technician UI, given
// today's punches in timestamp order. It mirrors the button flow of the
// mobile client: clock in, lunch out, lunch back, clock out, with fixed
// lunches short-circuiting straight to clock-out.
func NextAction(todayPunches []Punch) PunchType {
	if len(todayPunches) == 0 {
		return TypeClockIn
	}
	last := todayPunches[len(todayPunches)-1]

	if last.Type.IsFixedLunch() {
		return TypeClockOut
	}
	if last.Type == TypeClockIn {
		for _, p := range todayPunches {
			if p.Type.IsFixedLunch() {
				return TypeClockOut
			}
		}
		return TypeLunchOut
	}
	switch last.Type {
	case TypeLunchOut:
		return TypeLunchBack
	case TypeLunchBack, TypeOvertimeJustification:
		return TypeClockOut
	case TypeClockOut:
		// A second shift may start after an explicit clock-out.
		return TypeClockIn
	}
	return TypeClockIn
}
