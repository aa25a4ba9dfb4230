/*
Package punch provides the core attendance engine.

PURPOSE:
  This package contains the domain model and pure algorithms for field
  technician attendance: the punch event model, the session reconstructor
  that folds one day's punches into worked/lunch durations and a status,
  the schedule evaluator that derives expected working minutes, and the
  monthly report built on both.

KEY CONCEPTS IN THIS FILE (types.go):
  - Punch: An immutable, timestamped attendance event of one enumerated type
  - PunchType: Closed set of event kinds (wire tags kept in Portuguese,
    matching the mobile clients)
  - User: Technician or admin, with weekly schedule and push tokens
  - Settings: Singleton alert-window and auto-lunch defaults
  - Holiday: Calendar date that zeroes expected hours

DESIGN PRINCIPLES:
  1. Append-only: the engine inserts punches, never mutates them
  2. Tolerance: malformed sequences degrade to no-ops, never panics
  3. Boundary validation: unknown punch types are rejected before persistence
  4. Purity: nothing in this package performs I/O

SEE ALSO:
  - session.go: Day reconstruction state machine
  - schedule.go: Expected-minutes evaluation
  - store.go: Persistence interfaces
*/
package punch

import (
	"time"
)

// =============================================================================
// PUNCH TYPE - Closed enumerated event kinds
// =============================================================================

// PunchType identifies the kind of attendance event. The string values are
// the wire tags written by the mobile and web clients; they stay in
// Portuguese so existing data remains readable.
type PunchType string

const (
	TypeClockIn   PunchType = "entrada"
	TypeLunchOut  PunchType = "saida_almoco"
	TypeLunchBack PunchType = "volta_almoco"
	TypeClockOut  PunchType = "saida"

	// TypeLunchOffline is a declared off-site lunch with a fixed duration.
	// It never opens a lunch interval.
	TypeLunchOffline PunchType = "lunch_offline"

	// TypeAutoLunch is a system-inserted lunch deduction, written by the
	// auto-lunch inserter when no lunch was recorded by the cutoff time.
	TypeAutoLunch PunchType = "auto_lunch"

	// TypeOvertimeJustification is audit-only: it suppresses overtime
	// alerts for the rest of the day but has no interval-math effect.
	TypeOvertimeJustification PunchType = "justificativa_hora_extra"

	// Special-status punches: zero expected hours and suppress alerts.
	TypeMedicalLeave PunchType = "atestado"
	TypeVacation     PunchType = "ferias"
	TypeDayOff       PunchType = "folga"
)

var validPunchTypes = map[PunchType]bool{
	TypeClockIn:               true,
	TypeLunchOut:              true,
	TypeLunchBack:             true,
	TypeClockOut:              true,
	TypeLunchOffline:          true,
	TypeAutoLunch:             true,
	TypeOvertimeJustification: true,
	TypeMedicalLeave:          true,
	TypeVacation:              true,
	TypeDayOff:                true,
}

// IsValid reports whether t is one of the known punch types.
func (t PunchType) IsValid() bool { return validPunchTypes[t] }

// IsSpecialStatus reports whether t excuses the technician for the day
// (medical leave, vacation, authorized day off).
func (t PunchType) IsSpecialStatus() bool {
	return t == TypeMedicalLeave || t == TypeVacation || t == TypeDayOff
}

// IsFixedLunch reports whether t contributes a fixed lunch duration
// instead of opening a lunch interval.
func (t PunchType) IsFixedLunch() bool {
	return t == TypeLunchOffline || t == TypeAutoLunch
}

// DefaultFixedLunchMinutes is used when a fixed-duration lunch punch
// carries no DurationMinutes of its own.
const DefaultFixedLunchMinutes = 60

// =============================================================================
// PUNCH - Single attendance event (append-only)
// =============================================================================

// Location is the GPS fix captured at punch time.
type Location struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// Punch is a single timestamped attendance event. Punches are created once
// and never mutated; admin day-edits replace whole sets, the engine itself
// only inserts.
type Punch struct {
	ID              string
	TechEmail       string
	TechName        string
	Type            PunchType
	Timestamp       time.Time
	Location        *Location
	Justification   string
	DurationMinutes int // fixed lunch duration; 0 means "use default"
	SourceDevice    string
	EditedByAdmin   bool
}

// Validate enforces the boundary contract: punches failing validation are
// never persisted.
func (p Punch) Validate() error {
	if p.TechEmail == "" {
		return ErrMissingTechnician
	}
	if !p.Type.IsValid() {
		return ErrInvalidPunchType
	}
	if p.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// FixedLunchDuration returns the lunch duration this punch contributes when
// it is a fixed-duration lunch, falling back to the 60-minute default.
func (p Punch) FixedLunchDuration() time.Duration {
	mins := p.DurationMinutes
	if mins <= 0 {
		mins = DefaultFixedLunchMinutes
	}
	return time.Duration(mins) * time.Minute
}

// =============================================================================
// USER - Technician or admin
// =============================================================================

type Role string

const (
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// DaySchedule is one weekday's entry in a technician's weekly schedule.
type DaySchedule struct {
	Active       bool      `json:"active"`
	Start        ClockTime `json:"start"`
	End          ClockTime `json:"end"`
	LunchMinutes int       `json:"lunchMinutes"`
}

// ExpectedMinutes is the scheduled working time net of lunch. Inactive days
// expect zero.
func (d DaySchedule) ExpectedMinutes() int {
	if !d.Active {
		return 0
	}
	mins := int(d.End-d.Start) - d.LunchMinutes
	if mins < 0 {
		mins = 0
	}
	return mins
}

// WeekSchedule maps lowercase weekday names ("monday"..."sunday") to their
// schedule entries. The string keys match the document shape written by the
// admin UI.
type WeekSchedule map[string]DaySchedule

// weekdayKeys is indexed by time.Weekday (Sunday = 0).
var weekdayKeys = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayKey returns the schedule map key for a weekday.
func WeekdayKey(wd time.Weekday) string { return weekdayKeys[wd] }

// ForWeekday looks up the entry for a weekday. ok is false when the
// schedule has no entry for that day.
func (w WeekSchedule) ForWeekday(wd time.Weekday) (DaySchedule, bool) {
	if w == nil {
		return DaySchedule{}, false
	}
	d, ok := w[WeekdayKey(wd)]
	return d, ok
}

// AutoLunchOverride is the optional per-technician auto-lunch policy.
// When Override is false the global settings default applies.
type AutoLunchOverride struct {
	Override         bool      `json:"override"`
	Enabled          bool      `json:"enabled"`
	LimitTime        ClockTime `json:"limitTime"`
	DeductionMinutes int       `json:"deductionMinutes"`
}

// User is a technician or admin account. Owned by the admin UI; the engine
// only reads it (and the device-registration collaborator appends tokens).
type User struct {
	ID              string
	Email           string
	Name            string
	Role            Role
	Schedule        WeekSchedule
	AutoLunch       *AutoLunchOverride
	PushTokens      []string
	TrackingEnabled bool
	City            string
}

// =============================================================================
// SETTINGS - Singleton alert and auto-lunch configuration
// =============================================================================

// AutoLunchSettings is the global auto-lunch default, overridable per
// technician.
type AutoLunchSettings struct {
	Enabled   bool      `json:"enabled"`
	LimitTime ClockTime `json:"limitTime"`
	Minutes   int       `json:"minutes"`
}

// Settings is the singleton notification/auto-lunch configuration document.
type Settings struct {
	DelayWindow    int               `json:"delayWindow"`    // minutes
	OvertimeWindow int               `json:"overtimeWindow"` // minutes
	AutoLunch      AutoLunchSettings `json:"autoLunch"`
}

// DefaultSettings are used whenever the settings document is missing or
// unreadable: 60/120 minute windows, auto-lunch disabled.
func DefaultSettings() Settings {
	return Settings{
		DelayWindow:    60,
		OvertimeWindow: 120,
		AutoLunch: AutoLunchSettings{
			Enabled:   false,
			LimitTime: MustParseClockTime("15:30"),
			Minutes:   60,
		},
	}
}

// =============================================================================
// HOLIDAY
// =============================================================================

// Holiday zeroes expected hours for every technician on its date.
type Holiday struct {
	ID   string
	Date time.Time // calendar date; only year/month/day are significant
	Name string
}

// HolidaySet answers point queries against a loaded holiday list.
type HolidaySet map[string]Holiday

// NewHolidaySet indexes holidays by calendar day.
func NewHolidaySet(holidays []Holiday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set[DayKey(h.Date)] = h
	}
	return set
}

// Contains reports whether date falls on a holiday.
func (s HolidaySet) Contains(date time.Time) bool {
	_, ok := s[DayKey(date)]
	return ok
}
