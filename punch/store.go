/*
store.go - Persistence interfaces for the attendance engine

PURPOSE:
  Defines the contract between the engine and the document store. The
  engine treats punches as APPEND-ONLY: it inserts new events and never
  updates or deletes existing ones. Admin bulk day-edits (delete +
  re-insert) happen outside the engine and are tolerated by the
  reconstructor.

QUERY MODEL:
  The backing store is assumed to support point queries and simple equality
  filters only; equality + time-range is NOT assumed composable (no
  guaranteed compound index). Implementations therefore fetch by technician
  and filter the day/month window in memory.

IDEMPOTENCY:
  AppendAutoLunch is the one write with a uniqueness obligation: at most
  one auto_lunch punch per technician-day. Implementations re-verify the
  absence as close to the write as their storage allows and return
  ErrDuplicateAutoLunch when the punch already exists.

IMPLEMENTATIONS:
  - store/sqlite: production store (partial unique index on auto_lunch)
  - punch/store: in-memory store for tests and dev
*/
package punch

import (
	"context"
	"time"
)

// =============================================================================
// PUNCH STORE - Append-only event log
// =============================================================================

// PunchStore persists punches. No Update, no Delete from the engine.
type PunchStore interface {
	// Append persists one validated punch.
	Append(ctx context.Context, p Punch) error

	// AppendAutoLunch persists an auto_lunch punch only if the
	// technician-day does not already have one. Returns
	// ErrDuplicateAutoLunch otherwise.
	AppendAutoLunch(ctx context.Context, p Punch) error

	// ListByTechAndDay returns one technician's punches for a calendar day
	// (in the day's location), ordered by timestamp.
	ListByTechAndDay(ctx context.Context, techEmail string, day time.Time) ([]Punch, error)

	// ListByTechAndMonth returns one technician's punches for a calendar
	// month, ordered by timestamp.
	ListByTechAndMonth(ctx context.Context, techEmail string, year int, month time.Month, loc *time.Location) ([]Punch, error)

	// ListByDay returns every technician's punches for a calendar day,
	// ordered by timestamp. Used by the live dashboard.
	ListByDay(ctx context.Context, day time.Time) ([]Punch, error)
}

// =============================================================================
// USER / SETTINGS / HOLIDAY STORES
// =============================================================================

// UserStore reads and writes user documents. The engine only reads; writes
// exist for the admin collaborator.
type UserStore interface {
	ListByRole(ctx context.Context, role Role) ([]User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SaveUser(ctx context.Context, u User) error
}

// SettingsStore reads the singleton settings document. A missing document
// yields ErrSettingsNotFound; callers fall back to DefaultSettings.
type SettingsStore interface {
	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}

// HolidayStore reads and writes the holiday calendar.
type HolidayStore interface {
	ListHolidays(ctx context.Context) ([]Holiday, error)
	SaveHoliday(ctx context.Context, h Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
}

// Store aggregates everything the jobs and the API need from persistence.
type Store interface {
	PunchStore
	UserStore
	SettingsStore
	HolidayStore
}

// LoadSettingsOrDefault fetches settings, degrading to the documented
// defaults when the document is missing or unreadable.
func LoadSettingsOrDefault(ctx context.Context, store SettingsStore) Settings {
	s, err := store.GetSettings(ctx)
	if err != nil {
		return DefaultSettings()
	}
	return s
}
