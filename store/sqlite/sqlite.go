/*
Package sqlite provides the SQLite-backed implementation of punch.Store.

PURPOSE:
  Persists users, punches, the settings singleton and the holiday calendar.
  The same patterns apply to any document-oriented backend with point
  queries and equality filters - the store deliberately avoids compound
  equality+range SQL so its access pattern matches that contract.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for the punches table. Admin bulk
  day-edits are a different collaborator's concern.

AUTO-LUNCH UNIQUENESS:
  A partial unique index on (tech_email, day) WHERE type='auto_lunch'
  guards the one-insert-per-technician-day invariant even across
  overlapping job runs. Violations surface as punch.ErrDuplicateAutoLunch.

DAY COLUMN:
  Each punch row stores its calendar day ("2006-01-02") computed in the
  store's configured location at insert time, so day grouping never
  depends on SQL timezone handling.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  one writer at a time, better crash recovery.

SEE ALSO:
  - punch/store.go: interface definitions
  - punch/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/fieldops/punch-engine/punch"
)

// Store implements punch.Store using SQLite.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

// New creates a SQLite store. Use ":memory:" for an in-memory database.
// loc is the local time zone all calendar-day grouping uses.
func New(dbPath string, loc *time.Location) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}

	store := &Store{db: db, loc: loc}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Punches (append-only event log)
	CREATE TABLE IF NOT EXISTS punches (
		id TEXT PRIMARY KEY,
		tech_email TEXT NOT NULL,
		tech_name TEXT,
		type TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		day TEXT NOT NULL,
		lat REAL,
		lng REAL,
		accuracy REAL,
		justification TEXT,
		duration_minutes INTEGER DEFAULT 0,
		source_device TEXT,
		edited_by_admin BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_punches_tech_email
		ON punches(tech_email);
	CREATE INDEX IF NOT EXISTS idx_punches_day
		ON punches(day);

	-- CRITICAL: at most one auto_lunch punch per technician-day, even
	-- under overlapping inserter runs.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_punches_auto_lunch_day
		ON punches(tech_email, day) WHERE type = 'auto_lunch';

	-- Users (technicians and admins)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		schedule_json TEXT,
		auto_lunch_json TEXT,
		push_tokens_json TEXT,
		tracking_enabled BOOLEAN DEFAULT TRUE,
		city TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

	-- Settings (singleton document)
	CREATE TABLE IF NOT EXISTS settings (
		id TEXT PRIMARY KEY CHECK (id = 'notifications'),
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Holidays
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_date_name
		ON holidays(date, name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PUNCHES
// =============================================================================

// Append persists one validated punch.
func (s *Store) Append(ctx context.Context, p punch.Punch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.insertPunch(ctx, p)
}

// AppendAutoLunch persists an auto_lunch punch, relying on the partial
// unique index for the final absence check.
func (s *Store) AppendAutoLunch(ctx context.Context, p punch.Punch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	err := s.insertPunch(ctx, p)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return punch.ErrDuplicateAutoLunch
	}
	return err
}

func (s *Store) insertPunch(ctx context.Context, p punch.Punch) error {
	ts := p.Timestamp.In(s.loc)

	var lat, lng, accuracy sql.NullFloat64
	if p.Location != nil {
		lat = sql.NullFloat64{Float64: p.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: p.Location.Lng, Valid: true}
		accuracy = sql.NullFloat64{Float64: p.Location.Accuracy, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO punches (id, tech_email, tech_name, type, timestamp, day,
			lat, lng, accuracy, justification, duration_minutes, source_device,
			edited_by_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TechEmail, p.TechName, string(p.Type),
		ts.Format(time.RFC3339), punch.DayKey(ts),
		lat, lng, accuracy, p.Justification, p.DurationMinutes,
		p.SourceDevice, p.EditedByAdmin, time.Now().In(s.loc).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert punch: %w", err)
	}
	return nil
}

// ListByTechAndDay fetches the technician's punches by equality filter and
// narrows to the day in memory, per the no-compound-index contract.
func (s *Store) ListByTechAndDay(ctx context.Context, techEmail string, day time.Time) ([]punch.Punch, error) {
	all, err := s.queryPunches(ctx,
		`SELECT `+punchColumns+` FROM punches WHERE tech_email = ? ORDER BY timestamp ASC`,
		techEmail)
	if err != nil {
		return nil, err
	}

	day = day.In(s.loc)
	var result []punch.Punch
	for _, p := range all {
		if punch.SameDay(day, p.Timestamp.In(s.loc)) {
			result = append(result, p)
		}
	}
	return result, nil
}

// ListByTechAndMonth fetches by technician and narrows to the month in
// memory.
func (s *Store) ListByTechAndMonth(ctx context.Context, techEmail string, year int, month time.Month, loc *time.Location) ([]punch.Punch, error) {
	all, err := s.queryPunches(ctx,
		`SELECT `+punchColumns+` FROM punches WHERE tech_email = ? ORDER BY timestamp ASC`,
		techEmail)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = s.loc
	}

	start, end := punch.MonthBounds(year, month, loc)
	var result []punch.Punch
	for _, p := range all {
		ts := p.Timestamp.In(loc)
		if !ts.Before(start) && ts.Before(end) {
			result = append(result, p)
		}
	}
	return result, nil
}

// ListByDay returns every technician's punches for one calendar day.
func (s *Store) ListByDay(ctx context.Context, day time.Time) ([]punch.Punch, error) {
	return s.queryPunches(ctx,
		`SELECT `+punchColumns+` FROM punches WHERE day = ? ORDER BY timestamp ASC`,
		punch.DayKey(day.In(s.loc)))
}

const punchColumns = `id, tech_email, tech_name, type, timestamp,
	lat, lng, accuracy, justification, duration_minutes, source_device, edited_by_admin`

func (s *Store) queryPunches(ctx context.Context, query string, args ...any) ([]punch.Punch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query punches: %w", err)
	}
	defer rows.Close()

	var result []punch.Punch
	for rows.Next() {
		var (
			p                  punch.Punch
			typ, ts            string
			lat, lng, accuracy sql.NullFloat64
			justification      sql.NullString
			sourceDevice       sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.TechEmail, &p.TechName, &typ, &ts,
			&lat, &lng, &accuracy, &justification, &p.DurationMinutes,
			&sourceDevice, &p.EditedByAdmin); err != nil {
			return nil, fmt.Errorf("scan punch: %w", err)
		}
		p.Type = punch.PunchType(typ)
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parse punch timestamp: %w", err)
		}
		p.Timestamp = parsed.In(s.loc)
		if lat.Valid {
			p.Location = &punch.Location{Lat: lat.Float64, Lng: lng.Float64, Accuracy: accuracy.Float64}
		}
		p.Justification = justification.String
		p.SourceDevice = sourceDevice.String
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u punch.User) error {
	scheduleJSON, err := json.Marshal(u.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	var autoLunchJSON []byte
	if u.AutoLunch != nil {
		autoLunchJSON, err = json.Marshal(u.AutoLunch)
		if err != nil {
			return fmt.Errorf("encode auto-lunch override: %w", err)
		}
	}
	tokensJSON, err := json.Marshal(u.PushTokens)
	if err != nil {
		return fmt.Errorf("encode push tokens: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, role, schedule_json, auto_lunch_json,
			push_tokens_json, tracking_enabled, city, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			role = excluded.role,
			schedule_json = excluded.schedule_json,
			auto_lunch_json = excluded.auto_lunch_json,
			push_tokens_json = excluded.push_tokens_json,
			tracking_enabled = excluded.tracking_enabled,
			city = excluded.city`,
		u.ID, u.Email, u.Name, string(u.Role), string(scheduleJSON),
		nullableString(autoLunchJSON), string(tokensJSON), u.TrackingEnabled,
		u.City, time.Now().In(s.loc).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Store) ListByRole(ctx context.Context, role punch.Role) ([]punch.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, role, schedule_json, auto_lunch_json,
			push_tokens_json, tracking_enabled, city
		FROM users WHERE role = ? ORDER BY id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var result []punch.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) GetByID(ctx context.Context, id string) (*punch.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*punch.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *Store) getUser(ctx context.Context, column, value string) (*punch.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, role, schedule_json, auto_lunch_json,
			push_tokens_json, tracking_enabled, city
		FROM users WHERE `+column+` = ?`, value)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	u, err := scanUser(rows)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUser(rows *sql.Rows) (punch.User, error) {
	var (
		u                                       punch.User
		role                                    string
		scheduleJSON, autoLunchJSON, tokensJSON sql.NullString
		city                                    sql.NullString
	)
	if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role, &scheduleJSON,
		&autoLunchJSON, &tokensJSON, &u.TrackingEnabled, &city); err != nil {
		return u, fmt.Errorf("scan user: %w", err)
	}
	u.Role = punch.Role(role)
	u.City = city.String

	if scheduleJSON.Valid && scheduleJSON.String != "" {
		if err := json.Unmarshal([]byte(scheduleJSON.String), &u.Schedule); err != nil {
			return u, fmt.Errorf("decode schedule: %w", err)
		}
	}
	if autoLunchJSON.Valid && autoLunchJSON.String != "" {
		var override punch.AutoLunchOverride
		if err := json.Unmarshal([]byte(autoLunchJSON.String), &override); err != nil {
			return u, fmt.Errorf("decode auto-lunch override: %w", err)
		}
		u.AutoLunch = &override
	}
	if tokensJSON.Valid && tokensJSON.String != "" {
		if err := json.Unmarshal([]byte(tokensJSON.String), &u.PushTokens); err != nil {
			return u, fmt.Errorf("decode push tokens: %w", err)
		}
	}
	return u, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) GetSettings(ctx context.Context) (punch.Settings, error) {
	var configJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT config_json FROM settings WHERE id = 'notifications'`).Scan(&configJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return punch.Settings{}, punch.ErrSettingsNotFound
	}
	if err != nil {
		return punch.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	var settings punch.Settings
	if err := json.Unmarshal([]byte(configJSON), &settings); err != nil {
		return punch.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings punch.Settings) error {
	configJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, config_json, updated_at)
		VALUES ('notifications', ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at`,
		string(configJSON), time.Now().In(s.loc).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (s *Store) ListHolidays(ctx context.Context) ([]punch.Holiday, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, name FROM holidays ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	var result []punch.Holiday
	for rows.Next() {
		var (
			h    punch.Holiday
			date string
		)
		if err := rows.Scan(&h.ID, &date, &h.Name); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		parsed, err := time.ParseInLocation("2006-01-02", date, s.loc)
		if err != nil {
			return nil, fmt.Errorf("parse holiday date: %w", err)
		}
		h.Date = parsed
		result = append(result, h)
	}
	return result, rows.Err()
}

func (s *Store) SaveHoliday(ctx context.Context, h punch.Holiday) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name`,
		h.ID, punch.DayKey(h.Date), h.Name,
		time.Now().In(s.loc).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save holiday: %w", err)
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return nil
}
