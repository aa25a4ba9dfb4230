// Package store provides an in-memory punch.Store implementation for
// tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fieldops/punch-engine/punch"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	punches  map[string][]punch.Punch // keyed by technician email
	users    map[string]punch.User    // keyed by user ID
	settings *punch.Settings
	holidays map[string]punch.Holiday // keyed by holiday ID
}

func NewMemory() *Memory {
	return &Memory{
		punches:  make(map[string][]punch.Punch),
		users:    make(map[string]punch.User),
		holidays: make(map[string]punch.Holiday),
	}
}

// =============================================================================
// PUNCHES
// =============================================================================

// Append adds a single punch. Append-only.
func (m *Memory) Append(_ context.Context, p punch.Punch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(p)
	return nil
}

// AppendAutoLunch re-checks the absence of an auto_lunch punch for the
// technician-day under the write lock, the closest a memory store gets to
// a uniqueness constraint.
func (m *Memory) AppendAutoLunch(_ context.Context, p punch.Punch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.punches[p.TechEmail] {
		if existing.Type == punch.TypeAutoLunch && punch.SameDay(p.Timestamp, existing.Timestamp) {
			return punch.ErrDuplicateAutoLunch
		}
	}
	m.appendLocked(p)
	return nil
}

func (m *Memory) appendLocked(p punch.Punch) {
	list := m.punches[p.TechEmail]

	// Binary search keeps each technician's log ordered by timestamp.
	i := sort.Search(len(list), func(i int) bool {
		return list[i].Timestamp.After(p.Timestamp)
	})
	list = append(list, punch.Punch{})
	copy(list[i+1:], list[i:])
	list[i] = p
	m.punches[p.TechEmail] = list
}

func (m *Memory) ListByTechAndDay(_ context.Context, techEmail string, day time.Time) ([]punch.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []punch.Punch
	for _, p := range m.punches[techEmail] {
		if punch.SameDay(day, p.Timestamp) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *Memory) ListByTechAndMonth(_ context.Context, techEmail string, year int, month time.Month, loc *time.Location) ([]punch.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start, end := punch.MonthBounds(year, month, loc)
	var result []punch.Punch
	for _, p := range m.punches[techEmail] {
		ts := p.Timestamp.In(loc)
		if !ts.Before(start) && ts.Before(end) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *Memory) ListByDay(_ context.Context, day time.Time) ([]punch.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []punch.Punch
	for _, list := range m.punches {
		for _, p := range list {
			if punch.SameDay(day, p.Timestamp) {
				result = append(result, p)
			}
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) ListByRole(_ context.Context, role punch.Role) ([]punch.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []punch.User
	for _, u := range m.users {
		if u.Role == role {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*punch.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := u
	return &copied, nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (*punch.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *Memory) SaveUser(_ context.Context, u punch.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

// =============================================================================
// SETTINGS / HOLIDAYS
// =============================================================================

func (m *Memory) GetSettings(_ context.Context) (punch.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return punch.Settings{}, punch.ErrSettingsNotFound
	}
	return *m.settings, nil
}

func (m *Memory) SaveSettings(_ context.Context, s punch.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &s
	return nil
}

func (m *Memory) ListHolidays(_ context.Context) ([]punch.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]punch.Holiday, 0, len(m.holidays))
	for _, h := range m.holidays {
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) SaveHoliday(_ context.Context, h punch.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[h.ID] = h
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holidays, id)
	return nil
}
