package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/punch-engine/punch"
	"github.com/fieldops/punch-engine/punch/store"
)

var testZone = time.FixedZone("BRT", -3*3600)

func ts(day, h, m int) time.Time {
	return time.Date(2026, time.March, day, h, m, 0, 0, testZone)
}

func mkPunch(id string, t punch.PunchType, at time.Time) punch.Punch {
	return punch.Punch{ID: id, TechEmail: "tech@example.com", Type: t, Timestamp: at}
}

func TestMemory_AppendAndListByDay_OrderedByTimestamp(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	// Inserted out of order on purpose.
	require.NoError(t, m.Append(ctx, mkPunch("b", punch.TypeClockOut, ts(10, 17, 0))))
	require.NoError(t, m.Append(ctx, mkPunch("a", punch.TypeClockIn, ts(10, 8, 0))))

	got, err := m.ListByTechAndDay(ctx, "tech@example.com", ts(10, 12, 0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestMemory_ListByTechAndDay_FiltersOtherDays(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.Append(ctx, mkPunch("today", punch.TypeClockIn, ts(10, 8, 0))))
	require.NoError(t, m.Append(ctx, mkPunch("yesterday", punch.TypeClockIn, ts(9, 8, 0))))

	got, err := m.ListByTechAndDay(ctx, "tech@example.com", ts(10, 0, 0))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "today", got[0].ID)
}

func TestMemory_ListByTechAndMonth_BoundsAreHalfOpen(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.Append(ctx, mkPunch("feb", punch.TypeClockIn,
		time.Date(2026, time.February, 28, 23, 0, 0, 0, testZone))))
	require.NoError(t, m.Append(ctx, mkPunch("mar-first", punch.TypeClockIn,
		time.Date(2026, time.March, 1, 0, 0, 0, 0, testZone))))
	require.NoError(t, m.Append(ctx, mkPunch("mar-last", punch.TypeClockOut,
		time.Date(2026, time.March, 31, 23, 59, 0, 0, testZone))))
	require.NoError(t, m.Append(ctx, mkPunch("apr", punch.TypeClockIn,
		time.Date(2026, time.April, 1, 0, 0, 0, 0, testZone))))

	got, err := m.ListByTechAndMonth(ctx, "tech@example.com", 2026, time.March, testZone)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mar-first", got[0].ID)
	assert.Equal(t, "mar-last", got[1].ID)
}

func TestMemory_AppendAutoLunch_RejectsSecondForSameDay(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	auto := mkPunch("al-1", punch.TypeAutoLunch, ts(10, 15, 31))
	require.NoError(t, m.AppendAutoLunch(ctx, auto))

	dup := mkPunch("al-2", punch.TypeAutoLunch, ts(10, 16, 0))
	err := m.AppendAutoLunch(ctx, dup)
	assert.ErrorIs(t, err, punch.ErrDuplicateAutoLunch)

	// A different day is fine.
	next := mkPunch("al-3", punch.TypeAutoLunch, ts(11, 15, 31))
	assert.NoError(t, m.AppendAutoLunch(ctx, next))
}

func TestMemory_Append_ValidatesBoundary(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	bad := mkPunch("x", "siesta", ts(10, 8, 0))
	assert.ErrorIs(t, m.Append(ctx, bad), punch.ErrInvalidPunchType)
}

func TestMemory_ListByDay_MergesTechnicians(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	a := mkPunch("a", punch.TypeClockIn, ts(10, 8, 0))
	b := mkPunch("b", punch.TypeClockIn, ts(10, 7, 30))
	b.TechEmail = "other@example.com"
	require.NoError(t, m.Append(ctx, a))
	require.NoError(t, m.Append(ctx, b))

	got, err := m.ListByDay(ctx, ts(10, 0, 0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID, "merged list stays timestamp ordered")
}

func TestMemory_Users(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	tech := punch.User{ID: "u1", Email: "tech@example.com", Role: punch.RoleTechnician}
	admin := punch.User{ID: "u2", Email: "admin@example.com", Role: punch.RoleAdmin}
	require.NoError(t, m.SaveUser(ctx, tech))
	require.NoError(t, m.SaveUser(ctx, admin))

	techs, err := m.ListByRole(ctx, punch.RoleTechnician)
	require.NoError(t, err)
	require.Len(t, techs, 1)
	assert.Equal(t, "u1", techs[0].ID)

	byID, err := m.GetByID(ctx, "u2")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, punch.RoleAdmin, byID.Role)

	missing, err := m.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byEmail, err := m.GetByEmail(ctx, "tech@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "u1", byEmail.ID)
}

func TestMemory_Settings_MissingThenSaved(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.GetSettings(ctx)
	assert.ErrorIs(t, err, punch.ErrSettingsNotFound)

	// Callers fall back to the documented defaults.
	fallback := punch.LoadSettingsOrDefault(ctx, m)
	assert.Equal(t, 60, fallback.DelayWindow)
	assert.Equal(t, 120, fallback.OvertimeWindow)
	assert.False(t, fallback.AutoLunch.Enabled)

	saved := punch.DefaultSettings()
	saved.DelayWindow = 45
	require.NoError(t, m.SaveSettings(ctx, saved))

	got, err := m.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 45, got.DelayWindow)
}

func TestMemory_Holidays(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveHoliday(ctx, punch.Holiday{ID: "h2", Date: ts(25, 0, 0), Name: "Later"}))
	require.NoError(t, m.SaveHoliday(ctx, punch.Holiday{ID: "h1", Date: ts(10, 0, 0), Name: "Earlier"}))

	got, err := m.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h1", got[0].ID, "holidays sorted by date")

	require.NoError(t, m.DeleteHoliday(ctx, "h1"))
	got, err = m.ListHolidays(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
