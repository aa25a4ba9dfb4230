package autolunch_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/punch-engine/autolunch"
	"github.com/fieldops/punch-engine/notify"
	"github.com/fieldops/punch-engine/punch"
	"github.com/fieldops/punch-engine/punch/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testZone = time.FixedZone("BRT", -3*3600)

func at(h, m int) time.Time {
	return time.Date(2026, time.March, 10, h, m, 0, 0, testZone)
}

func newFixture(t *testing.T) (*store.Memory, *notify.Recorder, *autolunch.Inserter) {
	t.Helper()
	m := store.NewMemory()
	rec := &notify.Recorder{}
	return m, rec, autolunch.NewInserter(m, rec)
}

// enableAutoLunch saves global settings with the policy on (15:30 cutoff,
// 60 minutes).
func enableAutoLunch(t *testing.T, m *store.Memory) {
	t.Helper()
	s := punch.DefaultSettings()
	s.AutoLunch.Enabled = true
	if err := m.SaveSettings(context.Background(), s); err != nil {
		t.Fatal(err)
	}
}

func seedTech(t *testing.T, m *store.Memory, id string) punch.User {
	t.Helper()
	tech := punch.User{
		ID:         id,
		Email:      id + "@example.com",
		Name:       "Tech " + id,
		Role:       punch.RoleTechnician,
		PushTokens: []string{"tok-" + id},
	}
	if err := m.SaveUser(context.Background(), tech); err != nil {
		t.Fatal(err)
	}
	return tech
}

func seedPunch(t *testing.T, m *store.Memory, tech punch.User, typ punch.PunchType, ts time.Time) {
	t.Helper()
	err := m.Append(context.Background(), punch.Punch{
		ID:        string(typ) + ts.Format("15:04"),
		TechEmail: tech.Email,
		Type:      typ,
		Timestamp: ts,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func autoLunchesFor(t *testing.T, m *store.Memory, tech punch.User, day time.Time) []punch.Punch {
	t.Helper()
	punches, err := m.ListByTechAndDay(context.Background(), tech.Email, day)
	if err != nil {
		t.Fatal(err)
	}
	var autos []punch.Punch
	for _, p := range punches {
		if p.Type == punch.TypeAutoLunch {
			autos = append(autos, p)
		}
	}
	return autos
}

// =============================================================================
// INSERTION TESTS
// =============================================================================

func TestInserter_PastCutoff_NoLunch_Inserts(t *testing.T) {
	// GIVEN: Policy enabled, clock-in only, now past the 15:30 cutoff
	// WHEN: Running the inserter
	// THEN: One auto_lunch punch appears and the technician is notified

	m, rec, in := newFixture(t)
	enableAutoLunch(t, m)
	tech := seedTech(t, m, "t1")
	seedPunch(t, m, tech, punch.TypeClockIn, at(8, 0))

	processed, err := in.Run(context.Background(), at(16, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 1 {
		t.Errorf("expected 1 processed, got %d", processed)
	}

	autos := autoLunchesFor(t, m, tech, at(16, 0))
	if len(autos) != 1 {
		t.Fatalf("expected 1 auto_lunch punch, got %d", len(autos))
	}
	if autos[0].DurationMinutes != 60 {
		t.Errorf("expected 60 deduction minutes, got %d", autos[0].DurationMinutes)
	}
	if autos[0].SourceDevice != autolunch.SourceDevice {
		t.Errorf("expected job source device, got %q", autos[0].SourceDevice)
	}
	if autos[0].Justification == "" {
		t.Error("expected a justification on the synthesized punch")
	}

	titles := rec.Titles()
	if len(titles) != 1 || titles[0] != "Almoço Automático Aplicado 🍽️" {
		t.Errorf("expected the applied-deduction notice, got %v", titles)
	}
}

func TestInserter_RunTwice_InsertsOnce(t *testing.T) {
	// GIVEN: A first run already inserted the deduction
	// WHEN: Running again later the same day
	// THEN: No second punch, processed count is zero

	m, _, in := newFixture(t)
	enableAutoLunch(t, m)
	tech := seedTech(t, m, "t1")
	seedPunch(t, m, tech, punch.TypeClockIn, at(8, 0))

	first, _ := in.Run(context.Background(), at(16, 0))
	second, _ := in.Run(context.Background(), at(16, 30))

	if first != 1 || second != 0 {
		t.Errorf("expected 1 then 0 processed, got %d then %d", first, second)
	}
	if autos := autoLunchesFor(t, m, tech, at(16, 0)); len(autos) != 1 {
		t.Errorf("expected exactly 1 auto_lunch punch, got %d", len(autos))
	}
}

func TestInserter_BeforeCutoff_DoesNothing(t *testing.T) {
	// GIVEN: Now is exactly the cutoff (the comparison is strict)
	// WHEN: Running the inserter
	// THEN: No insert

	m, _, in := newFixture(t)
	enableAutoLunch(t, m)
	tech := seedTech(t, m, "t1")
	seedPunch(t, m, tech, punch.TypeClockIn, at(8, 0))

	processed, _ := in.Run(context.Background(), at(15, 30))
	if processed != 0 {
		t.Errorf("expected 0 processed at the cutoff, got %d", processed)
	}
	if autos := autoLunchesFor(t, m, tech, at(15, 30)); len(autos) != 0 {
		t.Errorf("expected no auto_lunch punch, got %d", len(autos))
	}
}

func TestInserter_SkipConditions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, m *store.Memory, tech punch.User)
	}{
		{"no clock-in", func(t *testing.T, m *store.Memory, tech punch.User) {}},
		{"already clocked out", func(t *testing.T, m *store.Memory, tech punch.User) {
			seedPunch(t, m, tech, punch.TypeClockIn, at(8, 0))
			seedPunch(t, m, tech, punch.TypeClockOut, at(14, 0))
		}},
		{"interval lunch recorded", func(t *testing.T, m *store.Memory, tech punch.User) {
			seedPunch(t, m, tech, punch.TypeClockIn, at(8, 0))
			seedPunch(t, m, tech, punch.TypeLunchOut, at(12, 0))
		}},
		{"offline lunch recorded", func(t *testing.T, m *store.Memory, tech punch.User) {
			seedPunch(t, m, tech, punch.TypeClockIn, at(8, 0))
			seedPunch(t, m, tech, punch.TypeLunchOffline, at(12, 0))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, in := newFixture(t)
			enableAutoLunch(t, m)
			tech := seedTech(t, m, "t1")
			tt.setup(t, m, tech)

			processed, err := in.Run(context.Background(), at(16, 0))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if processed != 0 {
				t.Errorf("expected 0 processed, got %d", processed)
			}
			if autos := autoLunchesFor(t, m, tech, at(16, 0)); len(autos) != 0 {
				t.Errorf("expected no auto_lunch punch, got %d", len(autos))
			}
		})
	}
}

// =============================================================================
// POLICY RESOLUTION TESTS
// =============================================================================

func TestInserter_GlobalDisabled_DoesNothing(t *testing.T) {
	// GIVEN: Default settings (auto-lunch off) and an eligible technician
	// WHEN: Running the inserter
	// THEN: No insert

	m, _, in := newFixture(t)
	tech := seedTech(t, m, "t1")
	seedPunch(t, m, tech, punch.TypeClockIn, at(8, 0))

	processed, _ := in.Run(context.Background(), at(16, 0))
	if processed != 0 {
		t.Errorf("expected 0 processed with policy off, got %d", processed)
	}
}

func TestInserter_Override_EnablesForOneTechnician(t *testing.T) {
	// GIVEN: Global policy off, one technician overriding it on (45 min,
	//        14:00 cutoff), another with no override
	// WHEN: Running at 16:00
	// THEN: Only the overriding technician gets the deduction, with the
	//       override's minutes

	m, _, in := newFixture(t)

	overriding := seedTech(t, m, "t1")
	overriding.AutoLunch = &punch.AutoLunchOverride{
		Override:         true,
		Enabled:          true,
		LimitTime:        punch.MustParseClockTime("14:00"),
		DeductionMinutes: 45,
	}
	if err := m.SaveUser(context.Background(), overriding); err != nil {
		t.Fatal(err)
	}
	plain := seedTech(t, m, "t2")

	seedPunch(t, m, overriding, punch.TypeClockIn, at(8, 0))
	seedPunch(t, m, plain, punch.TypeClockIn, at(8, 0))

	processed, err := in.Run(context.Background(), at(16, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 1 {
		t.Errorf("expected 1 processed, got %d", processed)
	}

	autos := autoLunchesFor(t, m, overriding, at(16, 0))
	if len(autos) != 1 || autos[0].DurationMinutes != 45 {
		t.Fatalf("expected one 45-minute deduction, got %+v", autos)
	}
	if autos := autoLunchesFor(t, m, plain, at(16, 0)); len(autos) != 0 {
		t.Errorf("expected no deduction for the non-overriding technician")
	}
}

func TestInserter_DispatchFailure_KeepsThePunch(t *testing.T) {
	// GIVEN: A dispatcher that rejects everything
	// WHEN: Running with an eligible technician
	// THEN: The punch is inserted anyway; notification is best-effort

	m := store.NewMemory()
	rec := &notify.Recorder{FailAll: true}
	in := autolunch.NewInserter(m, rec)
	enableAutoLunch(t, m)
	tech := seedTech(t, m, "t1")
	seedPunch(t, m, tech, punch.TypeClockIn, at(8, 0))

	processed, err := in.Run(context.Background(), at(16, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 1 {
		t.Errorf("expected 1 processed, got %d", processed)
	}
	if autos := autoLunchesFor(t, m, tech, at(16, 0)); len(autos) != 1 {
		t.Errorf("expected the punch to survive the dispatch failure")
	}
}
