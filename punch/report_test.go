package punch_test

import (
	"testing"
	"time"

	"github.com/fieldops/punch-engine/punch"
)

// =============================================================================
// MONTHLY REPORT TESTS
// =============================================================================

func monthNow() time.Time {
	// Late in the month so no test day is "today" unless it says so.
	return time.Date(2026, time.March, 31, 18, 0, 0, 0, testZone)
}

func TestBuildMonthlyReport_CoversEveryCalendarDay(t *testing.T) {
	// GIVEN: A single punched day in March
	// WHEN: Building the report
	// THEN: 31 rows, one per calendar day, in order

	punches := []punch.Punch{
		p(punch.TypeClockIn, at(8, 0)),
		p(punch.TypeClockOut, at(16, 0)),
	}

	report := punch.BuildMonthlyReport(scheduledTech(), 2026, time.March, punches, nil, monthNow())

	if len(report.Days) != 31 {
		t.Fatalf("expected 31 rows, got %d", len(report.Days))
	}
	if report.Days[0].Date.Day() != 1 || report.Days[30].Date.Day() != 31 {
		t.Error("rows are not in calendar order")
	}
}

func TestBuildMonthlyReport_FullDayMath(t *testing.T) {
	// GIVEN: In 08:00, lunch 12:00-13:00, out 17:00 on a scheduled Tuesday
	// THEN: Worked 8h, expected 8h, balance zero

	punches := []punch.Punch{
		p(punch.TypeClockIn, at(8, 0)),
		p(punch.TypeLunchOut, at(12, 0)),
		p(punch.TypeLunchBack, at(13, 0)),
		p(punch.TypeClockOut, at(17, 0)),
	}

	report := punch.BuildMonthlyReport(scheduledTech(), 2026, time.March, punches, nil, monthNow())
	row := report.Days[9] // March 10th

	if row.Worked != 8*time.Hour {
		t.Errorf("expected 8h worked, got %v", row.Worked)
	}
	if row.Lunch != time.Hour {
		t.Errorf("expected 1h lunch, got %v", row.Lunch)
	}
	if row.Expected != 8*time.Hour {
		t.Errorf("expected 8h expected, got %v", row.Expected)
	}
	if row.BalanceHours().String() != "0" {
		t.Errorf("expected zero balance, got %s", row.BalanceHours())
	}
	if row.Entry == nil || row.Exit == nil || !row.HasPunches {
		t.Error("expected entry/exit pointers populated")
	}
}

func TestBuildMonthlyReport_PastDayWithoutExit_NoPhantomAccrual(t *testing.T) {
	// GIVEN: A past day with a clock-in but no clock-out
	// WHEN: Building the report later in the month
	// THEN: Worked stays 0; only today's rows accrue to now

	punches := []punch.Punch{p(punch.TypeClockIn, at(8, 0))}

	report := punch.BuildMonthlyReport(scheduledTech(), 2026, time.March, punches, nil, monthNow())
	row := report.Days[9]

	if row.Worked != 0 {
		t.Errorf("expected 0 worked for an unclosed past day, got %v", row.Worked)
	}
}

func TestBuildMonthlyReport_TodayAccruesToNow(t *testing.T) {
	// GIVEN: Clock-in at 08:00 today, now is 11:00 the same day
	// WHEN: Building the report
	// THEN: Today's row shows 3h worked so far

	now := at(11, 0)
	punches := []punch.Punch{p(punch.TypeClockIn, at(8, 0))}

	report := punch.BuildMonthlyReport(scheduledTech(), 2026, time.March, punches, nil, now)
	row := report.Days[9]

	if row.Worked != 3*time.Hour {
		t.Errorf("expected 3h worked so far, got %v", row.Worked)
	}
}

func TestBuildMonthlyReport_OfflineLunch_DeductsFixedDuration(t *testing.T) {
	// GIVEN: In 08:00, offline lunch 30m, out 16:00
	// WHEN: Building the report
	// THEN: Worked = 8h - 30m, lunch exactly 30m

	punches := []punch.Punch{
		p(punch.TypeClockIn, at(8, 0)),
		fixedLunch(punch.TypeLunchOffline, at(12, 0), 30),
		p(punch.TypeClockOut, at(16, 0)),
	}

	report := punch.BuildMonthlyReport(scheduledTech(), 2026, time.March, punches, nil, monthNow())
	row := report.Days[9]

	if row.Lunch != 30*time.Minute {
		t.Errorf("expected 30m lunch, got %v", row.Lunch)
	}
	if row.Worked != 7*time.Hour+30*time.Minute {
		t.Errorf("expected 7h30m worked, got %v", row.Worked)
	}
	if row.OfflineLunch == nil {
		t.Error("expected the offline lunch punch on the row")
	}
}

func TestBuildMonthlyReport_MedicalLeave_ZeroesTheDay(t *testing.T) {
	// GIVEN: A medical leave punch alongside real punches
	// WHEN: Building the report
	// THEN: Worked, lunch and expected are all zero; balance exactly zero

	punches := []punch.Punch{
		p(punch.TypeClockIn, at(8, 0)),
		p(punch.TypeMedicalLeave, at(9, 0)),
		p(punch.TypeClockOut, at(10, 0)),
	}

	report := punch.BuildMonthlyReport(scheduledTech(), 2026, time.March, punches, nil, monthNow())
	row := report.Days[9]

	if row.Worked != 0 || row.Lunch != 0 || row.Expected != 0 {
		t.Errorf("expected all-zero day, got worked=%v lunch=%v expected=%v",
			row.Worked, row.Lunch, row.Expected)
	}
	if row.SpecialStatus != punch.TypeMedicalLeave {
		t.Errorf("expected atestado status, got %s", row.SpecialStatus)
	}
	if !row.BalanceHours().IsZero() {
		t.Errorf("expected zero balance, got %s", row.BalanceHours())
	}
}

func TestBuildMonthlyReport_EmptyScheduledDay_NegativeBalance(t *testing.T) {
	// GIVEN: A scheduled Tuesday with no punches at all
	// WHEN: Building the report
	// THEN: Balance is -8h for that row

	report := punch.BuildMonthlyReport(scheduledTech(), 2026, time.March, nil, nil, monthNow())
	row := report.Days[9]

	if row.HasPunches {
		t.Error("expected HasPunches false")
	}
	if row.Balance != -8*time.Hour {
		t.Errorf("expected -8h balance, got %v", row.Balance)
	}
	if row.BalanceHours().String() != "-8" {
		t.Errorf("expected -8 decimal hours, got %s", row.BalanceHours())
	}
}

func TestBuildMonthlyReport_Totals(t *testing.T) {
	// GIVEN: One full 8h day and one empty scheduled day (March 10 and 11)
	// WHEN: Building a report where only those weekdays are scheduled
	// THEN: Totals net out to the empty day's deficit

	active := punch.DaySchedule{
		Active:       true,
		Start:        punch.MustParseClockTime("08:00"),
		End:          punch.MustParseClockTime("17:00"),
		LunchMinutes: 60,
	}
	tech := scheduledTech()
	tech.Schedule = punch.WeekSchedule{
		"monday": {Active: false}, "tuesday": active, "wednesday": active,
		"thursday": {Active: false}, "friday": {Active: false},
		"saturday": {Active: false}, "sunday": {Active: false},
	}

	punches := []punch.Punch{
		p(punch.TypeClockIn, at(8, 0)),
		p(punch.TypeLunchOut, at(12, 0)),
		p(punch.TypeLunchBack, at(13, 0)),
		p(punch.TypeClockOut, at(17, 0)),
	}

	report := punch.BuildMonthlyReport(tech, 2026, time.March, punches, nil, monthNow())

	// March 2026: five Tuesdays (3, 10, 17, 24, 31), four Wednesdays.
	// Nine scheduled days at 8h, one of them worked in full.
	if report.TotalExpected != 9*8*time.Hour {
		t.Errorf("expected 72h total expected, got %v", report.TotalExpected)
	}
	if report.TotalWorked != 8*time.Hour {
		t.Errorf("expected 8h total worked, got %v", report.TotalWorked)
	}
	if report.TotalBalanceHours().String() != "-64" {
		t.Errorf("expected -64 balance hours, got %s", report.TotalBalanceHours())
	}
}

func TestBuildMonthlyReport_IgnoresPunchesOutsideMonth(t *testing.T) {
	// GIVEN: A punch from February in the input slice
	// WHEN: Building March's report
	// THEN: It contributes nothing

	stray := p(punch.TypeClockIn, time.Date(2026, time.February, 15, 8, 0, 0, 0, testZone))
	report := punch.BuildMonthlyReport(scheduledTech(), 2026, time.March, []punch.Punch{stray}, nil, monthNow())

	if report.TotalWorked != 0 {
		t.Errorf("expected stray punch ignored, got %v worked", report.TotalWorked)
	}
	for _, row := range report.Days {
		if row.HasPunches {
			t.Fatalf("expected no punched rows, found %s", punch.DayKey(row.Date))
		}
	}
}
