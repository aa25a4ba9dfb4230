/*
report.go - Monthly balance report

PURPOSE:
  Builds the per-day balance report for one technician and month: first
  clock-in, lunch window, last clock-out, worked and lunch durations,
  expected minutes and the resulting balance. Admin UI and CSV export
  consume these rows directly.

DESIGN:
  The report uses the closed-form day math of the original dashboard
  (entry/lunch-out/lunch-back/exit pairings) rather than re-running the
  live state machine, and only accrues partial time up to "now" when the
  row's date is today. Special-status days zero worked, lunch and expected,
  so their balance is exactly zero.

PRECISION:
  Hour-valued figures are decimal.Decimal rounded to 2 places, so report
  totals never accumulate float drift.
*/
package punch

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT ROWS
// =============================================================================

// ReportDay is one calendar day of the monthly report.
type ReportDay struct {
	Date       time.Time
	WeekdayKey string

	Entry     *Punch
	LunchOut  *Punch
	LunchBack *Punch
	Exit      *Punch

	// OfflineLunch is the fixed-duration lunch punch applied to this day,
	// if any, kept so its justification can be displayed.
	OfflineLunch *Punch

	Worked   time.Duration
	Lunch    time.Duration
	Expected time.Duration
	Balance  time.Duration

	HasPunches    bool
	SpecialStatus PunchType // zero value when the day is ordinary
	Punches       []Punch
}

// WorkedHours returns the worked duration in decimal hours (2 dp).
func (d ReportDay) WorkedHours() decimal.Decimal { return hours(d.Worked) }

// ExpectedHours returns the expected duration in decimal hours (2 dp).
func (d ReportDay) ExpectedHours() decimal.Decimal { return hours(d.Expected) }

// BalanceHours returns worked minus expected in decimal hours (2 dp).
func (d ReportDay) BalanceHours() decimal.Decimal { return hours(d.Worked).Sub(hours(d.Expected)) }

func hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromFloat(d.Hours()).Round(2)
}

// MonthlyReport is the full month plus totals.
type MonthlyReport struct {
	TechEmail string
	Year      int
	Month     time.Month
	Days      []ReportDay

	TotalWorked   time.Duration
	TotalExpected time.Duration
	TotalBalance  time.Duration
}

// TotalBalanceHours returns the month balance in decimal hours (2 dp).
func (r MonthlyReport) TotalBalanceHours() decimal.Decimal {
	return hours(r.TotalWorked).Sub(hours(r.TotalExpected))
}

// =============================================================================
// REPORT CONSTRUCTION
// =============================================================================

// BuildMonthlyReport computes the report for one technician and month.
// monthPunches must already be restricted to the technician; punches outside
// the month are ignored. now bounds partial accrual for today's row.
func BuildMonthlyReport(user User, year int, month time.Month, monthPunches []Punch, holidays HolidaySet, now time.Time) MonthlyReport {
	loc := now.Location()
	start, end := MonthBounds(year, month, loc)

	byDay := make(map[string][]Punch)
	for _, p := range monthPunches {
		ts := p.Timestamp.In(loc)
		if ts.Before(start) || !ts.Before(end) {
			continue
		}
		key := DayKey(ts)
		byDay[key] = append(byDay[key], p)
	}

	report := MonthlyReport{TechEmail: user.Email, Year: year, Month: month}
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		row := buildReportDay(user, day, byDay[DayKey(day)], holidays, now)
		report.TotalWorked += row.Worked
		report.TotalExpected += row.Expected
		report.TotalBalance += row.Balance
		report.Days = append(report.Days, row)
	}
	return report
}

func buildReportDay(user User, day time.Time, dayPunches []Punch, holidays HolidaySet, now time.Time) ReportDay {
	session := ReconstructDay(dayPunches, DayOptions{})

	row := ReportDay{
		Date:       day,
		WeekdayKey: WeekdayKey(day.Weekday()),
		HasPunches: len(dayPunches) > 0,
		Punches:    dayPunches,
	}

	for i := range dayPunches {
		p := &dayPunches[i]
		switch p.Type {
		case TypeClockIn:
			if row.Entry == nil {
				row.Entry = p
			}
		case TypeLunchOut:
			if row.LunchOut == nil {
				row.LunchOut = p
			}
		case TypeLunchBack:
			if row.LunchBack == nil {
				row.LunchBack = p
			}
		case TypeClockOut:
			row.Exit = p // last one wins
		case TypeMedicalLeave, TypeVacation, TypeDayOff:
			row.SpecialStatus = p.Type
		}
		if p.Type.IsFixedLunch() {
			row.OfflineLunch = p
		}
	}

	isToday := SameDay(day, now)

	switch {
	case session.HasSpecialStatus():
		// Excused day: everything zero, balance closes at exactly zero.
		row.Worked, row.Lunch, row.Expected = 0, 0, 0

	case row.OfflineLunch != nil:
		row.Lunch = row.OfflineLunch.FixedLunchDuration()
		if row.Entry != nil {
			end := endOfDaySpan(row.Exit, row.Entry, isToday, now)
			worked := end.Sub(row.Entry.Timestamp) - row.Lunch
			if worked < 0 {
				worked = 0
			}
			row.Worked = worked
		}
		row.Expected = expectedDuration(user, day, holidays, dayPunches)

	default:
		if row.LunchOut != nil && row.LunchBack != nil {
			row.Lunch = row.LunchBack.Timestamp.Sub(row.LunchOut.Timestamp)
		}
		row.Worked = standardWorked(row, isToday, now)
		row.Expected = expectedDuration(user, day, holidays, dayPunches)
	}

	row.Balance = row.Worked - row.Expected
	return row
}

// standardWorked mirrors the pairing ladder of the original report: each
// recorded pair closes an interval, and only today's row accrues up to now.
func standardWorked(row ReportDay, isToday bool, now time.Time) time.Duration {
	entry, lunchOut, lunchBack, exit := row.Entry, row.LunchOut, row.LunchBack, row.Exit

	var worked time.Duration
	switch {
	case entry != nil && lunchOut != nil && lunchBack != nil && exit != nil:
		worked = lunchOut.Timestamp.Sub(entry.Timestamp) + exit.Timestamp.Sub(lunchBack.Timestamp)
	case entry != nil && lunchOut != nil && lunchBack != nil:
		worked = lunchOut.Timestamp.Sub(entry.Timestamp)
		if isToday {
			worked += now.Sub(lunchBack.Timestamp)
		}
	case entry != nil && lunchOut != nil:
		worked = lunchOut.Timestamp.Sub(entry.Timestamp)
	case entry != nil && exit != nil:
		worked = exit.Timestamp.Sub(entry.Timestamp)
	case entry != nil && isToday:
		worked = now.Sub(entry.Timestamp)
	}
	if worked < 0 {
		worked = 0
	}
	return worked
}

func endOfDaySpan(exit, entry *Punch, isToday bool, now time.Time) time.Time {
	if exit != nil {
		return exit.Timestamp
	}
	if isToday {
		return now
	}
	return entry.Timestamp
}

func expectedDuration(user User, day time.Time, holidays HolidaySet, dayPunches []Punch) time.Duration {
	return time.Duration(ExpectedMinutes(user, day, holidays, dayPunches)) * time.Minute
}
