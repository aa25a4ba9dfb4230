/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract. Field names follow the
  document shapes the existing clients already read and write.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - punch/types.go: Domain model behind them
*/
package api

import (
	"time"

	"github.com/fieldops/punch-engine/punch"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ManualNotificationRequest is the ad hoc push request from the admin UI.
type ManualNotificationRequest struct {
	UserIDs []string `json:"userIds"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
}

// ManualNotificationResponse reports the multicast outcome.
type ManualNotificationResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
}

// CheckResponse is the outcome of an on-demand job run.
type CheckResponse struct {
	Success           bool `json:"success"`
	NotificationsSent int  `json:"notificationsSent,omitempty"`
	Processed         int  `json:"processed,omitempty"`
}

// CreatePunchRequest is a punch insert from a technician or admin client.
type CreatePunchRequest struct {
	TechEmail       string          `json:"techEmail"`
	TechName        string          `json:"techName"`
	Type            string          `json:"type"`
	Timestamp       time.Time       `json:"timestamp"`
	Location        *punch.Location `json:"location,omitempty"`
	Justification   string          `json:"justification,omitempty"`
	DurationMinutes int             `json:"durationMinutes,omitempty"`
	SourceDevice    string          `json:"sourceDevice,omitempty"`
}

// PunchDTO is a punch in API responses.
type PunchDTO struct {
	ID              string          `json:"id"`
	TechEmail       string          `json:"techEmail"`
	TechName        string          `json:"techName,omitempty"`
	Type            string          `json:"type"`
	Timestamp       string          `json:"timestamp"`
	Location        *punch.Location `json:"location,omitempty"`
	Justification   string          `json:"justification,omitempty"`
	DurationMinutes int             `json:"durationMinutes,omitempty"`
	SourceDevice    string          `json:"sourceDevice,omitempty"`
	EditedByAdmin   bool            `json:"editedByAdmin,omitempty"`
}

// StatusDTO is one technician's live day session.
type StatusDTO struct {
	TechEmail     string `json:"techEmail"`
	TechName      string `json:"techName"`
	Date          string `json:"date"`
	Status        string `json:"status"`
	WorkedMinutes int    `json:"workedMinutes"`
	LunchMinutes  int    `json:"lunchMinutes"`
	LastType      string `json:"lastType,omitempty"`
	NextAction    string `json:"nextAction"`
	Completed     bool   `json:"completed"`

	// OfflineLunch surfaces the fixed-duration lunch applied to the day,
	// when any, so the client can display its justification.
	OfflineLunch *PunchDTO `json:"offlineLunch,omitempty"`
}

// ReportDayDTO is one calendar day of the monthly report.
type ReportDayDTO struct {
	Date          string `json:"date"`
	Weekday       string `json:"weekday"`
	Entry         string `json:"entry,omitempty"`
	LunchOut      string `json:"lunchOut,omitempty"`
	LunchBack     string `json:"lunchBack,omitempty"`
	Exit          string `json:"exit,omitempty"`
	WorkedHours   string `json:"workedHours"`
	ExpectedHours string `json:"expectedHours"`
	BalanceHours  string `json:"balanceHours"`
	SpecialStatus string `json:"specialStatus,omitempty"`
	HasPunches    bool   `json:"hasPunches"`
}

// MonthlyReportDTO is the full monthly report response.
type MonthlyReportDTO struct {
	TechEmail         string         `json:"techEmail"`
	Month             string         `json:"month"`
	Days              []ReportDayDTO `json:"days"`
	TotalBalanceHours string         `json:"totalBalanceHours"`
}

// CloseDayRequest is the admin manual day close: inserts a clock-out punch
// at the given local date and time.
type CloseDayRequest struct {
	Date string `json:"date"` // "2006-01-02"
	Time string `json:"time"` // "HH:MM"
}

// HolidayDTO mirrors the holiday calendar documents.
type HolidayDTO struct {
	ID   string `json:"id,omitempty"`
	Date string `json:"date"`
	Name string `json:"name"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPunchDTO(p punch.Punch) PunchDTO {
	return PunchDTO{
		ID:              p.ID,
		TechEmail:       p.TechEmail,
		TechName:        p.TechName,
		Type:            string(p.Type),
		Timestamp:       p.Timestamp.Format(time.RFC3339),
		Location:        p.Location,
		Justification:   p.Justification,
		DurationMinutes: p.DurationMinutes,
		SourceDevice:    p.SourceDevice,
		EditedByAdmin:   p.EditedByAdmin,
	}
}

func toStatusDTO(u punch.User, day time.Time, punches []punch.Punch, session punch.DaySession) StatusDTO {
	dto := StatusDTO{
		TechEmail:     u.Email,
		TechName:      u.Name,
		Date:          punch.DayKey(day),
		Status:        string(session.Status),
		WorkedMinutes: int(session.Worked.Minutes()),
		LunchMinutes:  int(session.Lunch.Minutes()),
		LastType:      string(session.LastType),
		NextAction:    string(punch.NextAction(punches)),
		Completed:     session.Completed,
	}
	if session.OfflineLunch != nil {
		offline := toPunchDTO(*session.OfflineLunch)
		dto.OfflineLunch = &offline
	}
	return dto
}

func toReportDayDTO(d punch.ReportDay) ReportDayDTO {
	dto := ReportDayDTO{
		Date:          punch.DayKey(d.Date),
		Weekday:       d.WeekdayKey,
		WorkedHours:   d.WorkedHours().StringFixed(2),
		ExpectedHours: d.ExpectedHours().StringFixed(2),
		BalanceHours:  d.BalanceHours().StringFixed(2),
		SpecialStatus: string(d.SpecialStatus),
		HasPunches:    d.HasPunches,
	}
	if d.Entry != nil {
		dto.Entry = d.Entry.Timestamp.Format("15:04")
	}
	if d.LunchOut != nil {
		dto.LunchOut = d.LunchOut.Timestamp.Format("15:04")
	}
	if d.LunchBack != nil {
		dto.LunchBack = d.LunchBack.Timestamp.Format("15:04")
	}
	if d.Exit != nil {
		dto.Exit = d.Exit.Timestamp.Format("15:04")
	}
	return dto
}
