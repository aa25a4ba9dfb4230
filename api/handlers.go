/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the engine via REST. Handles HTTP request/response, JSON
  serialization, and delegates to the domain packages.

ENDPOINTS:
  Notifications:
    POST /api/notifications/manual       Ad hoc push to selected users

  Checks (on-demand job triggers):
    POST /api/checks/schedules           Run the compliance scanner now
    POST /api/checks/autolunch           Run the auto-lunch inserter now

  Attendance:
    POST /api/punches                    Insert a validated punch
    GET  /api/technicians                Live day sessions, all technicians
    GET  /api/technicians/{id}/status    One technician's day session
    GET  /api/technicians/{id}/report    Monthly balance report
    POST /api/technicians/{id}/close     Admin manual day close

  Holidays:
    GET/POST /api/holidays, DELETE /api/holidays/{id}

ERROR HANDLING:
  Errors are returned as JSON with a machine-readable code:
  - 400 invalid-argument: malformed requests, rejected punches
  - 404 not-found: unknown technician
  - 500 internal: store or dispatch failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: The scheduled counterparts of the check endpoints
*/
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fieldops/punch-engine/autolunch"
	"github.com/fieldops/punch-engine/compliance"
	"github.com/fieldops/punch-engine/notify"
	"github.com/fieldops/punch-engine/punch"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      punch.Store
	Dispatcher notify.Dispatcher
	Scanner    *compliance.Scanner
	Inserter   *autolunch.Inserter

	// Loc is the fixed local time zone used for "now" and weekday math.
	Loc *time.Location

	// Now is swappable for tests; defaults to time.Now in Loc.
	Now func() time.Time
}

// NewHandler creates a handler wired to the given store and dispatcher.
func NewHandler(store punch.Store, dispatcher notify.Dispatcher, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		Store:      store,
		Dispatcher: dispatcher,
		Scanner:    compliance.NewScanner(store, dispatcher),
		Inserter:   autolunch.NewInserter(store, dispatcher),
		Loc:        loc,
		Now:        func() time.Time { return time.Now().In(loc) },
	}
}

func (h *Handler) now() time.Time { return h.Now().In(h.Loc) }

// =============================================================================
// MANUAL NOTIFICATIONS
// =============================================================================

// SendManualNotification pushes an ad hoc message to selected users.
func (h *Handler) SendManualNotification(w http.ResponseWriter, r *http.Request) {
	var req ManualNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid request body")
		return
	}
	if len(req.UserIDs) == 0 || req.Title == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Missing userIds, title or body")
		return
	}

	ctx := r.Context()
	var tokens []string
	for _, id := range req.UserIDs {
		user, err := h.Store.GetByID(ctx, id)
		if err != nil {
			log.Printf("[API] Error loading user %s for manual notification: %v", id, err)
			continue
		}
		if user == nil {
			continue
		}
		tokens = append(tokens, user.PushTokens...)
	}

	tokens = notify.DedupTokens(tokens)
	if len(tokens) == 0 {
		writeJSON(w, http.StatusOK, ManualNotificationResponse{
			Success: true,
			Result:  "no tokens found for the selected users",
		})
		return
	}

	sent, err := h.Dispatcher.Send(ctx, notify.Notification{
		Title:  req.Title,
		Body:   req.Body,
		Tokens: tokens,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to dispatch notification")
		return
	}

	writeJSON(w, http.StatusOK, ManualNotificationResponse{
		Success: true,
		Result:  fmt.Sprintf("delivered to %d token(s)", sent),
	})
}

// =============================================================================
// ON-DEMAND JOB TRIGGERS
// =============================================================================

// RunScheduleCheck runs the compliance scanner immediately.
func (h *Handler) RunScheduleCheck(w http.ResponseWriter, r *http.Request) {
	sent, err := h.Scanner.Run(r.Context(), h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Schedule check failed")
		return
	}
	writeJSON(w, http.StatusOK, CheckResponse{Success: true, NotificationsSent: sent})
}

// RunAutoLunchCheck runs the auto-lunch inserter immediately.
func (h *Handler) RunAutoLunchCheck(w http.ResponseWriter, r *http.Request) {
	processed, err := h.Inserter.Run(r.Context(), h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Auto-lunch check failed")
		return
	}
	writeJSON(w, http.StatusOK, CheckResponse{Success: true, Processed: processed})
}

// =============================================================================
// PUNCHES
// =============================================================================

// CreatePunch validates and persists one punch. Rejected punches are never
// stored.
func (h *Handler) CreatePunch(w http.ResponseWriter, r *http.Request) {
	var req CreatePunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid request body")
		return
	}

	p := punch.Punch{
		ID:              uuid.NewString(),
		TechEmail:       req.TechEmail,
		TechName:        req.TechName,
		Type:            punch.PunchType(req.Type),
		Timestamp:       req.Timestamp.In(h.Loc),
		Location:        req.Location,
		Justification:   req.Justification,
		DurationMinutes: req.DurationMinutes,
		SourceDevice:    req.SourceDevice,
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", err.Error())
		return
	}

	if err := h.Store.Append(r.Context(), p); err != nil {
		if punch.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "invalid-argument", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "Failed to save punch")
		return
	}
	writeJSON(w, http.StatusCreated, toPunchDTO(p))
}

// =============================================================================
// LIVE STATUS
// =============================================================================

// ListTechnicianStatuses reconstructs every technician's session for the
// requested day (default today). Today's sessions are open-ended.
func (h *Handler) ListTechnicianStatuses(w http.ResponseWriter, r *http.Request) {
	day, ok := h.parseDay(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	ctx := r.Context()
	technicians, err := h.Store.ListByRole(ctx, punch.RoleTechnician)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to list technicians")
		return
	}

	now := h.now()
	openEnded := punch.SameDay(day, now)

	statuses := make([]StatusDTO, 0, len(technicians))
	for _, tech := range technicians {
		punches, err := h.Store.ListByTechAndDay(ctx, tech.Email, day)
		if err != nil {
			log.Printf("[API] Error loading punches for %s, skipping: %v", tech.Email, err)
			continue
		}
		session := punch.ReconstructDay(punches, punch.DayOptions{OpenEnded: openEnded, Now: now})
		statuses = append(statuses, toStatusDTO(tech, day, punches, session))
	}
	writeJSON(w, http.StatusOK, statuses)
}

// GetTechnicianStatus reconstructs one technician's session for a day.
func (h *Handler) GetTechnicianStatus(w http.ResponseWriter, r *http.Request) {
	tech, ok := h.loadTechnician(w, r)
	if !ok {
		return
	}
	day, ok := h.parseDay(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}

	punches, err := h.Store.ListByTechAndDay(r.Context(), tech.Email, day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to load punches")
		return
	}

	now := h.now()
	session := punch.ReconstructDay(punches, punch.DayOptions{
		OpenEnded: punch.SameDay(day, now),
		Now:       now,
	})
	writeJSON(w, http.StatusOK, toStatusDTO(*tech, day, punches, session))
}

// =============================================================================
// MONTHLY REPORT
// =============================================================================

// GetMonthlyReport returns the per-day balance report for one technician.
func (h *Handler) GetMonthlyReport(w http.ResponseWriter, r *http.Request) {
	tech, ok := h.loadTechnician(w, r)
	if !ok {
		return
	}

	monthParam := r.URL.Query().Get("month")
	parsed, err := time.ParseInLocation("2006-01", monthParam, h.Loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid month (use YYYY-MM)")
		return
	}

	ctx := r.Context()
	punches, err := h.Store.ListByTechAndMonth(ctx, tech.Email, parsed.Year(), parsed.Month(), h.Loc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to load punches")
		return
	}
	holidayList, err := h.Store.ListHolidays(ctx)
	if err != nil {
		log.Printf("[API] Error loading holidays, report proceeds without them: %v", err)
	}

	report := punch.BuildMonthlyReport(*tech, parsed.Year(), parsed.Month(), punches,
		punch.NewHolidaySet(holidayList), h.now())

	dto := MonthlyReportDTO{
		TechEmail:         report.TechEmail,
		Month:             monthParam,
		TotalBalanceHours: report.TotalBalanceHours().StringFixed(2),
	}
	for _, d := range report.Days {
		dto.Days = append(dto.Days, toReportDayDTO(d))
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// ADMIN DAY CLOSE
// =============================================================================

// CloseTechnicianDay inserts an admin clock-out punch at the given local
// date and time, closing a day the technician forgot to end.
func (h *Handler) CloseTechnicianDay(w http.ResponseWriter, r *http.Request) {
	tech, ok := h.loadTechnician(w, r)
	if !ok {
		return
	}

	var req CloseDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid request body")
		return
	}
	day, err := time.ParseInLocation("2006-01-02", req.Date, h.Loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid date (use YYYY-MM-DD)")
		return
	}
	clock, err := punch.ParseClockTime(req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid time (use HH:MM)")
		return
	}

	p := punch.Punch{
		ID:            uuid.NewString(),
		TechEmail:     tech.Email,
		TechName:      tech.Name,
		Type:          punch.TypeClockOut,
		Timestamp:     punch.AtClock(day, clock),
		SourceDevice:  "Ajuste Manual Gestor",
		EditedByAdmin: true,
	}
	if err := h.Store.Append(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to close day")
		return
	}
	writeJSON(w, http.StatusCreated, toPunchDTO(p))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to list holidays")
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{ID: hol.ID, Date: punch.DayKey(hol.Date), Name: hol.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid request body")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, h.Loc)
	if err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Missing or invalid date/name")
		return
	}

	holiday := punch.Holiday{ID: uuid.NewString(), Date: date, Name: req.Name}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to save holiday")
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{ID: holiday.ID, Date: req.Date, Name: holiday.Name})
}

func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to delete holiday")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// loadTechnician resolves the {id} URL param, writing the error response
// itself when the user is missing.
func (h *Handler) loadTechnician(w http.ResponseWriter, r *http.Request) (*punch.User, bool) {
	id := chi.URLParam(r, "id")
	user, err := h.Store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to load user")
		return nil, false
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "not-found", "Technician not found")
		return nil, false
	}
	return user, true
}

// parseDay parses an optional "date" query param, defaulting to today.
func (h *Handler) parseDay(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return h.now(), true
	}
	day, err := time.ParseInLocation("2006-01-02", raw, h.Loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid-argument", "Invalid date (use YYYY-MM-DD)")
		return time.Time{}, false
	}
	return day, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
