package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
)

func newTestServer(t *testing.T) (*echo.Echo, *fixture) {
	t.Helper()
	f := newFixture(t)
	e := echo.New()
	h := NewHandler(f.svc, zerolog.Nop())
	h.RegisterRoutes(e.Group("/api/v1"))
	return e, f
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetAvailability(t *testing.T) {
	e, f := newTestServer(t)
	f.mustBook(t, "2025-06-02", "12:30")

	rec := doJSON(e, http.MethodGet, "/api/v1/availability?date=2025-06-02&doctor_id="+f.doctorID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		Date  string   `json:"date"`
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Date != "2025-06-02" {
		t.Errorf("date = %q", resp.Date)
	}
	for _, s := range resp.Slots {
		if s == "12:30" {
			t.Error("12:30 should be excluded")
		}
	}
	if len(resp.Slots) != 16 {
		t.Errorf("slots = %d, want 16", len(resp.Slots))
	}
}

func TestGetAvailability_BadDate(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/api/v1/availability?date=junk", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBookAppointment(t *testing.T) {
	e, f := newTestServer(t)
	body := fmt.Sprintf(`{"doctor_id":%q,"date":"2025-06-02","time":"11:00","patient_ref":"patient-9"}`, f.doctorID)

	rec := doJSON(e, http.MethodPost, "/api/v1/appointments", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var a Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.State != StateScheduled {
		t.Errorf("state = %s", a.State)
	}
}

func TestBookAppointment_ConflictIsActionable(t *testing.T) {
	e, f := newTestServer(t)
	f.mustBook(t, "2025-06-02", "11:00")
	body := fmt.Sprintf(`{"doctor_id":%q,"date":"2025-06-02","time":"11:00","patient_ref":"patient-9"}`, f.doctorID)

	rec := doJSON(e, http.MethodPost, "/api/v1/appointments", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "slot no longer available") {
		t.Errorf("conflict body should tell the caller to pick another slot, got %s", rec.Body)
	}
}

func TestBookAppointment_UnknownDoctor(t *testing.T) {
	e, _ := newTestServer(t)
	body := `{"doctor_id":"7b5b62be-57d7-4a21-9a8a-000000000000","date":"2025-06-02","time":"11:00","patient_ref":"p"}`

	rec := doJSON(e, http.MethodPost, "/api/v1/appointments", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestBookAppointment_MissingFields(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/api/v1/appointments", `{"date":"2025-06-02"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRescheduleAppointment(t *testing.T) {
	e, f := newTestServer(t)
	a := f.mustBook(t, "2025-06-02", "11:00")

	rec := doJSON(e, http.MethodPut, "/api/v1/appointments/"+a.ID.String()+"/reschedule",
		`{"date":"2025-06-03","time":"12:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var moved Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &moved); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if moved.Date.String() != "2025-06-03" {
		t.Errorf("date = %s", moved.Date)
	}
}

func TestRescheduleAppointment_NotFound(t *testing.T) {
	e, _ := newTestServer(t)
	rec := doJSON(e, http.MethodPut, "/api/v1/appointments/7b5b62be-57d7-4a21-9a8a-000000000000/reschedule",
		`{"date":"2025-06-03","time":"12:00"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTransitionAppointment_IllegalNamesStates(t *testing.T) {
	e, f := newTestServer(t)
	a := f.mustBook(t, "2025-06-02", "11:00")

	rec := doJSON(e, http.MethodPut, "/api/v1/appointments/"+a.ID.String()+"/transition",
		`{"state":"completed"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "scheduled") || !strings.Contains(body, "completed") {
		t.Errorf("conflict body should name current and target state, got %s", body)
	}
}

func TestTransitionAppointment_UnknownState(t *testing.T) {
	e, f := newTestServer(t)
	a := f.mustBook(t, "2025-06-02", "11:00")

	rec := doJSON(e, http.MethodPut, "/api/v1/appointments/"+a.ID.String()+"/transition",
		`{"state":"vanished"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBusinessHoursConfig_AdminOnly(t *testing.T) {
	e, _ := newTestServer(t)

	// Anonymous write is rejected by the role guard.
	rec := doJSON(e, http.MethodPut, "/api/v1/config/business-hours",
		`{"opens":"09:00","closes":"18:00","slot_minutes":30,"lead_time_minutes":30}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous write: status = %d, want 401", rec.Code)
	}

	// Reads stay open.
	rec = doJSON(e, http.MethodGet, "/api/v1/config/business-hours", "")
	if rec.Code != http.StatusOK {
		t.Errorf("read: status = %d, want 200", rec.Code)
	}
}

func TestBusinessHoursConfig_AdminWrite(t *testing.T) {
	f := newFixture(t)
	e := echo.New()
	// Simulate an authenticated administrator ahead of the role guard.
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), &auth.Identity{Subject: "admin-1", Role: adminRole})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(f.svc, zerolog.Nop()).RegisterRoutes(e.Group("/api/v1"))

	rec := doJSON(e, http.MethodPut, "/api/v1/config/business-hours",
		`{"opens":"09:00","closes":"18:00","slot_minutes":20,"lead_time_minutes":15}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	hours, err := f.svc.GetHours(context.Background())
	if err != nil {
		t.Fatalf("GetHours: %v", err)
	}
	if hours.SlotMinutes != 20 {
		t.Errorf("slot_minutes = %d, want 20", hours.SlotMinutes)
	}
}
