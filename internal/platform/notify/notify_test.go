package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestWebhook_DeliversSignedEvent(t *testing.T) {
	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- r
		bodies <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, zerolog.Nop(), WithSecret("topsecret"))

	ev := Event{
		AppointmentID: uuid.New(),
		DoctorID:      uuid.New(),
		PatientRef:    "patient-42",
		Event:         "in_progress",
		At:            time.Now(),
	}
	wh.AppointmentEvent(context.Background(), ev)

	select {
	case r := <-received:
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body := <-bodies
		sig := r.Header.Get("X-Webhook-Signature")
		if want := "sha256=" + signPayload(body, "topsecret"); sig != want {
			t.Errorf("signature = %q, want %q", sig, want)
		}
		var got Event
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if got.AppointmentID != ev.AppointmentID || got.Event != "in_progress" {
			t.Errorf("payload = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was never called")
	}
}

func TestWebhook_FailureDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, zerolog.Nop())
	wh.AppointmentEvent(context.Background(), Event{AppointmentID: uuid.New(), Event: "completed"})

	// Also against a dead endpoint.
	wh = NewWebhook("http://127.0.0.1:1", zerolog.Nop())
	wh.AppointmentEvent(context.Background(), Event{AppointmentID: uuid.New(), Event: "completed"})

	time.Sleep(100 * time.Millisecond)
}
