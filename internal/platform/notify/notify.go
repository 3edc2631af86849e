// Package notify pushes appointment lifecycle events to the clinical
// records system. Delivery is best effort: a visit must never fail to
// start because the downstream webhook is down.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event describes a state change on one appointment.
type Event struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	PatientRef    string    `json:"patient_ref"`
	Event         string    `json:"event"`
	At            time.Time `json:"at"`
}

// Notifier delivers appointment events to interested systems.
type Notifier interface {
	AppointmentEvent(ctx context.Context, ev Event)
}

// Nop discards all events. Used when no clinical records URL is
// configured and in tests.
type Nop struct{}

func (Nop) AppointmentEvent(context.Context, Event) {}

// Webhook POSTs events to a single configured endpoint, signing the
// payload with HMAC-SHA256 when a secret is set.
type Webhook struct {
	url    string
	secret string
	client *http.Client
	logger zerolog.Logger
}

// Option configures a Webhook.
type Option func(*Webhook)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Webhook) { w.client = c }
}

// WithSecret enables payload signing.
func WithSecret(secret string) Option {
	return func(w *Webhook) { w.secret = secret }
}

func NewWebhook(url string, logger zerolog.Logger, opts ...Option) *Webhook {
	w := &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// AppointmentEvent delivers the event in the background. The caller's
// context only carries values; delivery gets its own deadline so an
// already-answered request does not cancel it.
func (w *Webhook) AppointmentEvent(_ context.Context, ev Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := w.deliver(ctx, ev); err != nil {
			w.logger.Warn().Err(err).
				Str("appointment_id", ev.AppointmentID.String()).
				Str("event", ev.Event).
				Msg("clinical records notification failed")
		}
	}()
}

func (w *Webhook) deliver(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Timestamp", ev.At.UTC().Format(time.RFC3339))
	if w.secret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+signPayload(payload, w.secret))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx response: %d", resp.StatusCode)
	}
	return nil
}

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
