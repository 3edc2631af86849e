package scheduling

import (
	"errors"
	"testing"

	"github.com/clinic/clinic/pkg/timeofday"
)

func tod(t *testing.T, s string) timeofday.TimeOfDay {
	t.Helper()
	v, err := timeofday.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestGenerateSlots(t *testing.T) {
	h := BusinessHours{Opens: tod(t, "11:00"), Closes: tod(t, "19:30"), SlotMinutes: 30}

	slots, err := GenerateSlots(h)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}

	want := (int(h.Closes) - int(h.Opens)) / h.SlotMinutes
	if len(slots) != want {
		t.Errorf("len = %d, want %d", len(slots), want)
	}
	if slots[0] != h.Opens {
		t.Errorf("first slot = %s, want %s", slots[0], h.Opens)
	}
	if last := slots[len(slots)-1]; last != tod(t, "19:00") {
		t.Errorf("last slot = %s, want 19:00 (closes is exclusive)", last)
	}
	for i := 1; i < len(slots); i++ {
		if slots[i] <= slots[i-1] {
			t.Errorf("slots not strictly increasing at %d: %s <= %s", i, slots[i], slots[i-1])
		}
		if slots[i] >= h.Closes {
			t.Errorf("slot %s outside [opens, closes)", slots[i])
		}
	}
}

func TestGenerateSlots_BadConfig(t *testing.T) {
	cases := []struct {
		name string
		h    BusinessHours
	}{
		{"opens equals closes", BusinessHours{Opens: tod(t, "09:00"), Closes: tod(t, "09:00"), SlotMinutes: 30}},
		{"opens after closes", BusinessHours{Opens: tod(t, "18:00"), Closes: tod(t, "09:00"), SlotMinutes: 30}},
		{"zero granularity", BusinessHours{Opens: tod(t, "09:00"), Closes: tod(t, "18:00"), SlotMinutes: 0}},
		{"negative granularity", BusinessHours{Opens: tod(t, "09:00"), Closes: tod(t, "18:00"), SlotMinutes: -15}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := GenerateSlots(tc.h); !errors.Is(err, ErrBadConfig) {
				t.Errorf("expected ErrBadConfig, got %v", err)
			}
		})
	}
}

func TestGenerateSlots_UnevenGranularity(t *testing.T) {
	// 09:00-10:00 in 45-minute steps yields 09:00 and 09:45 only.
	h := BusinessHours{Opens: tod(t, "09:00"), Closes: tod(t, "10:00"), SlotMinutes: 45}
	slots, err := GenerateSlots(h)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if len(slots) != 2 || slots[0] != tod(t, "09:00") || slots[1] != tod(t, "09:45") {
		t.Errorf("slots = %v", slots)
	}
}
