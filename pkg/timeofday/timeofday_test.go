package timeofday

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"19:30", 1170, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestString_RoundTrip(t *testing.T) {
	for _, s := range []string{"00:00", "09:05", "14:35", "23:59"} {
		tod, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if tod.String() != s {
			t.Errorf("String() = %q, want %q", tod.String(), s)
		}
	}
}

func TestFromTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 14, 5, 33, 0, time.UTC)
	if got := FromTime(now); got.String() != "14:05" {
		t.Errorf("FromTime = %s, want 14:05", got)
	}
}

func TestJSON(t *testing.T) {
	tod, _ := Parse("12:30")
	b, err := json.Marshal(tod)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"12:30"` {
		t.Errorf("marshal = %s", b)
	}

	var back TimeOfDay
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != tod {
		t.Errorf("round trip = %d, want %d", back, tod)
	}

	if err := json.Unmarshal([]byte(`"25:00"`), &back); err == nil {
		t.Error("expected error for out-of-range time")
	}
}

func TestInWindow(t *testing.T) {
	at := func(s string) TimeOfDay {
		tod, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		return tod
	}

	// Same-day window.
	if !InWindow(at("12:00"), at("09:00"), at("18:00")) {
		t.Error("12:00 should be inside 09:00-18:00")
	}
	if InWindow(at("18:00"), at("09:00"), at("18:00")) {
		t.Error("window end is exclusive")
	}
	if !InWindow(at("09:00"), at("09:00"), at("18:00")) {
		t.Error("window start is inclusive")
	}

	// Window crossing midnight.
	if !InWindow(at("03:00"), at("21:00"), at("06:00")) {
		t.Error("03:00 should be inside 21:00-06:00")
	}
	if !InWindow(at("22:00"), at("21:00"), at("06:00")) {
		t.Error("22:00 should be inside 21:00-06:00")
	}
	if InWindow(at("12:00"), at("21:00"), at("06:00")) {
		t.Error("12:00 should be outside 21:00-06:00")
	}

	// Degenerate window blocks nothing.
	if InWindow(at("12:00"), at("12:00"), at("12:00")) {
		t.Error("empty window should not match")
	}
}
