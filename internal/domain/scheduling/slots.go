package scheduling

import (
	"fmt"

	"github.com/clinic/clinic/pkg/timeofday"
)

// GenerateSlots expands business hours into the ordered set of bookable
// start times: opens, opens+granularity, ... strictly below closes.
// Pure; occupancy and lead-time filtering happen in the availability
// calculator.
func GenerateSlots(h BusinessHours) ([]timeofday.TimeOfDay, error) {
	if h.SlotMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot granularity must be positive, got %d", ErrBadConfig, h.SlotMinutes)
	}
	if h.Opens >= h.Closes {
		return nil, fmt.Errorf("%w: opens %s must be before closes %s", ErrBadConfig, h.Opens, h.Closes)
	}

	slots := make([]timeofday.TimeOfDay, 0, (int(h.Closes)-int(h.Opens))/h.SlotMinutes)
	for t := h.Opens; t < h.Closes; t = t.Add(h.SlotMinutes) {
		slots = append(slots, t)
	}
	return slots, nil
}
