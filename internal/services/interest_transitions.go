package services

import (
	"fmt"
	"strings"
	"time"

	"unistay/internal/models"
)

// Statuses a participant may set through UpdateStatus. IN_CONTACT is
// missing on purpose: only ProposeAvailability reaches it.
var manualStatusTargets = map[models.InterestStatus]bool{
	models.StatusCreated:  true,
	models.StatusAccepted: true,
	models.StatusRejected: true,
	models.StatusClosed:   true,
}

// Source statuses for the dedicated transitions. A nil set means any.
var confirmFrom = map[models.InterestStatus]bool{
	models.StatusInContact: true,
}

func canTransition(from models.InterestStatus, allowed map[models.InterestStatus]bool) bool {
	if allowed == nil {
		return true
	}
	return allowed[from]
}

// window is a parsed availability proposal.
type window struct {
	firstDay time.Time
	lastDay  time.Time
	start    time.Duration // offset from midnight
	end      time.Duration
	slot     time.Duration
}

func parseWindow(a models.Availability) (window, error) {
	var w window
	var err error
	if w.firstDay, err = time.Parse(models.DateLayout, a.StartDate); err != nil {
		return w, validationf("start_date must be YYYY-MM-DD")
	}
	if w.lastDay, err = time.Parse(models.DateLayout, a.EndDate); err != nil {
		return w, validationf("end_date must be YYYY-MM-DD")
	}
	if w.start, err = clockOffset(a.StartTime); err != nil {
		return w, validationf("start_time must be HH:MM")
	}
	if w.end, err = clockOffset(a.EndTime); err != nil {
		return w, validationf("end_time must be HH:MM")
	}
	w.slot = time.Duration(a.SlotDurationMinutes) * time.Minute

	if w.lastDay.Before(w.firstDay) {
		return w, validationf("end_date is before start_date")
	}
	if w.end <= w.start {
		return w, validationf("end_time must be after start_time")
	}
	if w.slot <= 0 || w.slot > w.end-w.start {
		return w, validationf("slot_duration_minutes must fit inside the daily window")
	}
	return w, nil
}

func clockOffset(hhmm string) (time.Duration, error) {
	t, err := time.Parse(models.TimeLayout, hhmm)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// parseSlot reads a UTC slot start with or without seconds.
func parseSlot(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{models.SlotLayout, models.SlotLayoutSeconds} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, validationf("chosen_slot must be YYYY-MM-DDTHH:MM or YYYY-MM-DDTHH:MM:SS")
}

// checkSlot verifies that slot starts on the window's grid and ends inside it.
func (w window) checkSlot(slot time.Time) error {
	day := time.Date(slot.Year(), slot.Month(), slot.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(w.firstDay) || day.After(w.lastDay) {
		return validationf("chosen slot is outside the proposed dates")
	}
	offset := slot.Sub(day)
	if offset < w.start || offset+w.slot > w.end {
		return validationf("chosen slot is outside the proposed hours")
	}
	if (offset-w.start)%w.slot != 0 {
		return validationf("chosen slot must start on a %d-minute boundary from %s",
			int(w.slot/time.Minute), formatOffset(w.start))
	}
	return nil
}

func formatOffset(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
