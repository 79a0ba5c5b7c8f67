package types

import (
	"fmt"
	"time"

	"github.com/hsbatt/hsbatt/pkg/discharge"
	"github.com/hsbatt/hsbatt/pkg/headset"
)

// State summarizes a Status for consumers that only need to pick an icon or
// a message.
type State string

const (
	StateDisconnected State = "disconnected"
	// StateCalculating means connected, but no drop has been seen yet.
	StateCalculating State = "calculating"
	StateEstimating  State = "estimating"
)

// Status is the snapshot published after every poll tick.
// This struct is shared between the daemon and client packages.
type Status struct {
	Percentage int       `json:"percentage"`
	Connected  bool      `json:"connected"`
	State      State     `json:"state"`
	Timestamp  time.Time `json:"timestamp"`

	discharge.Estimate
}

// NewStatus builds the snapshot for reading and est taken at now.
func NewStatus(reading headset.Reading, est discharge.Estimate, now time.Time) Status {
	s := Status{
		Percentage: int(reading),
		Connected:  reading.Connected(),
		Timestamp:  now.Round(0),
		Estimate:   est,
	}

	switch {
	case !s.Connected:
		s.State = StateDisconnected
		// A disconnected headset has no meaningful time left.
		s.TimeRemaining = nil
	case est.TimeRemaining == nil:
		s.State = StateCalculating
	default:
		s.State = StateEstimating
	}

	return s
}

// String renders the text shown in the tray tooltip.
func (s Status) String() string {
	if !s.Connected {
		return "Headset disconnected"
	}

	msg := fmt.Sprintf("Battery left: %d%%", s.Percentage)
	if s.TimeRemaining != nil {
		msg += "\nEstimate left: ~" + FormatHoursMinutes(*s.TimeRemaining) + "h"
	}
	return msg
}

// FormatHoursMinutes formats d as hh:mm using total hours, so 26h30m is
// "26:30".
func FormatHoursMinutes(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Minute)
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
