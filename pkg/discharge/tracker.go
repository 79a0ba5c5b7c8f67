package discharge

import (
	"sync"
	"time"

	"github.com/hsbatt/hsbatt/pkg/headset"
)

// Event records one observed drop in battery percentage.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	// Interval is the time since the previous drop, or since tracking
	// started for the first one.
	Interval time.Duration `json:"interval"`
	From     int           `json:"from"`
	To       int           `json:"to"`
}

// Tracker keeps the append-only log of drop events and the baseline the next
// reading is compared against.
type Tracker struct {
	mu *sync.RWMutex

	hasBaseline    bool
	lastPercentage int
	lastTimestamp  time.Time

	events []Event
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		mu:     &sync.RWMutex{},
		events: make([]Event, 0),
	}
}

// Record feeds a reading taken at now into the tracker. It returns the new
// event and true when the reading is a drop below the baseline.
//
// Disconnected readings are ignored. The first connected reading only sets
// the baseline. Readings equal to or above the baseline are ignored too, so
// charging does not move the baseline.
func (t *Tracker) Record(reading headset.Reading, now time.Time) (Event, bool) {
	if !reading.Connected() {
		return Event{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Strip monotonic clock reading, so intervals spanning a system sleep
	// are measured in wall time.
	now = now.Round(0)
	p := int(reading)

	if !t.hasBaseline {
		t.hasBaseline = true
		t.lastPercentage = p
		t.lastTimestamp = now
		return Event{}, false
	}

	if p >= t.lastPercentage {
		return Event{}, false
	}

	e := Event{
		Timestamp: now,
		Interval:  now.Sub(t.lastTimestamp),
		From:      t.lastPercentage,
		To:        p,
	}
	t.events = append(t.events, e)

	t.lastPercentage = p
	t.lastTimestamp = now

	return e, true
}

// History returns a copy of all events, oldest first.
func (t *Tracker) History() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Len returns the number of recorded events.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.events)
}

// Baseline returns the percentage and time the next reading is compared
// against. ok is false until the first connected reading.
func (t *Tracker) Baseline() (percentage int, at time.Time, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.lastPercentage, t.lastTimestamp, t.hasBaseline
}
