package discharge

import (
	"math"
	"slices"
	"time"

	"github.com/hsbatt/hsbatt/pkg/headset"
)

// DefaultWindowSize is how many recent drops the moving average covers.
const DefaultWindowSize = 5

// Estimate is the discharge rate derived from the most recent drops. Both
// durations are nil while there is nothing to average ("calculating").
type Estimate struct {
	AverageIntervalPerPercent *time.Duration `json:"averageIntervalPerPercent,omitempty"`
	TimeRemaining             *time.Duration `json:"timeRemaining,omitempty"`
	// Samples is the number of events the average was taken over.
	Samples int `json:"samples"`
}

// Calculating reports whether no average is available yet.
func (e Estimate) Calculating() bool {
	return e.AverageIntervalPerPercent == nil
}

// Calculate averages the intervals of the windowSize most recent events and
// projects the time left at current. A windowSize <= 0 means
// DefaultWindowSize. It does not modify events.
func Calculate(events []Event, windowSize int, current headset.Reading) Estimate {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	recent := mostRecent(events, windowSize)
	if len(recent) == 0 {
		return Estimate{}
	}

	var sum float64
	for _, e := range recent {
		sum += float64(e.Interval)
	}
	avg := time.Duration(math.RoundToEven(sum / float64(len(recent))))

	est := Estimate{
		AverageIntervalPerPercent: &avg,
		Samples:                   len(recent),
	}

	if current.Connected() {
		remaining := avg * time.Duration(current)
		est.TimeRemaining = &remaining
	}

	return est
}

// mostRecent returns up to n events ordered by timestamp, newest first.
// Events with equal timestamps keep their insertion order.
func mostRecent(events []Event, n int) []Event {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
