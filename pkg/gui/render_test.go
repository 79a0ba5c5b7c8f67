package gui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsbatt/hsbatt/pkg/discharge"
	"github.com/hsbatt/hsbatt/pkg/headset"
	"github.com/hsbatt/hsbatt/pkg/types"
)

func TestLevelBucket(t *testing.T) {
	tests := []struct {
		percentage int
		want       int
	}{
		{-1, 0},
		{0, 0},
		{1, 25},
		{25, 25},
		{26, 50},
		{50, 50},
		{51, 75},
		{75, 75},
		{76, 100},
		{100, 100},
		{101, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelBucket(tt.percentage), "percentage %d", tt.percentage)
	}
}

func TestTitleAndEstimateLine(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	avg := 90 * time.Second

	tests := []struct {
		name         string
		status       types.Status
		wantTitle    string
		wantEstimate string
	}{
		{
			name:         "disconnected",
			status:       types.NewStatus(headset.Disconnected, discharge.Estimate{}, now),
			wantTitle:    "🎧 ▯",
			wantEstimate: "Estimate: -",
		},
		{
			name:         "calculating",
			status:       types.NewStatus(60, discharge.Estimate{}, now),
			wantTitle:    "🎧 ▆ 60%",
			wantEstimate: "Estimate: calculating...",
		},
		{
			name: "estimating",
			status: types.NewStatus(20, discharge.Calculate([]discharge.Event{
				{Timestamp: now, Interval: avg, From: 21, To: 20},
			}, 5, 20), now),
			wantTitle:    "🎧 ▂ 20%",
			wantEstimate: "Estimate: ~00:30h (1 samples)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTitle, Title(tt.status))
			assert.Equal(t, tt.wantEstimate, EstimateLine(tt.status))
		})
	}
}

func TestEstimateLine_IgnoresMissingState(t *testing.T) {
	// A status decoded from an older daemon carries no state.
	s := types.Status{Connected: true, Percentage: 50}

	require.NotPanics(t, func() { EstimateLine(s) })
	assert.Equal(t, "Estimate: calculating...", EstimateLine(s))
	assert.Equal(t, "Estimate: -", EstimateLine(types.Status{State: types.StateEstimating}))
}
