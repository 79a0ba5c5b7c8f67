package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsbatt/hsbatt/pkg/client"
	"github.com/hsbatt/hsbatt/pkg/config"
	"github.com/hsbatt/hsbatt/pkg/discharge"
	"github.com/hsbatt/hsbatt/pkg/headset"
	"github.com/hsbatt/hsbatt/pkg/types"
)

func init() {
	color.NoColor = true
}

var t0 = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func estimatingStatus() *types.Status {
	est := discharge.Calculate([]discharge.Event{
		{Timestamp: t0, Interval: 90 * time.Second, From: 41, To: 40},
	}, 5, 40)
	s := types.NewStatus(40, est, t0)
	return &s
}

func TestPrintStatus(t *testing.T) {
	conf := config.NewFileFromConfig(nil, "")

	tests := []struct {
		name string
		data *statusData
		want []string
	}{
		{
			name: "estimating",
			data: &statusData{status: estimatingStatus()},
			want: []string{"Battery: 40%", "Time left: ~01:00h", "Per percent: 1m30s (average of last 1 drops)", "Poll interval: 5s"},
		},
		{
			name: "calculating",
			data: &statusData{status: func() *types.Status {
				s := types.NewStatus(70, discharge.Estimate{}, t0)
				return &s
			}()},
			want: []string{"Battery: 70%", "Time left: calculating"},
		},
		{
			name: "disconnected",
			data: &statusData{status: func() *types.Status {
				s := types.NewStatus(headset.Disconnected, discharge.Estimate{}, t0)
				return &s
			}()},
			want: []string{"Connected: ✘", "out of range"},
		},
		{
			name: "no device",
			data: &statusData{statusErr: errors.New("headset not found")},
			want: []string{"headset not found", "Estimate window: 5 drops"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printStatus(&buf, tt.data, conf)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestPrintStatusJSON(t *testing.T) {
	conf := config.NewFileFromConfig(nil, "")

	var buf bytes.Buffer
	require.NoError(t, printStatusJSON(&buf, &statusData{status: estimatingStatus()}, conf))

	var got statusJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.True(t, got.Headset.Available)
	assert.Equal(t, 40, got.Headset.Percentage)
	assert.Equal(t, types.StateEstimating, got.Headset.State)
	require.NotNil(t, got.Headset.TimeRemainingSeconds)
	assert.Equal(t, int64(3600), *got.Headset.TimeRemainingSeconds)
	require.NotNil(t, got.Headset.SecondsPerPercent)
	assert.Equal(t, int64(90), *got.Headset.SecondsPerPercent)
	assert.Equal(t, 5, got.Configuration.PollIntervalSeconds)
	assert.Equal(t, headset.ProductID, got.Configuration.ProductID)

	buf.Reset()
	require.NoError(t, printStatusJSON(&buf, &statusData{statusErr: client.ErrNoDevice}, conf))
	got = statusJSON{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.False(t, got.Headset.Available)
	assert.Equal(t, client.ErrNoDevice.Error(), got.Headset.Error)
	assert.Nil(t, got.Headset.TimeRemainingSeconds)
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	assert.Equal(t, "No drops recorded yet.\n", buf.String())

	buf.Reset()
	printHistory(&buf, []discharge.Event{
		{Timestamp: t0, Interval: 95 * time.Second, From: 80, To: 79},
		{Timestamp: t0.Add(time.Minute), Interval: time.Minute, From: 79, To: 78},
	})
	assert.Contains(t, buf.String(), "80% → 79%")
	assert.Contains(t, buf.String(), "1m35s")
	assert.Contains(t, buf.String(), "79% → 78%")
}

func TestPrintDevices(t *testing.T) {
	ifaces := []headset.Interface{
		{Path: "/dev/hidraw0", VendorID: headset.VendorID, ProductID: headset.ProductID, Usage: 1, Number: 3},
		{Path: "/dev/hidraw1", VendorID: headset.VendorID, ProductID: headset.ProductID, UsagePage: 0xff43, Usage: 514, Number: 5},
	}

	var buf bytes.Buffer
	printDevices(&buf, ifaces, true)
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.NotContains(t, string(lines[1]), "*")
	assert.Contains(t, string(lines[2]), "*")
	assert.Contains(t, string(lines[2]), "ff43:0202")

	buf.Reset()
	printDevices(&buf, ifaces, false)
	assert.NotContains(t, buf.String(), "*")
}

func TestParseIntArg(t *testing.T) {
	v, err := parseIntArg([]string{"30"}, "poll interval")
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	_, err = parseIntArg([]string{"abc"}, "poll interval")
	assert.ErrorContains(t, err, "invalid poll interval")

	_, err = parseIntArg(nil, "poll interval")
	assert.Error(t, err)
}
