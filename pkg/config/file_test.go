package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestNewFile_Defaults(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") },
		},
		{
			name: "empty file",
			path: func(t *testing.T) string { return writeConfig(t, "  \n") },
		},
		{
			name: "empty object",
			path: func(t *testing.T) string { return writeConfig(t, "{}") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFile(tt.path(t))
			require.NoError(t, err)

			assert.Equal(t, 5*time.Second, f.PollInterval())
			assert.Equal(t, 5, f.WindowSize())
			assert.Equal(t, uint16(0x1038), f.VendorID())
			assert.Equal(t, uint16(0x12AD), f.ProductID())
			assert.False(t, f.AllowNonRootAccess())
			assert.False(t, f.Notifications())
			assert.Equal(t, 15, f.LowBatteryThreshold())
		})
	}
}

func TestNewFile_FromFile(t *testing.T) {
	p := writeConfig(t, `{
  "pollIntervalSeconds": 30,
  "windowSize": 8,
  "productID": 4800,
  "notifications": true
}`)

	f, err := NewFile(p)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, f.PollInterval())
	assert.Equal(t, 8, f.WindowSize())
	assert.Equal(t, uint16(4800), f.ProductID())
	assert.Equal(t, uint16(0x1038), f.VendorID())
	assert.True(t, f.Notifications())
}

func TestNewFile_EnvOverrides(t *testing.T) {
	p := writeConfig(t, `{"pollIntervalSeconds": 30, "windowSize": 8}`)
	t.Setenv("HSBATT_POLL_INTERVAL_SECONDS", "2")
	t.Setenv("HSBATT_PRODUCT_ID", "0x12B3")
	t.Setenv("HSBATT_NOTIFICATIONS", "true")

	f, err := NewFile(p)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, f.PollInterval())
	assert.Equal(t, 8, f.WindowSize())
	assert.Equal(t, uint16(0x12B3), f.ProductID())
	assert.True(t, f.Notifications())
}

func TestNewFile_InvalidJSON(t *testing.T) {
	_, err := NewFile(writeConfig(t, `{"windowSize": `))
	assert.Error(t, err)
}

func TestFile_NonPositiveValuesFallBack(t *testing.T) {
	f := NewFileFromConfig(&RawFileConfig{
		PollIntervalSeconds: intPtr(0),
		WindowSize:          intPtr(-3),
	}, "")

	assert.Equal(t, 5*time.Second, f.PollInterval())
	assert.Equal(t, 5, f.WindowSize())
}

func TestFile_SaveThenLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.json")
	f, err := NewFile(p)
	require.NoError(t, err)

	f.SetPollInterval(12 * time.Second)
	f.SetWindowSize(3)
	f.SetLowBatteryThreshold(20)
	require.NoError(t, f.Save())

	reloaded, err := NewFile(p)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, reloaded.PollInterval())
	assert.Equal(t, 3, reloaded.WindowSize())
	assert.Equal(t, 20, reloaded.LowBatteryThreshold())
	// Unset values stay unset in the file and keep following the defaults.
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "vendorID")
}

func TestFile_SettersValidate(t *testing.T) {
	f := NewFileFromConfig(nil, "")
	assert.Panics(t, func() { f.SetPollInterval(500 * time.Millisecond) })
	assert.Panics(t, func() { f.SetWindowSize(0) })
	assert.Panics(t, func() { f.SetLowBatteryThreshold(100) })
}

func TestNewRawFileConfigFromConfig(t *testing.T) {
	f := NewFileFromConfig(&RawFileConfig{WindowSize: intPtr(7)}, "")

	raw, err := NewRawFileConfigFromConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 7, *raw.WindowSize)
	assert.Equal(t, 5, *raw.PollIntervalSeconds)
	assert.Equal(t, uint16(0x12AD), *raw.ProductID)

	_, err = NewRawFileConfigFromConfig(nil)
	assert.Error(t, err)
}

func intPtr(i int) *int { return &i }

func TestFile_ConcurrentLoad(t *testing.T) {
	f, err := NewFile(writeConfig(t, `{"pollIntervalSeconds": 7}`))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, f.Load())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = f.PollInterval()
				_ = f.LogrusFields()
				f.SetNotifications(true)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 7*time.Second, f.PollInterval())
}

func TestFile_NilConfigPanics(t *testing.T) {
	f := &File{mu: &sync.RWMutex{}}

	assert.PanicsWithValue(t, "config is nil", func() { f.PollInterval() })
	assert.PanicsWithValue(t, "config is nil", func() { f.SetAllowNonRootAccess(true) })
	assert.EqualError(t, f.Save(), "config is nil")
}
