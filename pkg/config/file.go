package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/hsbatt/hsbatt/pkg/discharge"
	"github.com/hsbatt/hsbatt/pkg/headset"
	"github.com/hsbatt/hsbatt/pkg/utils/ptr"
)

// EnvPrefix is prepended to every environment override, e.g.
// HSBATT_POLL_INTERVAL_SECONDS.
const EnvPrefix = "HSBATT"

var (
	defaultFileConfig = &RawFileConfig{
		PollIntervalSeconds: ptr.To(5),
		WindowSize:          ptr.To(discharge.DefaultWindowSize),
		VendorID:            ptr.To(headset.VendorID),
		ProductID:           ptr.To(headset.ProductID),
		AllowNonRootAccess:  ptr.To(false),
		// Notifications need a desktop session bus, which a daemon started
		// from a system service manager does not have.
		Notifications:       ptr.To(false),
		LowBatteryThreshold: ptr.To(15),
	}

	envKeys = map[string]string{
		"pollIntervalSeconds": "POLL_INTERVAL_SECONDS",
		"windowSize":          "WINDOW_SIZE",
		"vendorID":            "VENDOR_ID",
		"productID":           "PRODUCT_ID",
		"allowNonRootAccess":  "ALLOW_NON_ROOT_ACCESS",
		"notifications":       "NOTIFICATIONS",
		"lowBatteryThreshold": "LOW_BATTERY_THRESHOLD",
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	PollIntervalSeconds *int    `json:"pollIntervalSeconds,omitempty" mapstructure:"pollIntervalSeconds"`
	WindowSize          *int    `json:"windowSize,omitempty" mapstructure:"windowSize"`
	VendorID            *uint16 `json:"vendorID,omitempty" mapstructure:"vendorID"`
	ProductID           *uint16 `json:"productID,omitempty" mapstructure:"productID"`
	AllowNonRootAccess  *bool   `json:"allowNonRootAccess,omitempty" mapstructure:"allowNonRootAccess"`
	Notifications       *bool   `json:"notifications,omitempty" mapstructure:"notifications"`
	LowBatteryThreshold *int    `json:"lowBatteryThreshold,omitempty" mapstructure:"lowBatteryThreshold"`
}

// NewRawFileConfigFromConfig resolves every value of c, defaults included.
func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		PollIntervalSeconds: ptr.To(int(c.PollInterval() / time.Second)),
		WindowSize:          ptr.To(c.WindowSize()),
		VendorID:            ptr.To(c.VendorID()),
		ProductID:           ptr.To(c.ProductID()),
		AllowNonRootAccess:  ptr.To(c.AllowNonRootAccess()),
		Notifications:       ptr.To(c.Notifications()),
		LowBatteryThreshold: ptr.To(c.LowBatteryThreshold()),
	}

	return rawConfig, nil
}

// get returns the configured value, or the default when unset.
func get[T any](f *File, pick func(*RawFileConfig) *T) T {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		panic("config is nil")
	}

	if v := pick(f.c); v != nil {
		return *v
	}
	return *pick(defaultFileConfig)
}

func (f *File) PollInterval() time.Duration {
	seconds := get(f, func(c *RawFileConfig) *int { return c.PollIntervalSeconds })
	if seconds <= 0 {
		seconds = *defaultFileConfig.PollIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (f *File) WindowSize() int {
	n := get(f, func(c *RawFileConfig) *int { return c.WindowSize })
	if n <= 0 {
		n = *defaultFileConfig.WindowSize
	}
	return n
}

func (f *File) VendorID() uint16 {
	return get(f, func(c *RawFileConfig) *uint16 { return c.VendorID })
}

func (f *File) ProductID() uint16 {
	return get(f, func(c *RawFileConfig) *uint16 { return c.ProductID })
}

func (f *File) AllowNonRootAccess() bool {
	return get(f, func(c *RawFileConfig) *bool { return c.AllowNonRootAccess })
}

func (f *File) Notifications() bool {
	return get(f, func(c *RawFileConfig) *bool { return c.Notifications })
}

func (f *File) LowBatteryThreshold() int {
	return get(f, func(c *RawFileConfig) *int { return c.LowBatteryThreshold })
}

func (f *File) SetPollInterval(d time.Duration) {
	seconds := int(d / time.Second)
	if seconds < 1 {
		panic("poll interval must be at least one second")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.c == nil {
		panic("config is nil")
	}

	f.c.PollIntervalSeconds = &seconds
}

func (f *File) SetWindowSize(n int) {
	if n < 1 {
		panic("window size must be positive")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.c == nil {
		panic("config is nil")
	}

	f.c.WindowSize = &n
}

func (f *File) SetAllowNonRootAccess(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.c == nil {
		panic("config is nil")
	}

	f.c.AllowNonRootAccess = &b
}

func (f *File) SetNotifications(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.c == nil {
		panic("config is nil")
	}

	f.c.Notifications = &b
}

func (f *File) SetLowBatteryThreshold(i int) {
	if i < 1 || i > 99 {
		panic("low battery threshold must be between 1 and 99")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.c == nil {
		panic("config is nil")
	}

	f.c.LowBatteryThreshold = &i
}

// Load reads the file (if any) and applies HSBATT_* environment overrides.
func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := viper.New()
	v.SetConfigType("json")
	for key, env := range envKeys {
		if err := v.BindEnv(key, EnvPrefix+"_"+env); err != nil {
			return pkgerrors.Wrapf(err, "failed to bind env for %s", key)
		}
	}

	b, err := os.ReadFile(f.filepath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	// A missing or empty file means defaults. Do not make f.c a nil.
	if strings.TrimSpace(string(b)) != "" {
		if err := v.ReadConfig(strings.NewReader(string(b))); err != nil {
			return pkgerrors.Wrapf(err, "failed to parse config from file %s", f.filepath)
		}
	}

	conf := RawFileConfig{}
	if err := v.Unmarshal(&conf); err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"pollInterval":        f.PollInterval().String(),
		"windowSize":          f.WindowSize(),
		"vendorID":            f.VendorID(),
		"productID":           f.ProductID(),
		"allowNonRootAccess":  f.AllowNonRootAccess(),
		"notifications":       f.Notifications(),
		"lowBatteryThreshold": f.LowBatteryThreshold(),
	}
}
