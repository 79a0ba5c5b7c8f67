package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/hsbatt/hsbatt/pkg/config"
	"github.com/hsbatt/hsbatt/pkg/types"
)

type statusJSON struct {
	Headset       statusHeadsetJSON `json:"headset"`
	Configuration statusConfigJSON  `json:"configuration"`
}

type statusHeadsetJSON struct {
	// Available is false when the daemon has no reading; Error says why.
	Available            bool        `json:"available"`
	Error                string      `json:"error,omitempty"`
	Connected            bool        `json:"connected"`
	State                types.State `json:"state,omitempty"`
	Percentage           int         `json:"percentage"`
	TimeRemainingSeconds *int64      `json:"timeRemainingSeconds"`
	SecondsPerPercent    *int64      `json:"secondsPerPercent"`
	Samples              int         `json:"samples"`
	LastPoll             *time.Time  `json:"lastPoll"`
}

type statusConfigJSON struct {
	PollIntervalSeconds int    `json:"pollIntervalSeconds"`
	WindowSize          int    `json:"windowSize"`
	VendorID            uint16 `json:"vendorID"`
	ProductID           uint16 `json:"productID"`
	Notifications       bool   `json:"notifications"`
	LowBatteryThreshold int    `json:"lowBatteryThreshold"`
	AllowNonRootAccess  bool   `json:"allowNonRootAccess"`
}

func seconds(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	s := int64(d.Round(time.Second) / time.Second)
	return &s
}

func printStatusJSON(w io.Writer, data *statusData, cfg config.Config) error {
	out := statusJSON{
		Configuration: statusConfigJSON{
			PollIntervalSeconds: int(cfg.PollInterval() / time.Second),
			WindowSize:          cfg.WindowSize(),
			VendorID:            cfg.VendorID(),
			ProductID:           cfg.ProductID(),
			Notifications:       cfg.Notifications(),
			LowBatteryThreshold: cfg.LowBatteryThreshold(),
			AllowNonRootAccess:  cfg.AllowNonRootAccess(),
		},
	}

	if s := data.status; s != nil {
		ts := s.Timestamp
		out.Headset = statusHeadsetJSON{
			Available:            true,
			Connected:            s.Connected,
			State:                s.State,
			Percentage:           s.Percentage,
			TimeRemainingSeconds: seconds(s.TimeRemaining),
			SecondsPerPercent:    seconds(s.AverageIntervalPerPercent),
			Samples:              s.Samples,
			LastPoll:             &ts,
		}
	} else if data.statusErr != nil {
		out.Headset.Error = data.statusErr.Error()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
