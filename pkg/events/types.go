package events

import (
	"encoding/json"
	"time"
)

// Event name constants
const (
	// BatteryStatus carries a types.Status after every poll tick.
	BatteryStatus = "battery.status"
	// DischargeRecorded carries a discharge.Event whenever a drop is seen.
	DischargeRecorded = "battery.discharge"
	// DeviceMissing is sent once when the headset is not found at startup.
	DeviceMissing = "device.missing"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// DeviceMissingEvent is the typed payload for device.missing.
type DeviceMissingEvent struct {
	VendorID  uint16    `json:"vendorID"`
	ProductID uint16    `json:"productID"`
	Message   string    `json:"message"`
	Ts        time.Time `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	status, err := events.DecodeAs[types.Status](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(status.Percentage)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
