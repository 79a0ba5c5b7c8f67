package headset

import (
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	// VendorID is the USB vendor id of the headset (4152).
	VendorID uint16 = 0x1038
	// ProductID is the USB product id of the headset's wireless dongle.
	ProductID uint16 = 0x12AD

	// batteryOffset is where the percentage sits in a response frame.
	batteryOffset = 2
	// frameSize is large enough for any input report the dongle sends.
	frameSize = 64
)

var batteryRequest = []byte{0x06, 0x18}

// Reading is a battery percentage in [0, 100]. Disconnected is reserved for
// "the headset could not be queried": a live headset never reports 0 over
// this query, so 0 always means disconnected.
type Reading int

// Disconnected is the sentinel reading for an unreachable headset.
const Disconnected Reading = 0

// Connected reports whether r is a real battery percentage.
func (r Reading) Connected() bool {
	return r != Disconnected
}

func (r Reading) String() string {
	if !r.Connected() {
		return "disconnected"
	}
	return strconv.Itoa(int(r)) + "%"
}

// Device is an open HID handle. *hid.Device satisfies it.
type Device interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// Reader owns a single headset handle and turns raw HID frames into
// readings.
type Reader struct {
	// mu keeps write+read a single transaction on the handle.
	mu  sync.Mutex
	dev Device
}

// NewReader returns a Reader for dev. A nil dev is allowed and always
// yields Disconnected.
func NewReader(dev Device) *Reader {
	return &Reader{dev: dev}
}

// QueryBattery asks the headset for its battery level. I/O failures are
// absorbed here and reported as Disconnected.
func (r *Reader) QueryBattery() Reading {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dev == nil {
		logrus.Trace("no headset handle")
		return Disconnected
	}

	logrus.WithField("request", batteryRequest).Trace("writing battery request")
	if _, err := r.dev.Write(batteryRequest); err != nil {
		logrus.WithError(err).Trace("battery request write failed")
		return Disconnected
	}

	buf := make([]byte, frameSize)
	n, err := r.dev.Read(buf)
	if err != nil {
		logrus.WithError(err).Trace("battery response read failed")
		return Disconnected
	}

	logrus.WithField("response", buf[:n]).Trace("read battery response")

	return decodeBattery(buf[:n])
}

// Close releases the handle. Subsequent queries return Disconnected.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dev == nil {
		return nil
	}

	err := r.dev.Close()
	r.dev = nil
	return err
}

func decodeBattery(frame []byte) Reading {
	if len(frame) <= batteryOffset {
		return Disconnected
	}

	v := frame[batteryOffset]
	if v > 100 {
		v = 100
	}

	return Reading(v)
}
