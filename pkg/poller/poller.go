package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hsbatt/hsbatt/pkg/discharge"
	"github.com/hsbatt/hsbatt/pkg/events"
	"github.com/hsbatt/hsbatt/pkg/headset"
	"github.com/hsbatt/hsbatt/pkg/types"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 5 * time.Second

var (
	// ErrTickInFlight is returned by Tick when another tick holds the headset.
	ErrTickInFlight = errors.New("a poll is already in progress")
	// ErrNotOpen is returned by Tick before Run has opened the headset, or
	// after it has closed it.
	ErrNotOpen = errors.New("headset is not open")
)

// Publisher receives every snapshot the poller produces. *events.EventHub
// implements it.
type Publisher interface {
	Publish(name string, payload any)
}

// Opener opens the headset. It is called once per Run.
type Opener func() (headset.Device, error)

// Options configures a Poller. Zero values fall back to defaults.
type Options struct {
	// VendorID and ProductID are only reported in device.missing events.
	VendorID  uint16
	ProductID uint16

	// PollInterval and WindowSize are consulted on every cycle, so a
	// reloaded config applies without a restart.
	PollInterval func() time.Duration
	WindowSize   func() int

	Publisher Publisher
	Now       func() time.Time
}

// Poller drives the read → record → estimate → publish cycle.
type Poller struct {
	opts    Options
	tracker *discharge.Tracker

	// tickMu is held for a whole tick. A tick that cannot take it is
	// skipped rather than queued, so HID transactions never overlap.
	tickMu sync.Mutex
	reader *headset.Reader

	mu      sync.RWMutex
	last    types.Status
	hasLast bool

	lastPrinted   types.Status
	lastPrintTime time.Time
}

// New returns a Poller feeding tracker.
func New(tracker *discharge.Tracker, opts Options) *Poller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}

	return &Poller{
		opts:    opts,
		tracker: tracker,
	}
}

// Run opens the headset with open and polls it until ctx is done. The first
// tick happens immediately.
//
// If the headset cannot be opened, a device.missing event is published once
// and the error is returned without ever polling.
func (p *Poller) Run(ctx context.Context, open Opener) error {
	dev, err := open()
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"vendorID":  p.opts.VendorID,
			"productID": p.opts.ProductID,
		}).Error("headset not available, polling will not start")

		p.opts.Publisher.Publish(events.DeviceMissing, events.DeviceMissingEvent{
			VendorID:  p.opts.VendorID,
			ProductID: p.opts.ProductID,
			Message:   err.Error(),
			Ts:        p.opts.Now().Round(0),
		})
		return pkgerrors.Wrap(err, "failed to open headset")
	}

	p.tickMu.Lock()
	p.reader = headset.NewReader(dev)
	p.tickMu.Unlock()

	defer func() {
		p.tickMu.Lock()
		defer p.tickMu.Unlock()

		if err := p.reader.Close(); err != nil {
			logrus.Errorf("failed to close headset: %v", err)
		}
		p.reader = nil
	}()

	logrus.Debugln("poll loop starts")

	for {
		p.Tick()

		timer := time.NewTimer(p.pollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			logrus.Debugln("poll loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Tick polls the headset once and publishes the resulting status. It
// returns ErrTickInFlight without touching the headset when another tick is
// running, and ErrNotOpen when the headset has not been opened.
func (p *Poller) Tick() (types.Status, error) {
	if !p.tickMu.TryLock() {
		logrus.Debug("previous poll tick still in flight, skipping")
		return types.Status{}, ErrTickInFlight
	}

	if p.reader == nil {
		p.tickMu.Unlock()
		return types.Status{}, ErrNotOpen
	}

	now := p.opts.Now()
	reading := p.reader.QueryBattery()

	if e, ok := p.tracker.Record(reading, now); ok {
		logrus.WithFields(logrus.Fields{
			"from":     e.From,
			"to":       e.To,
			"interval": e.Interval.String(),
		}).Infof("battery dropped from %d%% to %d%% in %s", e.From, e.To, e.Interval)
		p.opts.Publisher.Publish(events.DischargeRecorded, e)
	}

	est := discharge.Calculate(p.tracker.History(), p.windowSize(), reading)
	status := types.NewStatus(reading, est, now)

	p.printStatus(status)
	p.opts.Publisher.Publish(events.BatteryStatus, status)

	// The tick is released while mu is held, so once Last sees this status
	// a new tick can start, and a later tick cannot store before this one.
	p.mu.Lock()
	p.tickMu.Unlock()
	p.last = status
	p.hasLast = true
	p.mu.Unlock()

	return status, nil
}

// Last returns the most recent status. ok is false before the first tick.
func (p *Poller) Last() (status types.Status, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.last, p.hasLast
}

// History returns the recorded drop events, oldest first.
func (p *Poller) History() []discharge.Event {
	return p.tracker.History()
}

func (p *Poller) pollInterval() time.Duration {
	if p.opts.PollInterval == nil {
		return DefaultPollInterval
	}
	if d := p.opts.PollInterval(); d > 0 {
		return d
	}
	return DefaultPollInterval
}

func (p *Poller) windowSize() int {
	if p.opts.WindowSize == nil {
		return discharge.DefaultWindowSize
	}
	return p.opts.WindowSize()
}

// printStatus logs status at debug level when it changed, and at trace
// level when it repeats the previous one.
func (p *Poller) printStatus(status types.Status) {
	fields := logrus.Fields{
		"percentage": status.Percentage,
		"state":      status.State,
		"samples":    status.Samples,
	}
	if status.TimeRemaining != nil {
		fields["timeRemaining"] = status.TimeRemaining.Round(time.Second).String()
	}

	now := p.opts.Now()
	defer func() { p.lastPrintTime = now }()

	same := p.lastPrinted.Percentage == status.Percentage &&
		p.lastPrinted.State == status.State &&
		p.lastPrinted.Samples == status.Samples
	if same && now.Sub(p.lastPrintTime) < p.pollInterval()+time.Second {
		logrus.WithFields(fields).Trace("poll status")
		return
	}

	logrus.WithFields(fields).Debug("poll status")
	p.lastPrinted = status
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}
