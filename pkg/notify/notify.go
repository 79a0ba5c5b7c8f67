// Package notify raises desktop notifications when the headset disconnects
// or its battery runs low.
package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hsbatt/hsbatt/pkg/events"
	"github.com/hsbatt/hsbatt/pkg/types"
)

const (
	notificationsDest   = "org.freedesktop.Notifications"
	notificationsPath   = "/org/freedesktop/Notifications"
	notificationsMethod = notificationsDest + ".Notify"

	appName       = "hsbatt"
	expireTimeout = int32(10000)
)

// Notifier shows a message to the user.
type Notifier interface {
	Notify(summary, body string) error
}

// DBus sends notifications over the session bus.
type DBus struct {
	conn *dbus.Conn
}

// NewDBus connects to the session bus.
func NewDBus() (*DBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to session bus")
	}
	return &DBus{conn: conn}, nil
}

func (d *DBus) Notify(summary, body string) error {
	obj := d.conn.Object(notificationsDest, notificationsPath)
	call := obj.Call(notificationsMethod, 0,
		appName,
		uint32(0),
		"audio-headset",
		summary,
		body,
		[]string{},
		map[string]dbus.Variant{},
		expireTimeout,
	)
	if call.Err != nil {
		return pkgerrors.Wrap(call.Err, "failed to send notification")
	}
	return nil
}

func (d *DBus) Close() error {
	return d.conn.Close()
}

type alert struct {
	summary string
	body    string
}

// tracker turns a stream of statuses into edge-triggered alerts: one when
// the headset goes away, one when it first falls to the threshold.
type tracker struct {
	threshold func() int

	seen      bool
	connected bool
	lowSent   bool
}

func (t *tracker) next(s types.Status) []alert {
	var out []alert

	if t.seen && t.connected && !s.Connected {
		out = append(out, alert{summary: "Headset disconnected", body: "The headset stopped answering battery queries."})
	}

	if s.Connected {
		threshold := t.threshold()
		switch {
		case s.Percentage <= threshold && !t.lowSent:
			out = append(out, alert{
				summary: fmt.Sprintf("Headset battery low: %d%%", s.Percentage),
				body:    s.String(),
			})
			t.lowSent = true
		case s.Percentage > threshold:
			t.lowSent = false
		}
	}

	t.seen = true
	t.connected = s.Connected
	return out
}

// Watch consumes hub events until ctx is done, forwarding alerts to n while
// enabled returns true.
func Watch(ctx context.Context, hub *events.EventHub, n Notifier, enabled func() bool, threshold func() int) {
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	t := &tracker{threshold: threshold}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			handle(ev, t, n, enabled)
		}
	}
}

func handle(ev events.Event, t *tracker, n Notifier, enabled func() bool) {
	switch ev.Name {
	case events.BatteryStatus:
		s, err := events.DecodeAs[types.Status](ev)
		if err != nil {
			logrus.WithError(err).Errorf("failed to decode %s event", ev.Name)
			return
		}
		alerts := t.next(s)
		if !enabled() {
			return
		}
		for _, a := range alerts {
			send(n, a.summary, a.body)
		}
	case events.DeviceMissing:
		if !enabled() {
			return
		}
		payload, err := events.DecodeAs[events.DeviceMissingEvent](ev)
		if err != nil {
			logrus.WithError(err).Errorf("failed to decode %s event", ev.Name)
			return
		}
		send(n, "Headset not found", payload.Message)
	}
}

func send(n Notifier, summary, body string) {
	if err := n.Notify(summary, body); err != nil {
		logrus.WithError(err).Warn("failed to show notification")
		return
	}
	logrus.WithField("summary", summary).Debug("notification sent")
}
