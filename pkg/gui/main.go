// Package gui shows the headset battery in the system tray.
package gui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hsbatt/hsbatt/pkg/client"
	"github.com/hsbatt/hsbatt/pkg/events"
	"github.com/hsbatt/hsbatt/pkg/types"
	"github.com/hsbatt/hsbatt/pkg/version"
)

// reconnectDelay is how long the tray waits before resubscribing after the
// daemon event stream ends.
const reconnectDelay = 5 * time.Second

// NewGUICommand returns the gui command. socketPath is read when the
// command runs, so it may depend on parsed flags.
func NewGUICommand(socketPath func() string, groupID string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gui",
		Short:   "Show the headset battery in the system tray",
		GroupID: groupID,
		Long: `Show the headset battery in the system tray.

The tray icon follows the daemon's event stream, so the daemon must be running.`,
		Run: func(_ *cobra.Command, _ []string) {
			Run(socketPath())
		},
	}

	return cmd
}

func Run(unixSocketPath string) {
	logrus.WithField("version", version.Version).WithField("gitCommit", version.GitCommit).Info("hsbatt gui")

	t := &tray{api: client.NewClient(unixSocketPath)}
	systray.Run(t.onReady, t.onExit)
}

type tray struct {
	api    *client.Client
	cancel context.CancelFunc

	mStatus        *systray.MenuItem
	mEstimate      *systray.MenuItem
	mPoll          *systray.MenuItem
	mNotifications *systray.MenuItem
	mQuit          *systray.MenuItem
}

func (t *tray) onReady() {
	systray.SetTitle("🎧 …")
	systray.SetTooltip("hsbatt - connecting to daemon")

	t.mStatus = systray.AddMenuItem("Battery: -", "Current headset battery")
	t.mStatus.Disable()
	t.mEstimate = systray.AddMenuItem("Estimate: -", "Estimated time left")
	t.mEstimate.Disable()

	systray.AddSeparator()

	t.mPoll = systray.AddMenuItem("Poll Now", "Read the headset battery now")
	t.mNotifications = systray.AddMenuItemCheckbox("Notifications", "Desktop notifications on low battery and disconnect", false)
	if conf, err := t.api.GetConfig(); err == nil && conf.Notifications != nil && *conf.Notifications {
		t.mNotifications.Check()
	}

	systray.AddSeparator()
	t.mQuit = systray.AddMenuItem("Quit", "Quit the tray icon")

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	go t.handleClicks(ctx)
	go t.followEvents(ctx)
}

func (t *tray) onExit() {
	if t.cancel != nil {
		t.cancel()
	}
	logrus.Info("hsbatt gui exiting")
}

func (t *tray) handleClicks(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.mPoll.ClickedCh:
			status, err := t.api.Poll()
			if err != nil {
				logrus.WithError(err).Warn("failed to poll headset")
				continue
			}
			t.render(*status)
		case <-t.mNotifications.ClickedCh:
			enable := !t.mNotifications.Checked()
			if _, err := t.api.SetNotifications(enable); err != nil {
				logrus.WithError(err).Error("failed to toggle notifications")
				continue
			}
			if enable {
				t.mNotifications.Check()
			} else {
				t.mNotifications.Uncheck()
			}
		case <-t.mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// followEvents keeps a subscription to the daemon open, resubscribing
// whenever the stream ends.
func (t *tray) followEvents(ctx context.Context) {
	for {
		for ev := range t.api.SubscribeEvents(ctx) {
			logrus.WithFields(logrus.Fields{
				"event": ev.Name,
				"data":  string(ev.Data),
			}).Debug("new event")

			t.handleEvent(ev)
		}

		if ctx.Err() != nil {
			return
		}

		t.renderOffline(errors.New("lost connection to daemon"))

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (t *tray) handleEvent(ev events.Event) {
	switch ev.Name {
	case events.BatteryStatus:
		status, err := events.DecodeAs[types.Status](ev)
		if err != nil {
			logrus.WithError(err).Errorf("failed to decode %s event", ev.Name)
			return
		}
		t.render(status)
	case events.DeviceMissing:
		payload, err := events.DecodeAs[events.DeviceMissingEvent](ev)
		if err != nil {
			logrus.WithError(err).Errorf("failed to decode %s event", ev.Name)
			return
		}
		t.renderOffline(errors.New(payload.Message))
	}
}

func (t *tray) render(s types.Status) {
	systray.SetTitle(Title(s))
	systray.SetTooltip(s.String())
	if s.Connected {
		t.mStatus.SetTitle(fmt.Sprintf("Battery: %d%%", s.Percentage))
	} else {
		t.mStatus.SetTitle("Battery: disconnected")
	}
	t.mEstimate.SetTitle(EstimateLine(s))
}

func (t *tray) renderOffline(err error) {
	systray.SetTitle("🎧 ⚠")
	systray.SetTooltip("hsbatt: " + err.Error())
	t.mStatus.SetTitle("Battery: unavailable")
	t.mEstimate.SetTitle("Estimate: -")
}
