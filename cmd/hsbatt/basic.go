package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hsbatt/hsbatt/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version",
		Annotations: map[string]string{annotationNoDaemon: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewPollCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "poll",
		Short:   "Read the headset battery now",
		GroupID: gBasic,
		Long: `Read the headset battery now instead of waiting for the next poll.

Fails if a poll is already in progress.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := apiClient.Poll()
			if err != nil {
				return fmt.Errorf("failed to poll: %w", err)
			}

			cmd.Println(status.String())
			return nil
		},
	}
}

func NewPollIntervalCommand() *cobra.Command {
	return newSetIntCommand("poll-interval [seconds]", "poll interval",
		"Set how often the headset is polled",
		`Set how often the headset is polled, in seconds (1 to 3600).

The new interval applies after the next poll.`,
		func(seconds int) (string, error) { return apiClient.SetPollInterval(seconds) },
	)
}

func NewWindowCommand() *cobra.Command {
	return newSetIntCommand("window [size]", "window size",
		"Set how many recent drops the estimate averages",
		`Set how many of the most recent one-percent drops the estimate averages (1 to 100).

A small window reacts quickly to a change in usage; a large one is steadier.`,
		func(n int) (string, error) { return apiClient.SetWindowSize(n) },
	)
}

func NewLowBatteryCommand() *cobra.Command {
	return newSetIntCommand("low-battery [percentage]", "low battery threshold",
		"Set the low battery notification threshold",
		`Set the percentage (1 to 99) at or below which a low battery notification is shown.

Notifications must be enabled with "hsbatt notifications enable".`,
		func(p int) (string, error) { return apiClient.SetLowBatteryThreshold(p) },
	)
}

func NewNotificationsCommand() *cobra.Command {
	return newEnableDisableCommand(
		"notifications",
		"desktop notifications",
		`Show desktop notifications when the headset disconnects or its battery runs low.

The daemon must be able to reach the desktop session bus.`,
		func() (string, error) { return apiClient.SetNotifications(true) },
		func() (string, error) { return apiClient.SetNotifications(false) },
	)
}
