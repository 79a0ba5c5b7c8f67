package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hsbatt/hsbatt/pkg/client"
	"github.com/hsbatt/hsbatt/pkg/config"
	"github.com/hsbatt/hsbatt/pkg/types"
)

type statusData struct {
	status *types.Status
	// statusErr is set instead of status when the daemon has no reading.
	statusErr error
	config    *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	data := &statusData{}

	status, err := apiClient.GetStatus()
	switch {
	case err == nil:
		data.status = status
	case errors.Is(err, client.ErrNoDevice):
		data.statusErr = err
	default:
		return nil, fmt.Errorf("failed to get battery status: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	data.config = conf

	return data, nil
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the headset battery and time left",
		Long:    `Get the headset battery, the estimated time left, and the daemon configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			conf := config.NewFileFromConfig(data.config, "")

			if asJSON {
				return printStatusJSON(cmd.OutOrStdout(), data, conf)
			}
			printStatus(cmd.OutOrStdout(), data, conf)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")

	return cmd
}

func printStatus(w io.Writer, data *statusData, conf config.Config) {
	fmt.Fprintln(w, bold("Headset status:"))

	switch {
	case data.status == nil:
		fmt.Fprintf(w, "  %s\n", color.RedString("%v", data.statusErr))
	case !data.status.Connected:
		fmt.Fprintf(w, "  Connected: %s\n", bool2Text(false))
		fmt.Fprintln(w, "    The headset is off or out of range.")
	default:
		s := data.status
		fmt.Fprintf(w, "  Connected: %s\n", bool2Text(true))
		fmt.Fprintf(w, "  Battery: %s\n", percentText(s.Percentage, conf.LowBatteryThreshold()))
		if s.TimeRemaining != nil {
			fmt.Fprintf(w, "  Time left: %s\n", bold("~%sh", types.FormatHoursMinutes(*s.TimeRemaining)))
			fmt.Fprintf(w, "  Per percent: %s (average of last %d drops)\n", bold("%s", s.AverageIntervalPerPercent.Round(time.Second)), s.Samples)
		} else {
			fmt.Fprintf(w, "  Time left: %s\n", bold("calculating"))
			fmt.Fprintln(w, "    An estimate is available after the first one-percent drop.")
		}
	}
	if data.status != nil {
		fmt.Fprintf(w, "  Last poll: %s\n", data.status.Timestamp.Local().Format(time.DateTime))
	}

	fmt.Fprintln(w)

	fmt.Fprintln(w, bold("Configuration:"))
	fmt.Fprintf(w, "  Poll interval: %s\n", bold("%s", conf.PollInterval()))
	fmt.Fprintf(w, "  Estimate window: %s\n", bold("%d drops", conf.WindowSize()))
	fmt.Fprintf(w, "  Device: %s\n", bold("%04x:%04x", conf.VendorID(), conf.ProductID()))
	fmt.Fprintf(w, "  Notifications: %s\n", bool2Text(conf.Notifications()))
	fmt.Fprintf(w, "  Low battery threshold: %s\n", bold("%d%%", conf.LowBatteryThreshold()))
	fmt.Fprintf(w, "  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
}

func percentText(p, lowThreshold int) string {
	if p <= lowThreshold {
		return color.New(color.Bold, color.FgRed).Sprintf("%d%%", p)
	}
	return color.New(color.Bold, color.FgGreen).Sprintf("%d%%", p)
}
