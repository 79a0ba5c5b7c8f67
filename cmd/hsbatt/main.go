package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hsbatt/hsbatt/pkg/client"
	"github.com/hsbatt/hsbatt/pkg/gui"
	"github.com/hsbatt/hsbatt/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/tmp/hsbatt.sock"
	configPath     = defaultConfigPath()
)

var apiClient *client.Client

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "hsbatt.json"
	}
	return filepath.Join(dir, "hsbatt", "config.json")
}

func configDir() string {
	return filepath.Dir(configPath)
}

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: hsbatt daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with 'hsbatt daemon', or check the --daemon-socket path.")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or restart the daemon with '--always-allow-non-root-access'")
	case errors.Is(err, client.ErrNoDevice):
		fmt.Fprintln(os.Stderr, "\nError: no headset reading available")
		fmt.Fprintln(os.Stderr, "  - Is the headset dongle plugged in? 'hsbatt devices' lists what can be seen")
		fmt.Fprintln(os.Stderr, "  - Reading HID devices may need a udev rule or root on Linux")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hsbatt",
		Short: "hsbatt shows the battery of a wireless headset and estimates the time left",
		Long: `hsbatt shows the battery of a wireless headset and estimates the time left.

A daemon polls the headset over USB HID and learns how fast the battery drains.
Other commands talk to the daemon over a unix socket.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			// The daemon itself and commands that do not need it skip the
			// version handshake.
			if cmd.Annotations[annotationNoDaemon] != "" {
				return nil
			}

			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. hsbatt may not work as expected.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("hsbatt daemon is too old to report its version.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "hsbatt daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewHistoryCommand(),
		NewPollCommand(),
		NewPollIntervalCommand(),
		NewWindowCommand(),
		NewLowBatteryCommand(),
		NewNotificationsCommand(),
		NewDevicesCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
		gui.NewGUICommand(func() string { return unixSocketPath }, gBasic),
	)

	return cmd
}

// getVersion returns the client and daemon versions.
func getVersion() (string, string, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}
