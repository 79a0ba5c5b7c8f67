package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hsbatt/hsbatt/pkg/config"
	daemonutils "github.com/hsbatt/hsbatt/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false

	cmd := &cobra.Command{
		Use:         "install",
		Short:       "Install hsbatt as a systemd user service",
		GroupID:     gAdvanced,
		Annotations: map[string]string{annotationNoDaemon: "true"},
		Long: `Install the hsbatt daemon as a systemd user service.

This makes hsbatt run in the background and start when you log in. Running as your user gives the daemon access to the desktop session bus for notifications. The headset must be readable by your user, usually through a udev rule.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			conf.SetAllowNonRootAccess(allowNonRootAccess)
			if allowNonRootAccess {
				logrus.Info("other users are allowed to access the hsbatt daemon.")
			}

			if err := os.MkdirAll(configDir(), 0755); err != nil {
				return pkgerrors.Wrapf(err, "failed to create config directory")
			}
			err = conf.Save()
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			err = daemonutils.Install(configPath, unixSocketPath)
			if err != nil {
				return fmt.Errorf("failed to install daemon: %w", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("systemd will use the current binary (%s) at login, so do not move it. If you do, run `hsbatt install' again.\n", exePath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow other users to access the hsbatt daemon.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "uninstall",
		Short:       "Uninstall the hsbatt systemd user service",
		GroupID:     gAdvanced,
		Annotations: map[string]string{annotationNoDaemon: "true"},
		Long:        `Stop the hsbatt daemon and remove its systemd user unit. The config file is kept.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := daemonutils.Uninstall(); err != nil {
				return fmt.Errorf("failed to uninstall daemon: %w", err)
			}

			logrus.Infof("successfully uninstalled hsbatt")

			return nil
		},
	}
}
