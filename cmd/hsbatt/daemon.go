package main

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hsbatt/hsbatt/pkg/daemon"
	"github.com/hsbatt/hsbatt/pkg/version"
)

var (
	// alwaysAllowNonRootAccess indicates whether to always allow non-root users to access the hsbatt daemon.
	alwaysAllowNonRootAccess = false
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "daemon",
		Short:       "Run hsbatt daemon in the foreground",
		GroupID:     gAdvanced,
		Annotations: map[string]string{annotationNoDaemon: "true"},
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("hsbatt daemon starting")

			if err := os.MkdirAll(configDir(), 0755); err != nil {
				return pkgerrors.Wrapf(err, "failed to create config directory for %s", configPath)
			}

			return daemon.Run(configPath, unixSocketPath, alwaysAllowNonRootAccess)
		},
	}

	f := cmd.Flags()

	f.BoolVar(&alwaysAllowNonRootAccess, "always-allow-non-root-access", false,
		"Always allow non-root users to access the daemon.")

	return cmd
}
