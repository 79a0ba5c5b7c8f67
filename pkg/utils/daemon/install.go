// Package daemon installs hsbatt as a systemd user service.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const unitName = "hsbatt.service"

const unitTemplate = `[Unit]
Description=hsbatt headset battery daemon
After=graphical-session.target

[Service]
ExecStart={{exec}} daemon --config {{config}} --daemon-socket {{socket}}
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
RestartSec=10

[Install]
WantedBy=default.target
`

// runCommand is replaced in tests.
var runCommand = func(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// UnitPath returns where the user unit file lives.
func UnitPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to find user config directory: %w", err)
	}
	return filepath.Join(dir, "systemd", "user", unitName), nil
}

// RenderUnit fills in the unit template.
func RenderUnit(exePath, configPath, socketPath string) string {
	return strings.NewReplacer(
		"{{exec}}", exePath,
		"{{config}}", configPath,
		"{{socket}}", socketPath,
	).Replace(unitTemplate)
}

// Install writes the unit for the running executable and starts it.
func Install(configPath, socketPath string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	unitPath, err := UnitPath()
	if err != nil {
		return err
	}

	return install(unitPath, RenderUnit(exePath, configPath, socketPath))
}

func install(unitPath, unit string) error {
	logrus.Infof("writing systemd user unit to %s", unitPath)

	err := os.MkdirAll(filepath.Dir(unitPath), 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(unitPath), err)
	}

	// warn if the file already exists
	_, err = os.Stat(unitPath)
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath)
	}

	err = os.WriteFile(unitPath, []byte(unit), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath, err)
	}

	logrus.Infof("starting hsbatt")

	if err := runCommand("systemctl", "--user", "daemon-reload"); err != nil {
		return err
	}
	return runCommand("systemctl", "--user", "enable", "--now", unitName)
}
