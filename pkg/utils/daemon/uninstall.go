package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
)

// Uninstall stops the service and removes its unit file.
func Uninstall() error {
	unitPath, err := UnitPath()
	if err != nil {
		return err
	}
	return uninstall(unitPath)
}

func uninstall(unitPath string) error {
	logrus.Infof("stopping hsbatt")

	if err := runCommand("systemctl", "--user", "disable", "--now", unitName); err != nil {
		// The unit may never have been installed; removal still proceeds.
		logrus.Warnf("failed to disable %s: %v", unitName, err)
	}

	logrus.Infof("removing systemd user unit")

	err := os.Remove(unitPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", unitPath, err)
	}

	return runCommand("systemctl", "--user", "daemon-reload")
}
