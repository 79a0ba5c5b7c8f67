package config

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Config interface {
	PollInterval() time.Duration
	WindowSize() int
	VendorID() uint16
	ProductID() uint16
	AllowNonRootAccess() bool
	Notifications() bool
	LowBatteryThreshold() int

	SetPollInterval(time.Duration)
	SetWindowSize(int)
	SetAllowNonRootAccess(bool)
	SetNotifications(bool)
	SetLowBatteryThreshold(int)

	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
