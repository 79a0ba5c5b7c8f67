package client

import (
	"encoding/json"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/hsbatt/hsbatt/pkg/config"
	"github.com/hsbatt/hsbatt/pkg/discharge"
	"github.com/hsbatt/hsbatt/pkg/types"
)

func (c *Client) GetStatus() (*types.Status, error) {
	ret, err := c.Get("/status")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get battery status")
	}

	var status types.Status
	if err := json.Unmarshal([]byte(ret), &status); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal battery status")
	}

	return &status, nil
}

func (c *Client) GetHistory() ([]discharge.Event, error) {
	ret, err := c.Get("/history")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get discharge history")
	}

	var history []discharge.Event
	if err := json.Unmarshal([]byte(ret), &history); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal discharge history")
	}

	return history, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

// Poll forces the daemon to read the headset now.
func (c *Client) Poll() (*types.Status, error) {
	ret, err := c.Post("/poll", "")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to poll headset")
	}

	var status types.Status
	if err := json.Unmarshal([]byte(ret), &status); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal battery status")
	}

	return &status, nil
}

func (c *Client) SetPollInterval(seconds int) (string, error) {
	return c.putMessage("/poll-interval", strconv.Itoa(seconds))
}

func (c *Client) SetWindowSize(n int) (string, error) {
	return c.putMessage("/window-size", strconv.Itoa(n))
}

func (c *Client) SetNotifications(enabled bool) (string, error) {
	return c.putMessage("/notifications", strconv.FormatBool(enabled))
}

func (c *Client) SetLowBatteryThreshold(threshold int) (string, error) {
	return c.putMessage("/low-battery-threshold", strconv.Itoa(threshold))
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return unquote(ret), nil
}

// putMessage sends a PUT and returns the daemon's human-readable reply.
func (c *Client) putMessage(path, data string) (string, error) {
	ret, err := c.Put(path, data)
	if err != nil {
		return "", err
	}
	return unquote(ret), nil
}

func unquote(s string) string {
	var msg string
	if err := json.Unmarshal([]byte(s), &msg); err != nil {
		return s
	}
	return msg
}
