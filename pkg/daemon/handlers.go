package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hsbatt/hsbatt/pkg/config"
	"github.com/hsbatt/hsbatt/pkg/events"
	"github.com/hsbatt/hsbatt/pkg/poller"
	"github.com/hsbatt/hsbatt/pkg/version"
)

var errNoReading = errors.New("no battery reading yet, the first poll has not finished")

func (s *server) getStatus(c *gin.Context) {
	if missing, ok := s.deviceMissing(); ok {
		abortWithError(c, http.StatusServiceUnavailable, errors.New(missing.Message))
		return
	}

	status, ok := s.poller.Last()
	if !ok {
		abortWithError(c, http.StatusServiceUnavailable, errNoReading)
		return
	}

	c.IndentedJSON(http.StatusOK, status)
}

func (s *server) getHistory(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.poller.History())
}

func (s *server) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(s.conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func (s *server) setPollInterval(c *gin.Context) {
	var seconds int
	if err := c.BindJSON(&seconds); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if seconds < 1 || seconds > 3600 {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("poll interval must be between 1 and 3600 seconds, got %d", seconds))
		return
	}

	s.conf.SetPollInterval(time.Duration(seconds) * time.Second)
	if !s.save(c) {
		return
	}

	logrus.Infof("set poll interval to %ds", seconds)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set poll interval to %ds, effective after the next poll", seconds))
}

func (s *server) setWindowSize(c *gin.Context) {
	var n int
	if err := c.BindJSON(&n); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if n < 1 || n > 100 {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("window size must be between 1 and 100, got %d", n))
		return
	}

	s.conf.SetWindowSize(n)
	if !s.save(c) {
		return
	}

	logrus.Infof("set window size to %d", n)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("estimates now average the last %d drops", n))
}

func (s *server) setNotifications(c *gin.Context) {
	var enabled bool
	if err := c.BindJSON(&enabled); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	s.conf.SetNotifications(enabled)
	if !s.save(c) {
		return
	}

	logrus.Infof("set notifications to %t", enabled)

	c.IndentedJSON(http.StatusCreated, "ok")
}

func (s *server) setLowBatteryThreshold(c *gin.Context) {
	var threshold int
	if err := c.BindJSON(&threshold); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if threshold < 1 || threshold > 99 {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("low battery threshold must be between 1 and 99, got %d", threshold))
		return
	}

	s.conf.SetLowBatteryThreshold(threshold)
	if !s.save(c) {
		return
	}

	logrus.Infof("set low battery threshold to %d%%", threshold)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set low battery threshold to %d%%", threshold))
}

// poll forces an immediate tick.
func (s *server) poll(c *gin.Context) {
	if missing, ok := s.deviceMissing(); ok {
		abortWithError(c, http.StatusServiceUnavailable, errors.New(missing.Message))
		return
	}

	status, err := s.poller.Tick()
	switch {
	case errors.Is(err, poller.ErrTickInFlight):
		abortWithError(c, http.StatusConflict, err)
		return
	case errors.Is(err, poller.ErrNotOpen):
		abortWithError(c, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusOK, status)
}

// streamEvents sends the current state, then every hub event until the
// client goes away.
func (s *server) streamEvents(c *gin.Context) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	var first *events.Event
	if missing, ok := s.deviceMissing(); ok {
		ev, err := events.NewEvent(events.DeviceMissing, missing)
		if err == nil {
			first = &ev
		}
	} else if status, ok := s.poller.Last(); ok {
		ev, err := events.NewEvent(events.BatteryStatus, status)
		if err == nil {
			first = &ev
		}
	}

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		if first != nil {
			c.SSEvent(first.Name, string(first.Data))
			first = nil
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		}
	})
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (s *server) save(c *gin.Context) bool {
	if err := s.conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		abortWithError(c, http.StatusInternalServerError, err)
		return false
	}
	return true
}

func abortWithError(c *gin.Context, code int, err error) {
	c.IndentedJSON(code, err.Error())
	_ = c.AbortWithError(code, err)
}

