package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hsbatt/hsbatt/pkg/config"
	"github.com/hsbatt/hsbatt/pkg/discharge"
	"github.com/hsbatt/hsbatt/pkg/events"
	"github.com/hsbatt/hsbatt/pkg/headset"
	"github.com/hsbatt/hsbatt/pkg/notify"
	"github.com/hsbatt/hsbatt/pkg/poller"
)

// server holds everything the HTTP handlers need. There is one per daemon.
type server struct {
	conf   config.Config
	hub    *events.EventHub
	poller *poller.Poller

	mu      sync.RWMutex
	missing *events.DeviceMissingEvent
}

func newServer(conf config.Config, hub *events.EventHub, now func() time.Time) *server {
	s := &server{
		conf: conf,
		hub:  hub,
	}
	s.poller = poller.New(discharge.NewTracker(), poller.Options{
		VendorID:     conf.VendorID(),
		ProductID:    conf.ProductID(),
		PollInterval: conf.PollInterval,
		WindowSize:   conf.WindowSize,
		Publisher:    s,
		Now:          now,
	})
	return s
}

// Publish remembers a device.missing event for later requests and
// subscribers, then forwards everything to the hub.
func (s *server) Publish(name string, payload any) {
	if name == events.DeviceMissing {
		if ev, ok := payload.(events.DeviceMissingEvent); ok {
			s.mu.Lock()
			s.missing = &ev
			s.mu.Unlock()
		}
	}
	s.hub.Publish(name, payload)
}

func (s *server) deviceMissing() (events.DeviceMissingEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.missing == nil {
		return events.DeviceMissingEvent{}, false
	}
	return *s.missing, true
}

func (s *server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/status", s.getStatus)
	router.GET("/history", s.getHistory)
	router.GET("/config", s.getConfig)
	router.PUT("/poll-interval", s.setPollInterval)
	router.PUT("/window-size", s.setWindowSize)
	router.PUT("/notifications", s.setNotifications)
	router.PUT("/low-battery-threshold", s.setLowBatteryThreshold)
	router.POST("/poll", s.poll)
	router.GET("/events", s.streamEvents)
	router.GET("/version", getVersion)

	return router
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newServer(conf, events.NewEventHub(), time.Now)

	srv := &http.Server{
		Handler: s.setupRoutes(),
		// Open event streams end when ctx is cancelled, so Shutdown does
		// not wait on them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", unixSocketPath)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			_ = l.Close()
			return pkgerrors.Wrapf(err, "failed to change permissions of %s", unixSocketPath)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	n, err := notify.NewDBus()
	if err != nil {
		entry := logrus.WithError(err)
		if conf.Notifications() {
			entry.Warn("desktop notifications are enabled but unavailable")
		} else {
			entry.Debug("desktop notifications unavailable")
		}
	} else {
		defer func() {
			if err := n.Close(); err != nil {
				logrus.Errorf("failed to close session bus: %v", err)
			}
		}()
		go notify.Watch(ctx, s.hub, n, conf.Notifications, conf.LowBatteryThreshold)
	}

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)

		err := s.poller.Run(ctx, func() (headset.Device, error) {
			return headset.Open(conf.VendorID(), conf.ProductID())
		})
		if err != nil {
			logrus.Errorf("poller stopped: %v", err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	cancel()

	logrus.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	shutdownCancel()

	logrus.Info("waiting for poller to stop")
	<-pollDone

	logrus.Info("exiting")
	return nil
}
