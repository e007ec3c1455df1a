package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// DefaultPort is where the exporter binds when no port is given.
const DefaultPort = 8029

// ServerController manages at most one background exporter.
// State machine: Stopped -> Running(port) -> Stopped. Both transitions
// are idempotent. Callers are assumed to dispatch single-threaded.
type ServerController struct {
	agg  *Aggregator
	log  *logrus.Logger
	srv  *http.Server
	port uint16
	done chan struct{}
}

func NewServerController(agg *Aggregator, log *logrus.Logger) *ServerController {
	if log == nil {
		log = logrus.New()
	}
	return &ServerController{agg: agg, log: log}
}

// Start binds the exporter on port. If the exporter is already running
// nothing is rebound; the existing port is reported instead. Port 0
// picks an ephemeral port.
func (c *ServerController) Start(port uint16) error {
	if c.srv != nil {
		c.log.WithField("port", c.port).Info("the metrics server is already running")
		c.log.Infof("visit http://localhost:%d/metrics", c.port)
		return nil
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("metrics server: listen on port %d: %w", port, err)
	}
	actual := uint16(listener.Addr().(*net.TCPAddr).Port)

	router := chi.NewRouter()
	router.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(c.agg.Registry(), promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	done := make(chan struct{})

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.WithError(err).Error("metrics server error")
		}
		close(done)
	}()

	c.srv = srv
	c.port = actual
	c.done = done

	c.log.WithField("port", actual).Info("metrics server started")
	c.log.Infof("visit http://localhost:%d/metrics", actual)
	return nil
}

// Stop signals the exporter to shut down and returns immediately; the
// actual teardown finishes in the background. Stopping an already
// stopped controller is informational, not an error.
func (c *ServerController) Stop() {
	if c.srv == nil {
		c.log.Info("the metrics server is not running")
		return
	}

	srv, done := c.srv, c.done
	c.srv = nil
	c.port = 0
	c.done = nil

	c.log.Info("finishing the metrics server")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			c.log.WithError(err).Warn("metrics server shutdown")
		}
		<-done
	}()
}

// Running reports the bound port when the exporter is up.
func (c *ServerController) Running() (uint16, bool) {
	return c.port, c.srv != nil
}
