package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/openhomelab/webthingd/internal/infrastructure/config"
	"github.com/openhomelab/webthingd/internal/infrastructure/logging"
	"github.com/openhomelab/webthingd/internal/thing"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Advertiser announces the server's presence on the local network segment.
// The discovery package provides the mDNS implementation; tests use a noop.
type Advertiser interface {
	// Advertise registers a discoverable service record for the given
	// instance name and port.
	Advertise(instance string, port int) error

	// Withdraw removes the service record. Safe to call when nothing is
	// advertised.
	Withdraw()
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.ServerConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Things     []*thing.Thing
	Advertiser Advertiser // optional; nil disables presence advertisement
	Version    string
}

// Server is the network-facing component: it routes property, action, and
// event requests to the addressed Thing, upgrades connections into push
// channels, and advertises presence while running.
type Server struct {
	cfg        config.ServerConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	things     []*thing.Thing
	advertiser Advertiser
	version    string

	mu      sync.Mutex
	server  *http.Server
	hub     *Hub
	cancel  context.CancelFunc
	started bool
}

// New creates an API server for the given set of things.
//
// Hosting more than one thing requires a server name in the configuration;
// for a single thing its own title doubles as the advertised name.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if len(deps.Things) == 0 {
		return nil, fmt.Errorf("at least one thing is required")
	}
	if len(deps.Things) > 1 && deps.Config.Name == "" {
		return nil, fmt.Errorf("server name is required when hosting multiple things")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		things:     deps.Things,
		advertiser: deps.Advertiser,
		version:    deps.Version,
	}

	// Assign stable path prefixes before any description is rendered.
	if len(s.things) > 1 {
		for i, t := range s.things {
			t.SetHrefPrefix("/" + strconv.Itoa(i))
		}
	} else {
		s.things[0].SetHrefPrefix("")
	}

	return s, nil
}

// InstanceName returns the name advertised on the local network: the
// configured server name, or the single thing's title.
func (s *Server) InstanceName() string {
	if s.cfg.Name != "" {
		return s.cfg.Name
	}
	return s.things[0].Title()
}

// Start binds the listener and begins serving. It is idempotent: calling
// Start on a running server is a no-op.
//
// Presence advertisement failures are non-fatal; the server degrades to
// "not discoverable" and keeps handling requests.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	if s.advertiser != nil {
		if err := s.advertiser.Advertise(s.InstanceName(), s.cfg.Port); err != nil {
			s.logger.Warn("presence advertisement failed; continuing undiscoverable",
				"instance", s.InstanceName(),
				"error", err,
			)
		}
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	s.started = true
	return nil
}

// Stop shuts the server down: it closes all live push connections for every
// hosted thing, withdraws presence advertisement, and releases the listener.
// Stop is idempotent.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	if s.advertiser != nil {
		s.advertiser.Withdraw()
	}

	// Cancelling the hub context closes every push connection.
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
