package daemon

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/oraexporter/internal/config"
	"git.home.luguber.info/inful/oraexporter/internal/foundation/errors"
	"git.home.luguber.info/inful/oraexporter/internal/logfields"
	"git.home.luguber.info/inful/oraexporter/internal/metrics"
	smw "git.home.luguber.info/inful/oraexporter/internal/server/middleware"
	"git.home.luguber.info/inful/oraexporter/internal/version"
)

const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head><title>Oracle Exporter</title></head>
<body>
<h1>Oracle Exporter</h1>
<p>Version {{.Version}}</p>
<ul>
<li><a href="{{.MetricsPath}}">Metrics</a></li>
<li><a href="{{.HealthPath}}">Health</a></li>
</ul>
</body>
</html>
`))

// HTTPServer serves the scrape, health and landing endpoints.
type HTTPServer struct {
	server       *http.Server
	listener     net.Listener
	config       config.HTTPConfig
	daemon       *Daemon
	errorAdapter *errors.HTTPErrorAdapter
	mchain       func(http.Handler) http.Handler
}

// NewHTTPServer creates a new HTTP server instance with the specified configuration
func NewHTTPServer(cfg config.HTTPConfig, daemon *Daemon) *HTTPServer {
	s := &HTTPServer{
		config:       cfg,
		daemon:       daemon,
		errorAdapter: errors.NewHTTPErrorAdapter(daemon.logger),
	}
	s.mchain = smw.Chain(daemon.logger, s.errorAdapter)
	return s
}

// Handler returns the routed handler wrapped in logging and recovery middleware.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET "+s.config.MetricsPath, metrics.HTTPHandler(s.daemon.registry))
	mux.HandleFunc("GET "+s.config.HealthPath, s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleLanding)
	return s.mchain(mux)
}

// Start binds the listen address and serves in the background. Binding happens
// synchronously so an occupied port fails startup.
func (s *HTTPServer) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.ListenAddress)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to bind HTTP listener").
			Fatal().
			WithContext("addr", s.config.ListenAddress).
			Build()
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(s.daemon.logger.Handler(), slog.LevelWarn),
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			s.daemon.logger.Error("HTTP server failed", logfields.Addr(s.Addr()), logfields.Error(err))
		}
	}()
	s.daemon.logger.Info("HTTP server listening",
		logfields.Addr(s.Addr()),
		logfields.Path(s.config.MetricsPath))
	return nil
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address, or the configured one before Start.
func (s *HTTPServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddress
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := s.daemon.PerformHealthChecks(r.Context())
	body, err := json.Marshal(resp)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryInternal, "failed to encode health report").Build())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.HTTPStatus())
	_, _ = w.Write(body)
}

func (s *HTTPServer) handleLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Version     string
		MetricsPath string
		HealthPath  string
	}{version.Version, s.config.MetricsPath, s.config.HealthPath}
	if err := landingTemplate.Execute(w, data); err != nil {
		s.daemon.logger.Warn("Failed to render landing page", logfields.Error(err))
	}
}
