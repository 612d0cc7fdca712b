// Package server exposes the suggestion service over HTTP and hosts the
// overlay websocket used by battle pages.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/showdex/internal/bridge"
	"github.com/showdex/internal/data"
	"github.com/showdex/internal/interceptor"
	"github.com/showdex/internal/overlay"
	"github.com/showdex/internal/storage"
	"github.com/showdex/pkg/healthcheck"
)

// ErrNoSession is returned when no battle is being followed.
var ErrNoSession = errors.New("no active battle session")

// SettingsStore reads and persists user settings.
type SettingsStore interface {
	Get() storage.Settings
	Save(ctx context.Context, s storage.Settings) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Settings  SettingsStore
	Suggester bridge.Suggester
	Transport bridge.Transport
	// Species may be nil, in which case panels get no sprites.
	Species overlay.SpeciesLookup
	// Listeners are added to every session's bridge.
	Listeners   []bridge.Listener
	Checks      map[string]healthcheck.Check
	LogCapacity int
	Install     interceptor.InstallOptions
}

// Server is the HTTP API plus the overlay hub.
type Server struct {
	deps       Deps
	router     *mux.Router
	httpServer *http.Server
	logger     *zap.Logger
	ctx        context.Context

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	active  *Session
	closing bool
	wg      sync.WaitGroup
}

// New creates a Server listening on addr. Sessions live until ctx ends or
// their page disconnects.
func New(ctx context.Context, addr string, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Transport == nil && deps.Suggester != nil {
		deps.Transport = bridge.NewLocalTransport(deps.Suggester, logger)
	}

	s := &Server{
		deps:    deps,
		router:  mux.NewRouter(),
		logger:  logger.Named("server"),
		ctx:     ctx,
		clients: make(map[*wsClient]struct{}),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Handle("/health", healthcheck.Handler(s.deps.Checks)).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/suggest", s.handleSuggest).Methods("POST", "OPTIONS")
	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handlePutSettings).Methods("PUT", "OPTIONS")
	api.HandleFunc("/models", s.handleGetModels).Methods("GET")
	api.HandleFunc("/panel", s.handleGetPanel).Methods("GET")
	api.HandleFunc("/refresh", s.handleRefresh).Methods("POST", "OPTIONS")

	s.router.Use(corsMiddleware)
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and disconnects every page.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	s.closing = true
	for c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// AttachHost follows a host that is not a browser page, such as the
// Showdown client. The session lasts until ctx ends.
func (s *Server) AttachHost(ctx context.Context, host interceptor.Host) *Session {
	sess := s.newSession(ctx, host)
	sess.install()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		sess.close()
	}()
	return sess
}

// Refresh resends the last request of the most recently active battle.
func (s *Server) Refresh() error {
	sess := s.Active()
	if sess == nil {
		return ErrNoSession
	}
	return sess.Refresh()
}

// Active returns the session that emitted last, if any.
func (s *Server) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Server) markActive(sess *Session) {
	s.mu.Lock()
	s.active = sess
	s.mu.Unlock()
}

func (s *Server) register(c *wsClient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.clients[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) unregister(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	if s.active == c.session {
		s.active = nil
	}
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var env bridge.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageSize)).Decode(&env); err != nil {
		http.Error(w, "Invalid envelope", http.StatusBadRequest)
		return
	}
	if env.Kind != "" && env.Kind != bridge.KindShowdownRequest {
		http.Error(w, "Unsupported envelope type", http.StatusBadRequest)
		return
	}
	if s.deps.Suggester == nil {
		http.Error(w, "Suggestions disabled", http.StatusServiceUnavailable)
		return
	}

	reply := bridge.Answer(r.Context(), s.deps.Suggester, env, s.logger)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Settings.Get().Masked())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var form overlay.Form
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsSize)).Decode(&form); err != nil {
		http.Error(w, "Invalid settings", http.StatusBadRequest)
		return
	}

	saved, err := form.KeepMasked(s.deps.Settings.Get()).Save(r.Context(), s.deps.Settings)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, saved.Masked())
}

func (s *Server) handleGetModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, data.GetModels())
}

func (s *Server) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	sess := s.Active()
	if sess == nil {
		http.Error(w, ErrNoSession.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Panel.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	switch err := s.Refresh(); {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, ErrNoSession), errors.Is(err, bridge.ErrNothingToRefresh):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("Failed to encode response", zap.Error(err))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
