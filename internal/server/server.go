// Package server exposes the chat workflow as an HTTP webhook.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"clawback/clawback/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/netutil"
)

// MessageHandler turns one chat message into a reply.
type MessageHandler interface {
	HandleMessage(ctx context.Context, chatID, text string) string
}

// TripLister lists known trip names.
type TripLister interface {
	List(ctx context.Context) ([]string, error)
}

// Config configures the webhook server.
type Config struct {
	Addr string
	// TokenHash is a bcrypt hash of the bearer token callers must present.
	// Empty disables authentication.
	TokenHash string
	// MaxConnections caps concurrent connections. Zero means unlimited.
	MaxConnections  int
	ShutdownTimeout time.Duration
}

type messageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type messageResponse struct {
	Reply string `json:"reply"`
}

type tripsResponse struct {
	Trips []string `json:"trips"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes webhook requests to the message handler.
// Messages are handled one at a time.
type Server struct {
	cfg     Config
	handler MessageHandler
	trips   TripLister
	logger  logging.Logger
	router  chi.Router
	mu      sync.Mutex
}

// New builds a Server and its routes.
func New(cfg Config, handler MessageHandler, trips TripLister, logger logging.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{cfg: cfg, handler: handler, trips: trips, logger: logger}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	router.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/messages", s.handleMessage)
		r.Get("/trips", s.handleTrips)
	})

	s.router = router
	return s
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("Webhook server listening", logging.F(logging.FieldAddr, ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down webhook server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.ChatID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "chat_id is required"})
		return
	}

	var reply string
	func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		reply = s.handler.HandleMessage(r.Context(), req.ChatID, req.Text)
	}()

	writeJSON(w, http.StatusOK, messageResponse{Reply: reply})
}

func (s *Server) handleTrips(w http.ResponseWriter, r *http.Request) {
	names, err := s.trips.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to list trips")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, tripsResponse{Trips: names})
}

// requireToken checks the bearer token against the configured bcrypt hash.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.TokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || bcrypt.CompareHashAndPassword([]byte(s.cfg.TokenHash), []byte(token)) != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("Handled request",
			logging.F("method", r.Method),
			logging.F(logging.FieldPath, r.URL.Path),
			logging.F(logging.FieldStatus, ww.Status()),
			logging.F("request_id", middleware.GetReqID(r.Context())),
			logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	})
}

// HashToken returns the bcrypt hash to configure for token.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
