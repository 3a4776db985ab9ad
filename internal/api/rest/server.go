package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server. ws, when set, is mounted at
// /ws/cache.
func NewServer(port string, handler *Handler, ws http.Handler) *Server {
	return &Server{
		port:    port,
		handler: handler,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           NewRouter(handler, ws),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter wires routes and middleware around handler
func NewRouter(handler *Handler, ws http.Handler) http.Handler {
	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/player/{playerName}", handler.GetPlayer).Methods("GET")
	api.HandleFunc("/defense/{teamName}", handler.GetDefense).Methods("GET")
	api.HandleFunc("/matchup/{playerName}/{teamName}", handler.GetMatchup).Methods("GET")
	api.HandleFunc("/matchup/{playerName}/{teamName}/brief", handler.GetMatchupBrief).Methods("GET")

	// Cache
	api.HandleFunc("/status", handler.GetStatus).Methods("GET")
	api.HandleFunc("/cache/reload", handler.ReloadCache).Methods("POST")

	if ws != nil {
		router.Handle("/ws/cache", ws).Methods("GET")
	}

	// CORS wraps the router so preflights never reach route matching
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(router)
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
