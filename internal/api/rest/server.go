package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
}

// NewServer creates a new REST API server. backfillSvc may be nil, in which
// case the backfill routes are not registered.
func NewServer(port string, projections ProjectionAPI, availabilitySvc AvailabilityAPI, backfillSvc BackfillAPI, checks []HealthCheck, logger logrus.FieldLogger) *Server {
	handler := NewHandler(projections, availabilitySvc, checks)

	return &Server{
		port:    port,
		handler: handler,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           NewRouter(handler, backfillSvc, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter builds the route table.
func NewRouter(handler *Handler, backfillSvc BackfillAPI, logger logrus.FieldLogger) *mux.Router {
	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Projections
	api.HandleFunc("/projections/weekly", handler.GetWeeklyProjections).Methods("GET")
	api.HandleFunc("/projections/seasonal", handler.GetSeasonalProjections).Methods("GET")
	api.HandleFunc("/players/{playerID}/projection", handler.GetPlayerProjection).Methods("GET")

	// Availability
	api.HandleFunc("/availability/summary", handler.GetAvailabilitySummary).Methods("GET")

	// Engine
	api.HandleFunc("/engine/status", handler.GetEngineStatus).Methods("GET")
	api.HandleFunc("/engine/fit", handler.FitEngine).Methods("POST")

	// Backfill operations
	if backfillSvc != nil {
		backfillHandler := NewBackfillHandler(backfillSvc)
		api.HandleFunc("/backfill", backfillHandler.HandleBackfillRequest).Methods("POST")
		api.HandleFunc("/backfill/status", backfillHandler.HandleBackfillStatus).Methods("GET")
		api.HandleFunc("/backfill/{jobID}", backfillHandler.HandleBackfillJob).Methods("GET")
	}

	return router
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
