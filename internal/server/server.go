package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/base-14/examples/go/parking-levels/internal/logging"
	"github.com/base-14/examples/go/parking-levels/internal/parking"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
	registry   *prometheus.Registry
}

func NewServer(port string, handler *Handler) (*Server, error) {
	registry := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		parking.NewOccupancyCollector(handler.Availability),
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      NewRouter(handler, registry),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		handler:  handler,
		registry: registry,
	}, nil
}

func NewRouter(handler *Handler, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}).ServeHTTP)

	r.Route("/api/parking-lot", func(r chi.Router) {
		r.Post("/", handler.CreateParkingLot)
		r.Post("/park", handler.ParkVehicle)
		r.Post("/unpark", handler.UnparkVehicle)
		r.Get("/status", handler.GetStatus)
		r.Get("/find/{vehicleNumber}", handler.FindByVehicleNumber)
		r.Get("/fee", handler.QuoteFee)
	})

	return r
}

func (s *Server) Start() error {
	logging.Info(context.Background(), "starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
