package api

import (
	"net/http"
	"time"
	"total_loc/internal/api/handler"
	"total_loc/internal/api/middleware"
	"total_loc/internal/app/service"
	"total_loc/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func NewRouter(lineCountService *service.LineCountService, log *logrus.Entry) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(lineCountService))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		lineCountHandler := handler.NewLineCountHandler(lineCountService, log)
		v1.Route("/line-counts", lineCountHandler.RegisterRoutes)
	})

	return r
}
