package api

import (
	_ "ratecache/docs"
	"ratecache/internal/rate/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swagger "github.com/swaggo/http-swagger"
)

func NewRouter(rateHandler *handler.Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	router.Handle("/metrics", promhttp.Handler())

	// Swagger UI
	router.Get("/swagger/*", swagger.WrapHandler)

	router.Get("/api/v1/status", rateHandler.Status)
	router.Post("/api/v1/base-currency", rateHandler.ChangeBase)
	router.Get("/api/v1/rates/{code:[A-Za-z]{3}}", rateHandler.GetCurrent)
	router.Get("/api/v1/rates/{code:[A-Za-z]{3}}/{date}", rateHandler.GetOnDate)
	return router
}
