package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medibook/booking-engine/internal/booking"
)

type RouterConfig struct {
	Service *booking.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints stay outside the principal check
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(PrincipalMiddleware)

		r.Get("/slots", getSlotsHandler(cfg.Service))

		r.Post("/appointments", createAppointmentHandler(cfg.Service))
		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Service))

		r.Get("/doctor/today", doctorTodayHandler(cfg.Service))
		r.Get("/doctor/calendar", doctorCalendarHandler(cfg.Service))
		r.Post("/doctor/blocks", createBlockHandler(cfg.Service))
		r.Get("/doctor/blocks", listBlocksHandler(cfg.Service))
	})

	return r
}
