package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/warroom-backend/internal/config"
	"github.com/DoyleJ11/warroom-backend/internal/coordinator"
	"github.com/DoyleJ11/warroom-backend/internal/metrics"
	"github.com/DoyleJ11/warroom-backend/internal/ws"
)

func SetupRoutes(svc *coordinator.Service, cfg config.AppConfig, logger *zap.Logger, m *metrics.Metrics) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Post("/rooms", CreateRoom(svc))
	r.Get("/rooms/{code}", RoomInfo(svc))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(svc, cfg.WS, logger, m))
	if cfg.Server.MetricsEnabled {
		r.Handle("/metrics", m.Handler())
	}
	return r
}

// requestLogger logs one line per request once it has been served.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
