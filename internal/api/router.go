package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tabslayer/tabslayer-server/internal/logger"
)

func NewRouter(apiHandler *APIHandler, events http.Handler, allowedOrigins []string, log logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/links", apiHandler.ListLinksHandler)
		r.Post("/links", apiHandler.AddLinkHandler)
		r.Delete("/links/{linkID}", apiHandler.DeleteLinkHandler)
		r.Get("/tags", apiHandler.ListTagsHandler)

		r.Get("/theme", apiHandler.GetThemeHandler)
		r.Put("/theme", apiHandler.UpdateThemeHandler)

		r.Get("/chat/messages", apiHandler.TranscriptHandler)
		r.Post("/chat/messages", apiHandler.PostMessageHandler)

		if events != nil {
			r.Get("/events", events.ServeHTTP)
		}
	})

	return r
}

// requestLogger logs one line per request. The wrapped writer keeps
// http.Flusher so the event stream still works.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			reqLog := log.With(logger.String("request_id", middleware.GetReqID(r.Context())))
			reqLog.Info("http_request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("duration", time.Since(start)),
			)
		})
	}
}
