package router

import (
	"net/http"

	"watermark-studio/internal/http-server/handler/batch"
	"watermark-studio/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	BatchHandler *batch.BatchHandler
}

func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)
	r.Use(middleware.LoggingMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/batch", func(r chi.Router) {
			r.Post("/items", h.BatchHandler.AddItems)
			r.Get("/items", h.BatchHandler.ListItems)
			r.Delete("/items/{id}", h.BatchHandler.DeleteItem)
			r.Get("/items/{id}/result", h.BatchHandler.GetResult)
			r.Delete("/", h.BatchHandler.ResetBatch)

			r.Post("/logo", h.BatchHandler.SetLogo)
			r.Post("/logo/text", h.BatchHandler.SetLogoText)

			r.Post("/process", h.BatchHandler.Process)
		})

		r.Get("/settings", h.BatchHandler.GetSettings)
		r.Put("/settings", h.BatchHandler.UpdateSettings)

		r.Post("/preview/{id}", h.BatchHandler.SelectPreview)
		r.Get("/preview", h.BatchHandler.GetPreview)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
	})

	return r
}
