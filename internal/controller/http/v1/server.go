package v1

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kurochkinivan/table_import/internal/config"
)

type Server struct {
	httpServer *http.Server
}

func NewServer(cfg config.HTTP, service ImportsService) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			Handler:      NewRouter(service),
		},
	}
}

// NewRouter builds the API router, exposed separately for handler tests.
func NewRouter(service ImportsService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	h := NewImportsHandler(service)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/imports", h.SubmitImport)
		r.Post("/imports/preview", h.PreviewImport)
		r.Get("/imports", h.ListImports)
		r.Get("/imports/{job_id}", h.GetImport)
		r.Get("/imports/{job_id}/progress", h.GetProgress)
		r.Get("/imports/{job_id}/schema", h.GetSchema)
		r.Get("/imports/{job_id}/records", h.GetRecords)
		r.Delete("/imports/{job_id}", h.DeleteImport)
		r.Get("/formats", h.GetFormats)
	})

	return r
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
