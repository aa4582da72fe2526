package http

import (
	"net/http"
	"time"

	_ "github.com/collinlucke/baphomet-server/docs" // Импорт описания API для swagger
	"github.com/collinlucke/baphomet-server/internal/usecase"
	"github.com/collinlucke/baphomet-server/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router   *chi.Mux
	logger   logger.Logger
	gatherer prometheus.Gatherer
}

func NewRouter(router *chi.Mux, logger logger.Logger, gatherer prometheus.Gatherer) *Router {
	return &Router{router: router, logger: logger, gatherer: gatherer}
}

// Init регистрирует middleware и маршруты. requestTimeout ограничивает обработку одного запроса.
func (r *Router) Init(imgUC usecase.ImageUC, requestTimeout time.Duration) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RealIP)
	r.router.Use(middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))
	r.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.gatherer != nil {
		r.router.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}

	r.router.Route("/api/v1", func(v1 chi.Router) {
		if requestTimeout > 0 {
			v1.Use(middleware.Timeout(requestTimeout))
		}
		imgHandler := NewImageHandler(imgUC, r.logger)
		registerImageRoutes(v1, imgHandler)
	})
}

func registerImageRoutes(router chi.Router, imgHandler *ImageHandler) {
	router.Route("/images", func(img chi.Router) {
		img.Get("/", imgHandler.getImage)
		img.Get("/responsive", imgHandler.responsiveImages)
		img.Get("/optimized", imgHandler.optimizedImage)
		img.Post("/process", imgHandler.processImage)
		img.Post("/batch", imgHandler.batchProcess)
		img.Post("/movies", imgHandler.processMovies)
	})
}
