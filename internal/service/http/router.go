package httpsvc

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// NewRouter собирает роутер API: request-id, логирование, recover и маршруты
// заказов под /api/v1.
func NewRouter(handler *OrderHandler, logger *log.Entry) http.Handler {
	router := chi.NewRouter()

	router.Use(RequestID)
	router.Use(RequestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})

	return router
}
