// Package reportshttp exposes the custom reports engine over HTTP.
package reportshttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// BasePath is where the reports API is mounted.
const BasePath = "/api/custom-reports"

// MountRoutes registers the custom reports endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route(BasePath, func(r chi.Router) {
		r.Post("/generate", h.handleGenerate)
		r.Post("/sales", h.handleSales)
		r.Post("/inventory", h.handleInventory)
		r.Post("/performance", h.handlePerformance)
		r.Post("/category", h.handleCategory)
		r.Get("/history", h.handleHistory)
		r.Get("/history/{id}", h.handleReport)
		r.Get("/types", h.handleTypes)
		r.Get("/test", h.handleSample)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/history/{id}/export.csv", h.handleCSV)
			gr.Get("/history/{id}/export.pdf", h.handlePDF)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
