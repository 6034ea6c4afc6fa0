package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"listing-match/internal/config"
	matchHnd "listing-match/internal/match/handler"
	"listing-match/internal/middleware"
	"listing-match/server/http/handlers"
)

// Deps are the collaborators the routes call into.
type Deps struct {
	Matcher matchHnd.Matcher
	Catalog matchHnd.Catalog
	DB      handlers.Pinger
}

func NewRouter(cfg config.Config, logger zerolog.Logger, d Deps) *chi.Mux {
	r := chi.NewRouter()

	// order matters: recover -> request id -> logging -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Logging())
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) << 20))

	r.Get("/health", handlers.Health(d.DB))

	r.Post("/rematch", matchHnd.Rematch(d.Matcher))
	r.Route("/listings", func(r chi.Router) {
		r.Post("/match", matchHnd.MatchListing(d.Matcher, d.Catalog))
		r.Post("/import", matchHnd.Import(d.Matcher, d.Catalog, cfg.MaxUploadMB))
	})
	r.Route("/categories/{category}", func(r chi.Router) {
		r.Get("/matches", matchHnd.Matches(d.Catalog))
		r.Get("/duplicates", matchHnd.Duplicates(d.Catalog))
	})

	return r
}
