// Package handler exposes the matcher over HTTP: the scheduled full re-match,
// the per-listing incremental match and read access to the stored records.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"listing-match/internal/match/model"
)

// Matcher is implemented by service.Orchestrator.
type Matcher interface {
	FullRematch(ctx context.Context, scope model.Scope) (model.Summary, error)
	MatchListing(ctx context.Context, l model.Listing) (model.IncrementalResult, error)
}

// Catalog is implemented by store.Store.
type Catalog interface {
	UpsertListings(ctx context.Context, ls []model.Listing) error
	MatchesByCategory(ctx context.Context, category string) ([]model.ProductMatch, error)
	DuplicatesByCategory(ctx context.Context, category string) ([]model.DuplicateGroup, error)
}

// Rematch runs a full re-match, optionally scoped with ?retailer=CODE, and
// returns the batch summary. Failed blocks are part of a 200 response.
func Rematch(m Matcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())
		scope := model.Scope{Retailer: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("retailer")))}

		sum, err := m.FullRematch(r.Context(), scope)
		if err != nil {
			log.Error().Err(err).Str("retailer", scope.Retailer).Msg("full re-match")
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, r, http.StatusOK, sum)
	}
}

// MatchListing stores one scraped listing and matches it incrementally.
func MatchListing(m Matcher, c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())

		var l model.Listing
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&l); err != nil {
			status := http.StatusBadRequest
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, r, status, "bad listing: "+err.Error())
			return
		}
		l.ID = strings.TrimSpace(l.ID)
		l.RetailerCode = strings.ToUpper(strings.TrimSpace(l.RetailerCode))
		if l.ID == "" || l.RetailerCode == "" || strings.TrimSpace(l.Name) == "" {
			writeError(w, r, http.StatusBadRequest, "id, retailerCode and name are required")
			return
		}
		if l.DiscoveredAt.IsZero() {
			l.DiscoveredAt = time.Now().UTC()
		}

		if err := c.UpsertListings(r.Context(), []model.Listing{l}); err != nil {
			log.Error().Err(err).Str("listing_id", l.ID).Msg("store listing")
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		res, err := m.MatchListing(r.Context(), l)
		if err != nil {
			log.Error().Err(err).Str("listing_id", l.ID).Msg("incremental match")
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		log.Info().
			Str("listing_id", l.ID).
			Str("outcome", string(res.Outcome)).
			Int("candidates", res.Candidates).
			Msg("listing matched")
		writeJSON(w, r, http.StatusOK, res)
	}
}

// Matches lists the ProductMatch records of one category.
func Matches(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := chi.URLParam(r, "category")
		ms, err := c.MatchesByCategory(r.Context(), category)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("category", category).Msg("load matches")
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		if ms == nil {
			ms = []model.ProductMatch{}
		}
		writeJSON(w, r, http.StatusOK, ms)
	}
}

// Duplicates lists the same-retailer duplicate groups of one category.
func Duplicates(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := chi.URLParam(r, "category")
		ds, err := c.DuplicatesByCategory(r.Context(), category)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("category", category).Msg("load duplicates")
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		if ds == nil {
			ds = []model.DuplicateGroup{}
		}
		writeJSON(w, r, http.StatusOK, ds)
	}
}
