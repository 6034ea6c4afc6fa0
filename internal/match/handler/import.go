package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"listing-match/internal/fileio"
	"listing-match/internal/match/model"
)

type importResponse struct {
	Imported int               `json:"imported"`
	Skipped  int               `json:"skipped"`
	Columns  map[string]string `json:"columns"`
	Summary  *model.Summary    `json:"summary,omitempty"`
}

// Import loads a retailer export (multipart field "file") into the listing
// store. Form fields: retailer, category, header_row, and rematch=1 to run a
// full re-match scoped to the retailer afterwards.
func Import(m Matcher, c Catalog, maxUploadMB int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := zerolog.Ctx(r.Context())

		if err := r.ParseMultipartForm(int64(maxUploadMB) << 20); err != nil {
			writeError(w, r, http.StatusBadRequest, "bad multipart form: "+err.Error())
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "missing file: "+err.Error())
			return
		}
		defer file.Close()

		opts := fileio.ImportOptions{
			HeaderRow: atoi(r.FormValue("header_row"), 1),
			Retailer:  strings.ToUpper(strings.TrimSpace(r.FormValue("retailer"))),
			Category:  strings.TrimSpace(r.FormValue("category")),
		}
		res, err := fileio.ReadListings(file, header.Filename, opts)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, fileio.ErrNoNameColumn) {
				status = http.StatusUnprocessableEntity
			}
			writeError(w, r, status, "failed to read "+header.Filename+": "+err.Error())
			return
		}
		now := time.Now().UTC()
		for i := range res.Listings {
			if res.Listings[i].DiscoveredAt.IsZero() {
				res.Listings[i].DiscoveredAt = now
			}
		}
		if err := c.UpsertListings(r.Context(), res.Listings); err != nil {
			log.Error().Err(err).Str("file", header.Filename).Msg("store listings")
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}

		out := importResponse{Imported: len(res.Listings), Skipped: res.Skipped, Columns: res.Columns}
		if toBool(r.FormValue("rematch"), false) {
			sum, err := m.FullRematch(r.Context(), model.Scope{Retailer: opts.Retailer})
			if err != nil {
				log.Error().Err(err).Msg("re-match after import")
				writeError(w, r, http.StatusInternalServerError, err.Error())
				return
			}
			out.Summary = &sum
		}

		log.Info().
			Str("file", header.Filename).
			Str("retailer", opts.Retailer).
			Int("imported", out.Imported).
			Int("skipped", out.Skipped).
			Dur("elapsed", time.Since(start)).
			Msg("import done")
		writeJSON(w, r, http.StatusOK, out)
	}
}
