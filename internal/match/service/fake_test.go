package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"listing-match/internal/match/model"
)

// memStore is an in-memory ListingSource and MatchStore. failOn makes
// ReplaceBlock fail for the named categories.
type memStore struct {
	mu       sync.Mutex
	listings []model.Listing
	matches  map[string]model.ProductMatch
	dups     map[string][]model.DuplicateGroup
	failOn   map[string]error
}

func newMemStore(ls ...model.Listing) *memStore {
	return &memStore{
		listings: ls,
		matches:  make(map[string]model.ProductMatch),
		dups:     make(map[string][]model.DuplicateGroup),
		failOn:   make(map[string]error),
	}
}

func (m *memStore) Listings(_ context.Context, f model.ListingFilter) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Listing
	for _, l := range m.listings {
		if f.Category != "" && l.UnifiedCategory != f.Category {
			continue
		}
		if f.Retailer != "" && l.RetailerCode != f.Retailer {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) ReplaceBlock(_ context.Context, category string, matches []model.ProductMatch, dups []model.DuplicateGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[category]; err != nil {
		return err
	}
	for id, pm := range m.matches {
		if pm.UnifiedCategory == category {
			delete(m.matches, id)
		}
	}
	for _, pm := range matches {
		m.matches[pm.ID] = pm
	}
	m.dups[category] = dups
	return nil
}

func (m *memStore) MatchesByCategory(_ context.Context, category string) ([]model.ProductMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ProductMatch
	for _, pm := range m.matches {
		if pm.UnifiedCategory == category {
			out = append(out, pm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ReplaceMatches(_ context.Context, removeIDs []string, add []model.ProductMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range removeIDs {
		delete(m.matches, id)
	}
	for _, pm := range add {
		m.matches[pm.ID] = pm
	}
	return nil
}

func (m *memStore) Categories(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	for _, pm := range m.matches {
		seen[pm.UnifiedCategory] = true
	}
	for c, d := range m.dups {
		if len(d) > 0 {
			seen[c] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) MatchByListing(_ context.Context, listingID string) (model.ProductMatch, bool, error) {
	for _, pm := range m.all() {
		for _, id := range pm.ListingIDs() {
			if id == listingID {
				return pm, true, nil
			}
		}
	}
	return model.ProductMatch{}, false, nil
}

func (m *memStore) all() []model.ProductMatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ProductMatch, 0, len(m.matches))
	for _, pm := range m.matches {
		out = append(out, pm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) add(ls ...model.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings = append(m.listings, ls...)
}

// recategorize moves stored listings to another category, as a re-scrape would.
func (m *memStore) recategorize(category string, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.listings {
		for _, id := range ids {
			if m.listings[i].ID == id {
				m.listings[i].UnifiedCategory = category
			}
		}
	}
}

func (m *memStore) listing(id string) model.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.listings {
		if l.ID == id {
			return l
		}
	}
	return model.Listing{}
}

func mkListing(id, retailer, category, name, brand, price string) model.Listing {
	l := model.Listing{
		ID:              id,
		RetailerCode:    retailer,
		Name:            name,
		Brand:           brand,
		URL:             "https://example.test/" + id,
		UnifiedCategory: category,
		DiscoveredAt:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if price != "" {
		l.CurrentPrice = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	return l
}

func newTestOrchestrator(t *testing.T, st *memStore, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(zerolog.Nop(), model.DefaultProfile(), nil, st, st, opts)
	require.NoError(t, err)
	return o
}

// Two listings of the same Samsung TV at HP and TWD.
func samsungTV() (model.Listing, model.Listing) {
	hp := mkListing("hp-1", "HP", "tv", `Samsung 55" Crystal UHD 4K Smart TV UA55AU7700`, "Samsung", "15990")
	hp.RetailerSku = "UA55AU7700KXXT"
	twd := mkListing("twd-1", "TWD", "tv", "ซัมซุง ทีวี 55 นิ้ว UA55AU7700 Crystal UHD", "ซัมซุง", "14990")
	return hp, twd
}
