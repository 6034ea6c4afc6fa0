package service

import (
	"github.com/google/uuid"

	"listing-match/internal/match/model"
)

// findDuplicates flags same-retailer listings of one block whose names are
// near-identical. Output is for manual catalog cleanup only.
func findDuplicates(category string, a *arena, threshold float64) ([]model.DuplicateGroup, int) {
	pairs := sameRetailerPairs(a.listings)
	if len(pairs) == 0 {
		return nil, 0
	}
	uf := newUnionFind(len(a.listings))
	var hits []model.DuplicatePair
	flagged := make(map[int]bool)
	for _, p := range pairs {
		s := round(NameSimilarity(&a.signals[p.A], &a.signals[p.B]), 6)
		if s <= threshold {
			continue
		}
		uf.union(p.A, p.B)
		flagged[p.A], flagged[p.B] = true, true
		hits = append(hits, model.DuplicatePair{A: a.listings[p.A].ID, B: a.listings[p.B].ID, NameSimilarity: s})
	}
	if len(hits) == 0 {
		return nil, 0
	}

	var groups []model.DuplicateGroup
	at := make(map[string]int) // first listing id -> group index
	for _, c := range uf.components() {
		if len(c) < 2 || !flagged[c[0]] {
			continue
		}
		first := a.listings[c[0]]
		g := model.DuplicateGroup{
			ID:              uuid.NewSHA1(dupNamespace, []byte(category+"\x00"+first.RetailerCode+"\x00"+first.ID)).String(),
			RetailerCode:    first.RetailerCode,
			UnifiedCategory: category,
		}
		for _, i := range c {
			g.ListingIDs = append(g.ListingIDs, a.listings[i].ID)
			at[a.listings[i].ID] = len(groups)
		}
		groups = append(groups, g)
	}
	for _, h := range hits {
		g := at[h.A]
		groups[g].Pairs = append(groups[g].Pairs, h)
	}
	return groups, len(hits)
}
