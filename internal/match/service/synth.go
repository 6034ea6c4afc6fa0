package service

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"listing-match/internal/match/model"
)

// AlgorithmVersion is stored in every record's criteria.
const AlgorithmVersion = "listing-match/1"

var (
	matchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("listing-match/product-match"))
	dupNamespace   = uuid.NewSHA1(uuid.NameSpaceURL, []byte("listing-match/duplicate-group"))
	hundred        = decimal.NewFromInt(100)
)

// ProductMatchID is stable across runs: same category and master, same id.
func ProductMatchID(category, masterID string) string {
	return uuid.NewSHA1(matchNamespace, []byte(category+"\x00"+masterID)).String()
}

// Synthesizer turns a resolved group into its ProductMatch record.
type Synthesizer struct {
	profile model.Profile
}

func NewSynthesizer(p model.Profile) *Synthesizer {
	return &Synthesizer{profile: p}
}

// Build expects members in ascending arena (= listing id) order.
func (s *Synthesizer) Build(category string, a *arena, members []int, edges []Edge) model.ProductMatch {
	master := s.pickMaster(a, members)
	ms := &a.signals[master]

	pm := model.ProductMatch{
		ID:              ProductMatchID(category, a.listings[master].ID),
		MasterListingID: a.listings[master].ID,
		NormalizedName:  ms.Name,
		NormalizedBrand: ms.Brand,
		UnifiedCategory: category,
		MatchCriteria: model.MatchCriteria{
			AlgorithmVersion: AlgorithmVersion,
			ProfileVersion:   s.profile.Version,
			Weights:          s.profile.Weights,
		},
	}
	for _, i := range members {
		if i == master {
			continue
		}
		pm.MemberListingIDs = append(pm.MemberListingIDs, a.listings[i].ID)
		if pm.NormalizedBrand == "" {
			pm.NormalizedBrand = a.signals[i].Brand
		}
	}

	// price range over members with a known positive price
	minIdx := -1
	for _, i := range members {
		p := a.signals[i].Price
		if !p.Valid {
			continue
		}
		if minIdx < 0 || p.Decimal.LessThan(pm.PriceMin.Decimal) {
			minIdx = i
			pm.PriceMin = p
		}
		if !pm.PriceMax.Valid || p.Decimal.GreaterThan(pm.PriceMax.Decimal) {
			pm.PriceMax = p
		}
	}
	if minIdx >= 0 {
		pm.BestPriceRetailer = a.listings[minIdx].RetailerCode
		if pm.PriceMin.Decimal.IsPositive() {
			v := pm.PriceMax.Decimal.Sub(pm.PriceMin.Decimal).Div(pm.PriceMin.Decimal).Mul(hundred).Round(2)
			pm.PriceVariancePct = decimal.NewNullDecimal(v)
		}
	}

	audit := make([]model.EdgeScore, 0, len(edges))
	sum := 0.0
	for _, e := range edges {
		sum += e.Score.Overall
		audit = append(audit, model.EdgeScore{A: a.listings[e.A].ID, B: a.listings[e.B].ID, Breakdown: e.Score})
	}
	sort.Slice(audit, func(i, j int) bool {
		if audit[i].A != audit[j].A {
			return audit[i].A < audit[j].A
		}
		return audit[i].B < audit[j].B
	})
	pm.MatchCriteria.Edges = audit
	if len(edges) > 0 {
		pm.MatchConfidence = round(sum/float64(len(edges)), 6)
	}
	return pm
}

// pickMaster: reference retailer, else earliest discovered, else lowest id.
func (s *Synthesizer) pickMaster(a *arena, members []int) int {
	if ref := s.profile.ReferenceRetailer; ref != "" {
		for _, i := range members {
			if a.listings[i].RetailerCode == ref {
				return i
			}
		}
	}
	best := -1
	for _, i := range members {
		t := a.listings[i].DiscoveredAt
		if t.IsZero() {
			continue
		}
		if best < 0 || t.Before(a.listings[best].DiscoveredAt) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	return members[0]
}
