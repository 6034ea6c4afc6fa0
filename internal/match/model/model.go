package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is one retailer's scraped product record. Produced by the
// extraction layer; the matcher never mutates it.
type Listing struct {
	ID              string              `json:"id"`
	RetailerCode    string              `json:"retailerCode"`
	Name            string              `json:"name"`
	Brand           string              `json:"brand,omitempty"`
	URL             string              `json:"url"`
	UnifiedCategory string              `json:"unifiedCategory,omitempty"` // empty = unmatchable
	CurrentPrice    decimal.NullDecimal `json:"currentPrice"`
	OriginalPrice   decimal.NullDecimal `json:"originalPrice"`
	RetailerSku     string              `json:"retailerSku,omitempty"`
	Specs           map[string]string   `json:"specs,omitempty"`
	DiscoveredAt    time.Time           `json:"discoveredAt"`
}

type ListingFilter struct {
	Category string // exact unified category, empty = any
	Retailer string // retailer code, empty = any
}

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierNone   Tier = "none"
)

// Qualifies reports whether a pair at this tier feeds the grouper.
func (t Tier) Qualifies() bool { return t == TierHigh || t == TierMedium }

// CandidatePair holds per-run arena indices of two listings from different
// retailers that share a block.
type CandidatePair struct {
	A, B int
}

type SimilarityBreakdown struct {
	Name    float64 `json:"name"`
	Code    float64 `json:"code"`
	Brand   float64 `json:"brand"`
	Price   float64 `json:"price"`
	Spec    float64 `json:"spec"`
	Overall float64 `json:"overall"`
	Tier    Tier    `json:"tier"`
}

// EdgeScore is the audit entry of one scored pair inside a group.
type EdgeScore struct {
	A         string              `json:"a"` // lower listing id
	B         string              `json:"b"`
	Breakdown SimilarityBreakdown `json:"breakdown"`
}

// MatchGroup carries at most one listing id per retailer code.
type MatchGroup struct {
	ListingIDs []string `json:"listingIds"`
}

type MatchCriteria struct {
	AlgorithmVersion string      `json:"algorithmVersion"`
	ProfileVersion   string      `json:"profileVersion"`
	Weights          Weights     `json:"weights"`
	Edges            []EdgeScore `json:"edges"`
}

// ProductMatch is the persisted comparison record of one resolved group.
// It is always rewritten as a whole.
type ProductMatch struct {
	ID                string              `json:"id"`
	MasterListingID   string              `json:"masterListingId"`
	MemberListingIDs  []string            `json:"memberListingIds"`
	NormalizedName    string              `json:"normalizedName"`
	NormalizedBrand   string              `json:"normalizedBrand"`
	UnifiedCategory   string              `json:"unifiedCategory"`
	PriceMin          decimal.NullDecimal `json:"priceMin"`
	PriceMax          decimal.NullDecimal `json:"priceMax"`
	PriceVariancePct  decimal.NullDecimal `json:"priceVariancePct"`
	BestPriceRetailer string              `json:"bestPriceRetailer,omitempty"`
	MatchConfidence   float64             `json:"matchConfidence"`
	MatchCriteria     MatchCriteria       `json:"matchCriteria"`
}

// ListingIDs returns the master followed by the members.
func (m ProductMatch) ListingIDs() []string {
	out := make([]string, 0, len(m.MemberListingIDs)+1)
	out = append(out, m.MasterListingID)
	return append(out, m.MemberListingIDs...)
}

type DuplicatePair struct {
	A              string  `json:"a"`
	B              string  `json:"b"`
	NameSimilarity float64 `json:"nameSimilarity"`
}

// DuplicateGroup lists same-retailer listings with near-identical names,
// flagged for manual review. Never turned into a ProductMatch.
type DuplicateGroup struct {
	ID              string          `json:"id"`
	RetailerCode    string          `json:"retailerCode"`
	UnifiedCategory string          `json:"unifiedCategory"`
	ListingIDs      []string        `json:"listingIds"`
	Pairs           []DuplicatePair `json:"pairs"`
}
