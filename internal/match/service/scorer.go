package service

import (
	"github.com/shopspring/decimal"

	"listing-match/internal/match/model"
)

// Every signal is independent: a missing field scores that signal 0 and
// leaves the others intact. All functions are symmetric in their arguments.

const (
	nameSortWeight    = 0.7
	namePartialWeight = 0.3
)

// NameSimilarity blends a token-sort ratio with a partial ratio.
func NameSimilarity(a, b *Signals) float64 {
	if a.Name == "" || b.Name == "" {
		return 0
	}
	sorted := ratio(a.SortedName, b.SortedName)
	partial := max(partialRatio(a.Name, b.Name), partialRatio(a.SortedName, b.SortedName))
	return nameSortWeight*sorted + namePartialWeight*partial
}

// CodeSimilarity is the best match among all code pairs; an exact match wins outright.
func CodeSimilarity(a, b *Signals) float64 {
	if len(a.Codes) == 0 || len(b.Codes) == 0 {
		return 0
	}
	best := 0.0
	for _, ca := range a.Codes {
		for _, cb := range b.Codes {
			if ca == cb {
				return 1
			}
			if s := codeRatio(ca, cb); s > best {
				best = s
			}
		}
	}
	return best
}

func BrandSimilarity(a, b *Signals) float64 {
	if a.Brand == "" || b.Brand == "" {
		return 0
	}
	if a.Brand == b.Brand {
		return 1
	}
	return ratio(a.Brand, b.Brand)
}

var (
	two        = decimal.NewFromInt(2)
	priceSteps = []struct {
		maxDiff decimal.Decimal
		score   float64
	}{
		{decimal.RequireFromString("0.05"), 1.0},
		{decimal.RequireFromString("0.10"), 0.8},
		{decimal.RequireFromString("0.20"), 0.6},
		{decimal.RequireFromString("0.30"), 0.4},
	}
)

// PriceSimilarity steps on the relative difference |p1-p2| / avg(p1,p2).
// Deliberately coarse: prices only corroborate.
func PriceSimilarity(a, b *Signals) float64 {
	if !a.Price.Valid || !b.Price.Valid {
		return 0
	}
	p1, p2 := a.Price.Decimal, b.Price.Decimal
	if !p1.IsPositive() || !p2.IsPositive() {
		return 0
	}
	d := p1.Sub(p2).Abs().Mul(two).Div(p1.Add(p2))
	for _, st := range priceSteps {
		if d.LessThanOrEqual(st.maxDiff) {
			return st.score
		}
	}
	return 0
}

// SpecSimilarity is the share of common spec keys with equal values.
func SpecSimilarity(a, b *Signals) float64 {
	if len(a.Specs) == 0 || len(b.Specs) == 0 {
		return 0
	}
	shared, equal := 0, 0
	for k, va := range a.Specs {
		vb, ok := b.Specs[k]
		if !ok {
			continue
		}
		shared++
		if va == vb {
			equal++
		}
	}
	if shared == 0 {
		return 0
	}
	return float64(equal) / float64(shared)
}

// Scorer combines signals with the weights of one profile version.
type Scorer struct {
	profile model.Profile
}

func NewScorer(p model.Profile) *Scorer {
	return &Scorer{profile: p}
}

func (s *Scorer) Profile() model.Profile { return s.profile }

func (s *Scorer) Score(a, b *Signals) model.SimilarityBreakdown {
	w := s.profile.Weights
	br := model.SimilarityBreakdown{
		Name:  round(NameSimilarity(a, b), 6),
		Code:  round(CodeSimilarity(a, b), 6),
		Brand: round(BrandSimilarity(a, b), 6),
		Price: PriceSimilarity(a, b),
	}
	if w.Spec > 0 {
		br.Spec = round(SpecSimilarity(a, b), 6)
	}
	br.Overall = round(w.Name*br.Name+w.Code*br.Code+w.Brand*br.Brand+w.Price*br.Price+w.Spec*br.Spec, 6)
	br.Tier = s.Classify(br.Overall, br.Code)
	return br
}

// Classify maps an overall score to a tier. A near-certain model code match
// lifts medium to high.
func (s *Scorer) Classify(overall, code float64) model.Tier {
	t := s.profile.Thresholds
	var tier model.Tier
	switch {
	case overall >= t.High:
		tier = model.TierHigh
	case overall >= t.Medium:
		tier = model.TierMedium
	case overall >= t.Low:
		tier = model.TierLow
	default:
		tier = model.TierNone
	}
	if tier == model.TierMedium && code > t.CodeEscalation {
		tier = model.TierHigh
	}
	return tier
}
