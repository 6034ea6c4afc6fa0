package service

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"listing-match/internal/match/model"
	"listing-match/internal/match/textnorm"
)

// Signals are the comparison inputs derived once per listing per run.
type Signals struct {
	ID         string
	Retailer   string
	Name       string   // normalized name
	SortedName string   // normalized tokens in alphabetical order
	Tokens     []string
	Codes      []string // model/SKU candidates, upper case without hyphens, sorted
	Brand      string
	Price      decimal.NullDecimal // set only for a positive current price
	Specs      map[string]string
}

// run of upper-case letters/digits, optionally hyphenated: UA55AU7700, KDL-43W660F
var reCode = regexp.MustCompile(`\b[A-Z0-9]+(?:-[A-Z0-9]+)*\b`)

const minCodeLen = 4

type Extractor struct {
	norm *textnorm.Normalizer
}

func NewExtractor(n *textnorm.Normalizer) *Extractor {
	return &Extractor{norm: n}
}

func (e *Extractor) Extract(l model.Listing) Signals {
	tokens := e.norm.Tokens(l.Name, textnorm.LocaleAuto)
	s := Signals{
		ID:         l.ID,
		Retailer:   l.RetailerCode,
		Name:       strings.Join(tokens, " "),
		SortedName: tokenSort(tokens),
		Tokens:     tokens,
		Codes:      extractCodes(strings.ToUpper(l.RetailerSku), l.Name),
		Brand:      e.norm.Brand(l.Brand),
	}
	if l.CurrentPrice.Valid && l.CurrentPrice.Decimal.IsPositive() {
		s.Price = l.CurrentPrice
	}
	if len(l.Specs) > 0 {
		s.Specs = make(map[string]string, len(l.Specs))
		for k, v := range l.Specs {
			k = strings.ToLower(strings.TrimSpace(k))
			if v = e.norm.Normalize(v, textnorm.LocaleAuto); k != "" && v != "" {
				s.Specs[k] = v
			}
		}
	}
	return s
}

// extractCodes pulls candidate codes from the given fields. Codes need at
// least four characters and one digit; hyphens are dropped so KDL-43 and
// KDL43 compare equal.
func extractCodes(fields ...string) []string {
	seen := make(map[string]struct{})
	for _, f := range fields {
		if f == "" {
			continue
		}
		for _, m := range reCode.FindAllString(norm.NFKC.String(f), -1) {
			c := strings.ReplaceAll(m, "-", "")
			if len(c) < minCodeLen || !strings.ContainsAny(c, "0123456789") {
				continue
			}
			seen[c] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
