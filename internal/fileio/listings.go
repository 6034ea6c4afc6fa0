package fileio

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"listing-match/internal/match/model"
	"listing-match/internal/utils"
)

// ErrNoNameColumn is returned when no header maps to the product name.
var ErrNoNameColumn = errors.New("no product name column")

// SpecPrefix marks spec-sheet columns, e.g. "spec:screen size".
const SpecPrefix = "spec:"

var importNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("listing-match/imported-listing"))

type field int

const (
	fID field = iota
	fSku // before fRetailer so "retailer" never claims "retailer sku"
	fRetailer
	fName
	fBrand
	fURL
	fCategory
	fOriginalPrice
	fPrice
	fDiscovered
	numFields
)

// Header spellings per field, alternatives separated by "|".
var fieldHeaders = [numFields]string{
	fID:            "id|listing id|listing_id|รหัสรายการ",
	fRetailer:      "retailer|retailer code|retailer_code|ร้านค้า|ร้าน",
	fName:          "name|product name|title|ชื่อสินค้า|ชื่อ",
	fBrand:         "brand|ยี่ห้อ|แบรนด์",
	fURL:           "url|link|product url|ลิงก์",
	fCategory:      "unified category|unified_category|category|หมวดหมู่",
	fOriginalPrice: "original price|original_price|regular price|ราคาปกติ|ราคาเต็ม",
	fPrice:         "current price|current_price|price|sale price|ราคา|ราคาขาย",
	fSku:           "sku|retailer sku|retailer_sku|model|รหัสสินค้า|รุ่น",
	fDiscovered:    "discovered at|discovered_at|scraped at|วันที่",
}

// ImportOptions fill in what an export does not carry itself.
type ImportOptions struct {
	HeaderRow int    // 1-based, default 1
	Retailer  string // used when the file has no retailer column
	Category  string // used for rows without a category
}

type ImportResult struct {
	Listings []model.Listing
	Skipped  int               // rows without name or retailer
	Columns  map[string]string // field -> resolved header, for diagnostics
}

// ReadListings reads a retailer export into listings. Rows without an id get
// a stable one derived from retailer and URL (or SKU and name), so importing
// the same file twice updates instead of duplicating.
func ReadListings(r io.Reader, filename string, opts ImportOptions) (ImportResult, error) {
	if opts.HeaderRow <= 0 {
		opts.HeaderRow = 1
	}
	rows, err := ReadAnyMaps(r, filename, opts.HeaderRow)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Columns: map[string]string{}}
	if len(rows) == 0 {
		return res, nil
	}

	headers := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		headers = append(headers, k)
	}
	sort.Strings(headers)
	cols := resolveColumns(headers)
	if cols[fName] == "" {
		return res, fmt.Errorf("%s: %w", filename, ErrNoNameColumn)
	}
	for f, h := range cols {
		if h != "" {
			res.Columns[firstAlt(fieldHeaders[f])] = h
		}
	}

	for _, rec := range rows {
		if looksLikeHeaderRow(rec, cols) {
			continue
		}
		l, ok := toListing(rec, headers, cols, opts)
		if !ok {
			res.Skipped++
			continue
		}
		res.Listings = append(res.Listings, l)
	}
	return res, nil
}

func toListing(rec map[string]string, headers []string, cols [numFields]string, opts ImportOptions) (model.Listing, bool) {
	get := func(f field) string {
		if cols[f] == "" {
			return ""
		}
		return strings.TrimSpace(rec[cols[f]])
	}
	l := model.Listing{
		ID:              get(fID),
		RetailerCode:    strings.ToUpper(get(fRetailer)),
		Name:            get(fName),
		Brand:           get(fBrand),
		URL:             get(fURL),
		UnifiedCategory: get(fCategory),
		CurrentPrice:    utils.ParsePrice(get(fPrice)),
		OriginalPrice:   utils.ParsePrice(get(fOriginalPrice)),
		RetailerSku:     get(fSku),
		DiscoveredAt:    parseTime(get(fDiscovered)),
	}
	if l.RetailerCode == "" {
		l.RetailerCode = strings.ToUpper(strings.TrimSpace(opts.Retailer))
	}
	if l.UnifiedCategory == "" {
		l.UnifiedCategory = opts.Category
	}
	if l.Name == "" || l.RetailerCode == "" {
		return l, false
	}
	for _, h := range headers {
		if k, ok := strings.CutPrefix(strings.ToLower(h), SpecPrefix); ok {
			if v := strings.TrimSpace(rec[h]); v != "" && strings.TrimSpace(k) != "" {
				if l.Specs == nil {
					l.Specs = make(map[string]string)
				}
				l.Specs[strings.TrimSpace(k)] = v
			}
		}
	}
	if l.ID == "" {
		key := l.URL
		if key == "" {
			key = l.RetailerSku + "\x00" + l.Name
		}
		l.ID = uuid.NewSHA1(importNamespace, []byte(l.RetailerCode+"\x00"+key)).String()
	}
	return l, true
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "02/01/2006"}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// resolveColumns maps every field to at most one header; a header claimed by
// an earlier field is not offered to later ones, so the more specific fields
// come first in the field order.
func resolveColumns(headers []string) [numFields]string {
	var cols [numFields]string
	claimed := make(map[string]bool)
	for f := field(0); f < numFields; f++ {
		cols[f] = resolveKey(headers, fieldHeaders[f], claimed)
		if cols[f] != "" {
			claimed[cols[f]] = true
		}
	}
	return cols
}

var rxHeaderNoise = regexp.MustCompile(`[^\p{L}\p{M}\p{N}]+`)

// normHeaderKey lower-cases a header and folds separators to single spaces.
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = rxHeaderNoise.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// resolveKey finds the header for want ("a|b|c" alternatives): exact, then
// normalized, then the header containing the longest alternative as a whole
// word sequence. Headers are scanned in sorted order so ties are stable.
func resolveKey(headers []string, want string, claimed map[string]bool) string {
	alts := strings.Split(want, "|")
	for _, a := range alts {
		for _, h := range headers {
			if !claimed[h] && h == a {
				return h
			}
		}
	}
	norm := make([]string, len(alts))
	for i, a := range alts {
		norm[i] = normHeaderKey(a)
	}
	for _, n := range norm {
		for _, h := range headers {
			if !claimed[h] && normHeaderKey(h) == n {
				return h
			}
		}
	}

	bestKey, bestScore := "", 0
	for _, h := range headers {
		if claimed[h] || strings.HasPrefix(strings.ToLower(h), SpecPrefix) {
			continue
		}
		nh := " " + normHeaderKey(h) + " "
		for _, n := range norm {
			if n != "" && strings.Contains(nh, " "+n+" ") && len(n) > bestScore {
				bestKey, bestScore = h, len(n)
			}
		}
	}
	return bestKey
}

// looksLikeHeaderRow skips header lines repeated inside an export.
func looksLikeHeaderRow(rec map[string]string, cols [numFields]string) bool {
	name := cols[fName]
	return normHeaderKey(rec[name]) == normHeaderKey(name)
}

func firstAlt(s string) string {
	a, _, _ := strings.Cut(s, "|")
	return a
}
