package utils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var rxKeepNums = regexp.MustCompile(`[^\d.]`)

var priceNoise = strings.NewReplacer(
	"\u00A0", "", "\u202F", "", " ", "", "\t", "",
	",", "", // thousands separator
	"฿", "", "บาท", "", "THB", "", "thb", "", "Baht", "", "baht", "",
)

// ParsePrice parses retailer price strings such as "฿15,990.00",
// "15,990 บาท", "THB 1,290" or "๑๒,๙๙๐". Anything without a non-negative
// amount (empty, "-", "ติดต่อร้าน") is not valid.
func ParsePrice(s string) decimal.NullDecimal {
	s = strings.TrimSpace(strings.Map(thaiDigit, s))
	if s == "" || strings.HasPrefix(s, "-") {
		return decimal.NullDecimal{}
	}
	s = priceNoise.Replace(s)
	// a range like "990-1290" keeps its lower bound
	if i := strings.IndexAny(s, "-–"); i > 0 {
		s = s[:i]
	}
	s = rxKeepNums.ReplaceAllString(s, "")
	if s == "" || s == "." || strings.Count(s, ".") > 1 {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func thaiDigit(r rune) rune {
	if r >= '๐' && r <= '๙' {
		return '0' + (r - '๐')
	}
	return r
}
