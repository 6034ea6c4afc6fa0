package service

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/hbollon/go-edlib"
)

// ratio is the normalized Levenshtein similarity in [0..1], rune aware.
// An empty side means the signal is absent, so it scores 0.
func ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	m := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(m)
}

// partialRatio compares the shorter string with equally long windows of the
// longer one, starting at each token boundary. Tolerates truncated titles.
func partialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == len(rb) {
		return ratio(a, b)
	}
	short, long := ra, rb
	if len(short) > len(long) {
		short, long = long, short
	}
	s := string(short)
	n := len(short)

	best := 0.0
	try := func(start int) {
		if start+n > len(long) {
			start = len(long) - n
		}
		if r := ratio(s, string(long[start:start+n])); r > best {
			best = r
		}
	}
	try(0)
	for i := 1; i < len(long) && best < 1; i++ {
		if long[i-1] == ' ' {
			try(i)
		}
	}
	try(len(long) - n)
	return best
}

// codeRatio tolerates a transposed or mistyped character in model codes.
func codeRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	s, err := edlib.StringsSimilarity(a, b, edlib.OSADamerauLevenshtein)
	if err != nil {
		return 0
	}
	return float64(s)
}

// tokenSort orders tokens alphabetically so word order does not matter.
func tokenSort(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	t := append([]string(nil), tokens...)
	sort.Strings(t)
	return strings.Join(t, " ")
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
