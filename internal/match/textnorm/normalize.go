// Package textnorm canonicalizes listing names and brands written in a mix of
// Thai and English so they can be compared token by token.
package textnorm

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

type Locale int

const (
	LocaleAuto Locale = iota // detect Thai script in the input
	LocaleThai
	LocaleEnglish
)

// Normalizer holds lookup tables only; it is safe for concurrent use.
type Normalizer struct {
	stop      map[string]struct{}
	alias     map[string]string // normalized spelling -> canonical brand
	thaiAlias []string          // Thai spellings, longest first, for unsegmented text
}

func New(t Tables) *Normalizer {
	n := &Normalizer{
		stop:  make(map[string]struct{}, len(t.StopWords)),
		alias: make(map[string]string),
	}
	for _, w := range t.StopWords {
		if w = n.clean(w, LocaleAuto); w != "" {
			n.stop[w] = struct{}{}
		}
	}
	for _, canon := range t.canonicals() {
		c := n.clean(canon, LocaleAuto)
		if c == "" {
			continue
		}
		n.alias[c] = c
		for _, v := range t.BrandAliases[canon] {
			v = n.clean(v, LocaleAuto)
			if v == "" {
				continue
			}
			n.alias[v] = c
			if hasThai(v) && !strings.Contains(v, " ") {
				n.thaiAlias = append(n.thaiAlias, v)
			}
		}
	}
	sort.Slice(n.thaiAlias, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(n.thaiAlias[i]), utf8.RuneCountInString(n.thaiAlias[j])
		if li != lj {
			return li > lj
		}
		return n.thaiAlias[i] < n.thaiAlias[j]
	})
	return n
}

// Everything except letters, marks (Thai vowels and tone marks), digits,
// whitespace and hyphens.
var punct = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s-]+`)

// Normalize is the main pipeline for free text. Empty input yields "".
func (n *Normalizer) Normalize(s string, loc Locale) string {
	out := n.clean(s, loc)
	if out == "" {
		return ""
	}
	tokens := strings.Fields(n.expandThaiAliases(out))
	kept := tokens[:0]
	for _, t := range tokens {
		if _, ok := n.stop[t]; ok {
			continue
		}
		if c, ok := n.alias[t]; ok {
			t = c
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}

// Tokens splits the normalized text.
func (n *Normalizer) Tokens(s string, loc Locale) []string {
	return strings.Fields(n.Normalize(s, loc))
}

// Brand canonicalizes a brand so that either language spelling yields the
// same value.
func (n *Normalizer) Brand(s string) string {
	c := n.clean(s, LocaleAuto)
	if c == "" {
		return ""
	}
	if canon, ok := n.alias[c]; ok {
		return canon
	}
	if canon, ok := n.alias[strings.ReplaceAll(c, " ", "")]; ok {
		return canon
	}
	return n.Normalize(s, LocaleAuto)
}

// clean runs every step except stop-word removal and aliasing.
func (n *Normalizer) clean(s string, loc Locale) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	// 1) width folding and compatibility forms (fullwidth digits, ligatures)
	out := norm.NFKC.String(s)

	// 2) Thai digits -> ASCII, then lower case
	out = strings.ToLower(strings.Map(thaiDigit, out))

	// 3) punctuation -> space, hyphens stay inside model codes
	out = punct.ReplaceAllString(out, " ")

	// 4) Thai text is unsegmented: at least split Thai runs from Latin/digit runs
	if loc == LocaleThai || (loc == LocaleAuto && hasThai(out)) {
		out = splitScripts(out)
	}

	// 5) collapse whitespace and drop dangling hyphens
	fields := strings.Fields(out)
	kept := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "-"); f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// expandThaiAliases cuts known Thai brand spellings out of longer Thai runs,
// e.g. "ทีวีซัมซุง" -> "ทีวี ซัมซุง". Longest spelling wins at each position.
func (n *Normalizer) expandThaiAliases(s string) string {
	if len(n.thaiAlias) == 0 || !hasThai(s) {
		return s
	}
	fields := strings.Fields(s)
	for i, f := range fields {
		if !hasThai(f) {
			continue
		}
		if _, ok := n.alias[f]; ok {
			continue
		}
		fields[i] = n.cutAliases(f)
	}
	return strings.Join(strings.Fields(strings.Join(fields, " ")), " ")
}

func (n *Normalizer) cutAliases(f string) string {
	var b strings.Builder
	for rest := f; rest != ""; {
		hit := ""
		for _, v := range n.thaiAlias {
			if !strings.HasPrefix(rest, v) {
				continue
			}
			// a trailing vowel or tone mark belongs to the spelling
			if next, _ := utf8.DecodeRuneInString(rest[len(v):]); unicode.Is(unicode.Mn, next) {
				continue
			}
			hit = v
			break
		}
		if hit != "" {
			b.WriteString(" " + hit + " ")
			rest = rest[len(hit):]
			continue
		}
		r, size := utf8.DecodeRuneInString(rest)
		b.WriteRune(r)
		rest = rest[size:]
	}
	return b.String()
}

func thaiDigit(r rune) rune {
	if r >= '๐' && r <= '๙' {
		return '0' + (r - '๐')
	}
	return r
}

func isThai(r rune) bool { return unicode.Is(unicode.Thai, r) }

func hasThai(s string) bool {
	for _, r := range s {
		if isThai(r) {
			return true
		}
	}
	return false
}

func splitScripts(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	prev := rune(0)
	for _, r := range s {
		if prev != 0 && !unicode.IsSpace(prev) && !unicode.IsSpace(r) && isThai(prev) != isThai(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
