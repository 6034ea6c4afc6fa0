package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := New(DefaultTables())

	t.Run("empty input is absent", func(t *testing.T) {
		assert.Equal(t, "", n.Normalize("", LocaleAuto))
		assert.Equal(t, "", n.Normalize("   \t ", LocaleAuto))
		assert.Equal(t, "", n.Brand(""))
	})

	t.Run("punctuation and case", func(t *testing.T) {
		assert.Equal(t, "samsung smart-tv 55 ua55au7700", n.Normalize("Samsung Smart-TV, 55\" (UA55AU7700)!", LocaleEnglish))
		assert.Equal(t, "tv", n.Normalize("- TV -", LocaleEnglish))
	})

	t.Run("mixed Thai and English", func(t *testing.T) {
		got := n.Normalize("ทีวี Samsung 55\" UA55AU7700 Smart TV", LocaleAuto)
		assert.Equal(t, "ทีวี samsung 55 ua55au7700 smart tv", got)
	})

	t.Run("script boundaries are split", func(t *testing.T) {
		assert.Equal(t, "ทีวี 55 นิ้ว", n.Normalize("ทีวี55นิ้ว", LocaleThai))
	})

	t.Run("thai digits and fullwidth forms", func(t *testing.T) {
		assert.Equal(t, "ทีวี 55", n.Normalize("ทีวี ๕๕", LocaleAuto))
		assert.Equal(t, "ua55", n.Normalize("ＵＡ５５", LocaleAuto))
	})

	t.Run("stop words in both languages", func(t *testing.T) {
		assert.Equal(t, "แก้วน้ำ 6", n.Normalize("แก้วน้ำ ชุด 6 ชิ้น", LocaleAuto))
		assert.Equal(t, "glass 6", n.Normalize("Glass Set 6 pcs", LocaleAuto))
	})

	t.Run("thai brand inside unsegmented run", func(t *testing.T) {
		assert.Equal(t, "ทีวี samsung 55", n.Normalize("ทีวีซัมซุง 55", LocaleAuto))
	})
}

func TestBrand(t *testing.T) {
	n := New(DefaultTables())

	cases := map[string]string{
		"Samsung":        "samsung",
		"SAMSUNG":        "samsung",
		"ซัมซุง":         "samsung",
		"แอล จี":         "lg",
		"LG Electronics": "lg",
		"โซนี่":          "sony",
		"Unknown Brand":  "unknown brand",
	}
	for in, want := range cases {
		assert.Equal(t, want, n.Brand(in), in)
	}
}

func TestTablesMerge(t *testing.T) {
	base := Tables{StopWords: []string{"set"}, BrandAliases: map[string][]string{"sony": {"โซนี่"}}}
	extra := Tables{StopWords: []string{"kit"}, BrandAliases: map[string][]string{"sony": {"โซนี"}, "acme": {"แอคมี"}}}

	merged := base.Merge(extra)
	assert.ElementsMatch(t, []string{"set", "kit"}, merged.StopWords)
	assert.ElementsMatch(t, []string{"โซนี่", "โซนี"}, merged.BrandAliases["sony"])
	assert.Len(t, base.BrandAliases["sony"], 1, "merge must not mutate the receiver")

	n := New(merged)
	assert.Equal(t, "acme", n.Brand("แอคมี"))
	assert.Equal(t, "widget", n.Normalize("widget kit", LocaleEnglish))
}
