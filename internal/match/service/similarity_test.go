package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.0, ratio("", "tv"))
	assert.Equal(t, 0.0, ratio("tv", ""))
	assert.Equal(t, 1.0, ratio("ทีวี", "ทีวี"))
	assert.InDelta(t, 1-3.0/7, ratio("kitten", "sitting"), 1e-9)
	// rune aware: one Thai character differs out of four
	assert.InDelta(t, 0.75, ratio("ทีวี", "ทีวา"), 1e-9)
}

func TestPartialRatio(t *testing.T) {
	assert.Equal(t, 1.0, partialRatio("smart tv", "samsung smart tv 55"))
	assert.Equal(t, 1.0, partialRatio("samsung smart tv 55", "smart tv"))
	assert.Equal(t, ratio("abcd", "abce"), partialRatio("abcd", "abce"))
	assert.Equal(t, 0.0, partialRatio("", "abc"))
}

func TestCodeRatio(t *testing.T) {
	assert.Equal(t, 1.0, codeRatio("UA55AU7700", "UA55AU7700"))
	assert.InDelta(t, 0.9, codeRatio("UA55AU7700", "UA55AU7070"), 1e-6)
	assert.Equal(t, 0.0, codeRatio("", "UA55AU7700"))
}

func TestTokenSort(t *testing.T) {
	assert.Equal(t, "55 samsung tv", tokenSort([]string{"tv", "samsung", "55"}))
	assert.Equal(t, "", tokenSort(nil))
}
