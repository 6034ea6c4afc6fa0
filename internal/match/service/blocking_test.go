package service

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-match/internal/match/model"
)

func TestBlock(t *testing.T) {
	ls := []model.Listing{
		mkListing("c", "HP", "tv", "a", "", ""),
		mkListing("a", "TWD", " tv ", "b", "", ""),
		mkListing("x", "PW", "", "c", "", ""),
		mkListing("b", "HP", "fridge", "d", "", ""),
		mkListing("w", "BN", "   ", "e", "", ""),
	}
	b := Block(ls)

	assert.Equal(t, []string{"fridge", "tv"}, b.Keys)
	assert.Equal(t, []string{"w", "x"}, b.Unmatchable)
	require.Len(t, b.ByKey["tv"], 2)
	assert.Equal(t, "a", b.ByKey["tv"][0].ID)
	assert.Equal(t, "c", b.ByKey["tv"][1].ID)
	assert.True(t, b.HasRetailer("tv", "TWD"))
	assert.False(t, b.HasRetailer("fridge", "TWD"))
	assert.False(t, b.HasRetailer("missing", "HP"))
}

func TestCandidatePairs(t *testing.T) {
	block := []model.Listing{
		mkListing("1", "HP", "tv", "a", "", ""),
		mkListing("2", "HP", "tv", "b", "", ""),
		mkListing("3", "TWD", "tv", "c", "", ""),
		mkListing("4", "PW", "tv", "d", "", ""),
	}
	pairs := CandidatePairs(block)
	assert.Equal(t, []model.CandidatePair{{A: 0, B: 2}, {A: 0, B: 3}, {A: 1, B: 2}, {A: 1, B: 3}, {A: 2, B: 3}}, pairs)
	for _, p := range pairs {
		assert.NotEqual(t, block[p.A].RetailerCode, block[p.B].RetailerCode)
	}

	assert.Equal(t, []model.CandidatePair{{A: 0, B: 1}}, sameRetailerPairs(block))
	assert.Nil(t, CandidatePairs(block[:1]))
	assert.Nil(t, CandidatePairs(nil))
}

func edge(a, b int, overall float64) Edge {
	return Edge{A: a, B: b, Score: model.SimilarityBreakdown{Overall: overall, Tier: model.TierHigh}}
}

func TestGroupEdges(t *testing.T) {
	t.Run("plain components", func(t *testing.T) {
		ids := []string{"a", "b", "c", "d", "e"}
		retailers := []string{"HP", "TWD", "PW", "HP", "TWD"}
		res := groupEdges(ids, retailers, []Edge{edge(0, 1, .9), edge(1, 2, .8), edge(3, 4, .86)}, zerolog.Nop())

		assert.Equal(t, [][]int{{0, 1, 2}, {3, 4}}, res.Groups)
		assert.Zero(t, res.Conflicts)
		require.Len(t, res.Edges, 2)
		assert.Len(t, res.Edges[0], 2)
		assert.Len(t, res.Edges[1], 1)
	})

	t.Run("retailer conflict keeps best edge owner", func(t *testing.T) {
		ids := []string{"a", "b", "c"}
		retailers := []string{"HP", "TWD", "TWD"}
		res := groupEdges(ids, retailers, []Edge{edge(0, 1, .9), edge(0, 2, .8)}, zerolog.Nop())

		assert.Equal(t, [][]int{{0, 1}}, res.Groups)
		assert.Equal(t, 1, res.Conflicts)
		assert.Equal(t, [][]Edge{{edge(0, 1, .9)}}, res.Edges)
	})

	t.Run("conflict through a bridge", func(t *testing.T) {
		// d reaches b's group only via c; dropping d leaves a-b-c intact
		ids := []string{"a", "b", "c", "d"}
		retailers := []string{"HP", "TWD", "PW", "TWD"}
		res := groupEdges(ids, retailers, []Edge{edge(0, 1, .95), edge(1, 2, .8), edge(2, 3, .9)}, zerolog.Nop())

		assert.Equal(t, [][]int{{0, 1, 2}}, res.Groups)
		assert.Equal(t, 1, res.Conflicts)
	})

	t.Run("tie goes to lower id", func(t *testing.T) {
		ids := []string{"a", "b", "c"}
		retailers := []string{"HP", "TWD", "TWD"}
		res := groupEdges(ids, retailers, []Edge{edge(0, 1, .9), edge(0, 2, .9)}, zerolog.Nop())

		assert.Equal(t, [][]int{{0, 1}}, res.Groups)
	})

	t.Run("no edges", func(t *testing.T) {
		res := groupEdges([]string{"a", "b"}, []string{"HP", "TWD"}, nil, zerolog.Nop())
		assert.Empty(t, res.Groups)
	})
}

func TestGroupsHoldOneListingPerRetailer(t *testing.T) {
	// dense graph over three retailers with repeats
	ids := []string{"a", "b", "c", "d", "e", "f", "g"}
	retailers := []string{"HP", "HP", "TWD", "TWD", "PW", "PW", "BN"}
	var edges []Edge
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if retailers[i] != retailers[j] {
				edges = append(edges, edge(i, j, 0.7+float64(i+j)/100))
			}
		}
	}
	res := groupEdges(ids, retailers, edges, zerolog.Nop())
	require.NotEmpty(t, res.Groups)
	for _, g := range res.Groups {
		seen := make(map[string]bool)
		for _, i := range g {
			assert.False(t, seen[retailers[i]], "retailer %s twice in %v", retailers[i], g)
			seen[retailers[i]] = true
		}
	}
}
