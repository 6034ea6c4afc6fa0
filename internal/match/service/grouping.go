package service

import (
	"sort"

	"github.com/rs/zerolog"

	"listing-match/internal/match/model"
)

// Edge is a qualifying (high/medium) pair inside one block arena.
type Edge struct {
	A, B  int // arena indices, A < B
	Score model.SimilarityBreakdown
}

// unionFind over per-run arena indices.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// components returns member lists ordered by their smallest index; members
// are ascending. Singletons are included.
func (uf *unionFind) components() [][]int {
	byRoot := make(map[int][]int)
	var roots []int
	for i := range uf.parent {
		r := uf.find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}
	out := make([][]int, 0, len(roots))
	for _, r := range roots {
		out = append(out, byRoot[r])
	}
	return out
}

// groupResult is what the grouper hands to the synthesizer.
type groupResult struct {
	Groups    [][]int  // size >= 2, one listing per retailer
	Edges     [][]Edge // surviving internal edges per group
	Conflicts int
}

// groupEdges builds connected components over the edges and enforces one
// listing per retailer per group. In a conflicting component, the listing of
// the duplicated retailer that owns the best edge keeps its edges; the others
// lose all of theirs. Components are recomputed until the invariant holds.
// Arena indices follow listing id order, so index ties are id ties.
func groupEdges(ids, retailers []string, edges []Edge, log zerolog.Logger) groupResult {
	n := len(ids)
	active := append([]Edge(nil), edges...)
	res := groupResult{}

	var comps [][]int
	for {
		uf := newUnionFind(n)
		for _, e := range active {
			uf.union(e.A, e.B)
		}
		comps = uf.components()

		best := bestEdgeScores(n, active)
		dropped := make(map[int]bool)
		for _, c := range comps {
			if len(c) < 2 {
				continue
			}
			byRetailer := make(map[string][]int)
			var order []string
			for _, i := range c {
				r := retailers[i]
				if _, ok := byRetailer[r]; !ok {
					order = append(order, r)
				}
				byRetailer[r] = append(byRetailer[r], i)
			}
			sort.Strings(order)
			for _, r := range order {
				members := byRetailer[r]
				if len(members) < 2 {
					continue
				}
				keep := members[0]
				for _, i := range members[1:] {
					if best[i] > best[keep] {
						keep = i
					}
				}
				var lost []string
				for _, i := range members {
					if i != keep {
						dropped[i] = true
						lost = append(lost, ids[i])
					}
				}
				res.Conflicts++
				log.Info().
					Str("event", "retailer_conflict").
					Str("retailer", r).
					Str("kept", ids[keep]).
					Strs("detached", lost).
					Int("component_size", len(c)).
					Msg("same-retailer listings in one component, resolved")
			}
		}
		if len(dropped) == 0 {
			break
		}
		// A detached listing drops every edge, not only the conflicting ones:
		// its other edges could still pull it back into the component it lost.
		kept := active[:0]
		for _, e := range active {
			if !dropped[e.A] && !dropped[e.B] {
				kept = append(kept, e)
			}
		}
		active = kept
	}

	pos := make(map[int]int)
	for _, c := range comps {
		if len(c) < 2 {
			continue
		}
		for _, i := range c {
			pos[i] = len(res.Groups)
		}
		res.Groups = append(res.Groups, c)
	}
	res.Edges = make([][]Edge, len(res.Groups))
	for _, e := range active {
		g := pos[e.A]
		res.Edges[g] = append(res.Edges[g], e)
	}
	return res
}

func bestEdgeScores(n int, edges []Edge) []float64 {
	best := make([]float64, n)
	for _, e := range edges {
		if s := e.Score.Overall; s > best[e.A] {
			best[e.A] = s
		}
		if s := e.Score.Overall; s > best[e.B] {
			best[e.B] = s
		}
	}
	return best
}
