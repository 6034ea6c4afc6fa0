package service

import (
	"sort"
	"strings"

	"listing-match/internal/match/model"
)

// Blocks partitions a corpus by unified category so only listings inside one
// block are ever compared.
type Blocks struct {
	Keys        []string                   // sorted
	ByKey       map[string][]model.Listing // members ordered by listing id
	Unmatchable []string                   // ids of listings without a category, sorted
}

func blockKey(l model.Listing) string { return strings.TrimSpace(l.UnifiedCategory) }

func Block(listings []model.Listing) Blocks {
	b := Blocks{ByKey: make(map[string][]model.Listing)}
	for _, l := range listings {
		k := blockKey(l)
		if k == "" {
			b.Unmatchable = append(b.Unmatchable, l.ID)
			continue
		}
		b.ByKey[k] = append(b.ByKey[k], l)
	}
	for k, members := range b.ByKey {
		sortByID(members)
		b.Keys = append(b.Keys, k)
	}
	sort.Strings(b.Keys)
	sort.Strings(b.Unmatchable)
	return b
}

// HasRetailer reports whether the block holds a listing of the retailer.
func (b Blocks) HasRetailer(key, retailer string) bool {
	for _, l := range b.ByKey[key] {
		if l.RetailerCode == retailer {
			return true
		}
	}
	return false
}

// CandidatePairs lists cross-retailer pairs of one block. A block with fewer
// than two listings yields nothing.
func CandidatePairs(block []model.Listing) []model.CandidatePair {
	if len(block) < 2 {
		return nil
	}
	var out []model.CandidatePair
	for i := 0; i < len(block); i++ {
		for j := i + 1; j < len(block); j++ {
			if block[i].RetailerCode == block[j].RetailerCode {
				continue
			}
			out = append(out, model.CandidatePair{A: i, B: j})
		}
	}
	return out
}

// sameRetailerPairs feeds the duplicate pass.
func sameRetailerPairs(block []model.Listing) []model.CandidatePair {
	var out []model.CandidatePair
	for i := 0; i < len(block); i++ {
		for j := i + 1; j < len(block); j++ {
			if block[i].RetailerCode == block[j].RetailerCode {
				out = append(out, model.CandidatePair{A: i, B: j})
			}
		}
	}
	return out
}

func sortByID(ls []model.Listing) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].ID < ls[j].ID })
}
