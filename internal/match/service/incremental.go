package service

import (
	"context"
	"fmt"
	"sort"

	"listing-match/internal/match/model"
)

// brands at least this close count as related for the incremental block
const relatedBrandRatio = 0.8

type scoredCandidate struct {
	listing model.Listing
	score   model.SimilarityBreakdown
}

// MatchListing matches one newly scraped listing against its category
// without touching other blocks. The listing joins the best qualifying
// existing group that has no listing of its retailer yet, forms a new group
// with an ungrouped candidate, or stays unmatched. Touched groups are
// recomputed and replaced as a whole.
func (o *Orchestrator) MatchListing(ctx context.Context, l model.Listing) (model.IncrementalResult, error) {
	res := model.IncrementalResult{ListingID: l.ID, Outcome: model.OutcomeUnmatched}
	category := blockKey(l)
	if o.opts.BlockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.BlockTimeout)
		defer cancel()
	}
	log := o.log.With().Str("listing_id", l.ID).Str("category", category).Logger()

	prev, grouped, err := o.store.MatchByListing(ctx, l.ID)
	if err != nil {
		return res, fmt.Errorf("look up group of %s: %w", l.ID, err)
	}
	if grouped && prev.UnifiedCategory != category {
		if err := o.detach(ctx, prev, l.ID); err != nil {
			return res, err
		}
		res.DetachedFrom = prev.ID
	}
	if category == "" {
		res.Outcome = model.OutcomeNoCategory
		return res, nil
	}

	existing, err := o.source.Listings(ctx, model.ListingFilter{Category: category})
	if err != nil {
		return res, fmt.Errorf("load category %q: %w", category, err)
	}
	matches, err := o.store.MatchesByCategory(ctx, category)
	if err != nil {
		return res, fmt.Errorf("load matches %q: %w", category, err)
	}

	byID := make(map[string]model.Listing, len(existing))
	for _, e := range existing {
		if e.ID != l.ID {
			byID[e.ID] = e
		}
	}
	groupOf := make(map[string]int)
	for i, m := range matches {
		for _, id := range m.ListingIDs() {
			groupOf[id] = i
		}
	}

	// A re-scraped listing that already sits in a group refreshes that group,
	// even if it drops out of it.
	if gi, ok := groupOf[l.ID]; ok {
		rebuilt, own := o.recompute(matches[gi], byID, l)
		if err := o.store.ReplaceMatches(ctx, []string{matches[gi].ID}, rebuilt); err != nil {
			return res, fmt.Errorf("replace group %s: %w", matches[gi].ID, err)
		}
		res.ReplacedID = matches[gi].ID
		if own != nil {
			res.Outcome, res.Match = model.OutcomeMerged, own
		}
		return res, nil
	}

	cands := o.narrowBlock(l, byID)
	res.Candidates = len(cands)
	if len(cands) == 0 {
		log.Debug().Msg("no candidates in narrowed block")
		return res, nil
	}
	best := cands[0]
	res.BestMatchID = best.listing.ID
	res.Best = &best.score

	for _, c := range cands {
		if !c.score.Tier.Qualifies() {
			break
		}
		gi, grouped := groupOf[c.listing.ID]
		if !grouped {
			res.BestMatchID, res.Best = c.listing.ID, &c.score
			return o.createGroup(ctx, res, category, c.listing, l)
		}
		if o.groupHasRetailer(matches[gi], byID, l.RetailerCode) {
			continue
		}
		res.BestMatchID, res.Best = c.listing.ID, &c.score
		out, err := o.rebuild(ctx, res, matches[gi], byID, l)
		if err != nil || out.Outcome == model.OutcomeMerged {
			return out, err
		}
	}
	log.Debug().Str("best", best.listing.ID).Float64("overall", best.score.Overall).Msg("listing left unmatched")
	return res, nil
}

// narrowBlock keeps other-retailer listings with the same or a related brand
// (or no brand on either side), scored and ordered best first.
func (o *Orchestrator) narrowBlock(l model.Listing, byID map[string]model.Listing) []scoredCandidate {
	sig := o.extractor.Extract(l)
	var out []scoredCandidate
	for _, e := range byID {
		if e.RetailerCode == l.RetailerCode {
			continue
		}
		es := o.extractor.Extract(e)
		if sig.Brand != "" && es.Brand != "" && sig.Brand != es.Brand && ratio(sig.Brand, es.Brand) < relatedBrandRatio {
			continue
		}
		out = append(out, scoredCandidate{listing: e, score: o.scorer.Score(&sig, &es)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score.Overall != out[j].score.Overall {
			return out[i].score.Overall > out[j].score.Overall
		}
		return out[i].listing.ID < out[j].listing.ID
	})
	return out
}

func (o *Orchestrator) groupHasRetailer(m model.ProductMatch, byID map[string]model.Listing, retailer string) bool {
	for _, id := range m.ListingIDs() {
		if e, ok := byID[id]; ok && e.RetailerCode == retailer {
			return true
		}
	}
	return false
}

func (o *Orchestrator) createGroup(ctx context.Context, res model.IncrementalResult, category string, cand, l model.Listing) (model.IncrementalResult, error) {
	br := o.MatchBlock(category, []model.Listing{cand, l})
	if len(br.Matches) != 1 {
		return res, nil
	}
	if err := o.store.ReplaceMatches(ctx, nil, br.Matches); err != nil {
		return res, fmt.Errorf("write new group: %w", err)
	}
	res.Outcome = model.OutcomeNewGroup
	res.Match = &br.Matches[0]
	return res, nil
}

// rebuild recomputes a stored group together with l and swaps it out. If l
// does not end up grouped the store is left untouched.
func (o *Orchestrator) rebuild(ctx context.Context, res model.IncrementalResult, old model.ProductMatch, byID map[string]model.Listing, l model.Listing) (model.IncrementalResult, error) {
	rebuilt, own := o.recompute(old, byID, l)
	if own == nil {
		return res, nil
	}
	if err := o.store.ReplaceMatches(ctx, []string{old.ID}, rebuilt); err != nil {
		return res, fmt.Errorf("replace group %s: %w", old.ID, err)
	}
	res.Outcome = model.OutcomeMerged
	res.Match = own
	res.ReplacedID = old.ID
	o.log.Info().
		Str("listing_id", l.ID).
		Str("replaced", old.ID).
		Str("match_id", own.ID).
		Strs("members", own.ListingIDs()).
		Msg("group recomputed with new listing")
	return res, nil
}

// detach rebuilds a group of another category without the listing id, which
// the extraction layer moved out of that category.
func (o *Orchestrator) detach(ctx context.Context, old model.ProductMatch, id string) error {
	ls, err := o.source.Listings(ctx, model.ListingFilter{Category: old.UnifiedCategory})
	if err != nil {
		return fmt.Errorf("load category %q: %w", old.UnifiedCategory, err)
	}
	in := make(map[string]bool)
	for _, m := range old.ListingIDs() {
		in[m] = true
	}
	var members []model.Listing
	for _, e := range ls {
		if e.ID != id && in[e.ID] {
			members = append(members, e)
		}
	}
	br := o.MatchBlock(old.UnifiedCategory, members)
	if err := o.store.ReplaceMatches(ctx, []string{old.ID}, br.Matches); err != nil {
		return fmt.Errorf("replace group %s: %w", old.ID, err)
	}
	o.log.Info().
		Str("listing_id", id).
		Str("category", old.UnifiedCategory).
		Str("replaced", old.ID).
		Int("remaining_groups", len(br.Matches)).
		Msg("listing moved out of its category, old group rebuilt")
	return nil
}

// recompute scores the group's current members plus l from scratch. The
// group may come back split; own is the record holding l, if any.
func (o *Orchestrator) recompute(old model.ProductMatch, byID map[string]model.Listing, l model.Listing) ([]model.ProductMatch, *model.ProductMatch) {
	members := []model.Listing{l}
	for _, id := range old.ListingIDs() {
		if e, ok := byID[id]; ok {
			members = append(members, e)
		}
	}
	br := o.MatchBlock(old.UnifiedCategory, members)
	for i := range br.Matches {
		for _, id := range br.Matches[i].ListingIDs() {
			if id == l.ID {
				return br.Matches, &br.Matches[i]
			}
		}
	}
	return br.Matches, nil
}
