package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"listing-match/internal/match/model"
	"listing-match/internal/match/textnorm"
)

type Options struct {
	Workers        int           // parallel blocks, defaults to GOMAXPROCS
	BlockTimeout   time.Duration // per block, 0 = none
	SkipDuplicates bool          // skip the same-retailer duplicate pass
}

// Orchestrator runs the pipeline over category blocks (full re-match) or a
// single new listing (incremental match).
type Orchestrator struct {
	log       zerolog.Logger
	profile   model.Profile
	extractor *Extractor
	scorer    *Scorer
	synth     *Synthesizer
	source    ListingSource
	store     MatchStore
	opts      Options
}

// New rejects an invalid profile; callers treat that as fatal at startup.
func New(logger zerolog.Logger, profile model.Profile, norm *textnorm.Normalizer, source ListingSource, store MatchStore, opts Options) (*Orchestrator, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if norm == nil {
		norm = textnorm.New(textnorm.DefaultTables())
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Orchestrator{
		log:       logger.With().Str("component", "matcher").Str("profile", profile.Version).Logger(),
		profile:   profile,
		extractor: NewExtractor(norm),
		scorer:    NewScorer(profile),
		synth:     NewSynthesizer(profile),
		source:    source,
		store:     store,
		opts:      opts,
	}, nil
}

func (o *Orchestrator) Scorer() *Scorer { return o.scorer }

// arena gives the listings of one block stable integer indices for a run.
type arena struct {
	listings []model.Listing
	signals  []Signals
}

func (o *Orchestrator) newArena(ls []model.Listing) *arena {
	a := &arena{listings: append([]model.Listing(nil), ls...)}
	sortByID(a.listings)
	a.signals = make([]Signals, len(a.listings))
	for i, l := range a.listings {
		a.signals[i] = o.extractor.Extract(l)
	}
	return a
}

func (a *arena) ids() []string {
	out := make([]string, len(a.listings))
	for i, l := range a.listings {
		out[i] = l.ID
	}
	return out
}

func (a *arena) retailers() []string {
	out := make([]string, len(a.listings))
	for i, l := range a.listings {
		out[i] = l.RetailerCode
	}
	return out
}

// BlockResult is the in-memory outcome of one block, before write-back.
type BlockResult struct {
	Category            string
	Listings            int
	Pairs               int
	Matches             []model.ProductMatch
	Duplicates          []model.DuplicateGroup
	DuplicateCandidates int
	Unmatched           int
	LowPairs            int
	NonePairs           int
	Conflicts           int
	Err                 error
}

// MatchBlock runs blocking output through scoring, grouping, synthesis and
// the duplicate pass. Pure: no I/O and no shared state.
func (o *Orchestrator) MatchBlock(category string, listings []model.Listing) BlockResult {
	a := o.newArena(listings)
	res := BlockResult{Category: category, Listings: len(a.listings)}

	pairs := CandidatePairs(a.listings)
	res.Pairs = len(pairs)
	var edges []Edge
	for _, p := range pairs {
		b := o.scorer.Score(&a.signals[p.A], &a.signals[p.B])
		switch b.Tier {
		case model.TierHigh, model.TierMedium:
			edges = append(edges, Edge{A: p.A, B: p.B, Score: b})
		case model.TierLow:
			res.LowPairs++
		default:
			res.NonePairs++
		}
	}

	gr := groupEdges(a.ids(), a.retailers(), edges, o.log.With().Str("category", category).Logger())
	res.Conflicts = gr.Conflicts
	grouped := 0
	for i, g := range gr.Groups {
		res.Matches = append(res.Matches, o.synth.Build(category, a, g, gr.Edges[i]))
		grouped += len(g)
	}
	res.Unmatched = len(a.listings) - grouped

	if !o.opts.SkipDuplicates {
		res.Duplicates, res.DuplicateCandidates = findDuplicates(category, a, o.profile.Thresholds.Duplicate)
	}
	return res
}

// FullRematch recomputes every block in scope and swaps each block's stored
// records atomically. A failed block is reported and skipped; only a failure
// to read the corpus is returned as an error.
func (o *Orchestrator) FullRematch(ctx context.Context, scope model.Scope) (model.Summary, error) {
	start := time.Now()
	sum := model.Summary{
		RunID:          uuid.NewString(),
		Scope:          scope,
		ProfileVersion: o.profile.Version,
		StartedAt:      start.UTC(),
		Categories:     make(map[string]model.CategoryStats),
		Unmatchable:    []string{},
		FailedBlocks:   []model.BlockFailure{},
	}
	log := o.log.With().Str("run_id", sum.RunID).Str("retailer", scope.Retailer).Logger()

	listings, err := o.source.Listings(ctx, model.ListingFilter{})
	if err != nil {
		return sum, fmt.Errorf("load listings: %w", err)
	}
	blocks := Block(listings)

	// Categories emptied by the extraction layer still hold the last run's
	// records. Only an all-retailer run may drop them.
	var stale []string
	if scope.Retailer == "" {
		stored, err := o.store.Categories(ctx)
		if err != nil {
			return sum, fmt.Errorf("load stored categories: %w", err)
		}
		for _, k := range stored {
			if _, ok := blocks.ByKey[k]; !ok {
				stale = append(stale, k)
			}
		}
	}

	var keys []string
	for _, k := range blocks.Keys {
		if scope.Retailer == "" || blocks.HasRetailer(k, scope.Retailer) {
			keys = append(keys, k)
		}
	}
	log.Info().Int("listings", len(listings)).Int("blocks", len(keys)).Msg("full re-match started")

	results := make([]BlockResult, len(keys))
	var g errgroup.Group
	g.SetLimit(o.opts.Workers)
	for i, k := range keys {
		g.Go(func() error {
			results[i] = o.runBlock(ctx, k, blocks.ByKey[k], log)
			return nil
		})
	}
	_ = g.Wait()

	sum.ClearedCategories = []string{}
	for _, k := range stale {
		if err := o.clearBlock(ctx, k, log); err != nil {
			sum.FailedBlocks = append(sum.FailedBlocks, model.BlockFailure{Category: k, Error: err.Error()})
			continue
		}
		sum.ClearedCategories = append(sum.ClearedCategories, k)
	}

	byID := make(map[string]model.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}
	for _, id := range blocks.Unmatchable {
		if scope.Retailer == "" || byID[id].RetailerCode == scope.Retailer {
			sum.Unmatchable = append(sum.Unmatchable, id)
		}
	}
	sum.TotalListings = len(sum.Unmatchable)

	for _, r := range results {
		sum.TotalListings += r.Listings
		if r.Err != nil {
			sum.FailedBlocks = append(sum.FailedBlocks, model.BlockFailure{Category: r.Category, Error: r.Err.Error()})
			continue
		}
		sum.GroupsCreated += len(r.Matches)
		sum.Unmatched += r.Unmatched
		sum.DuplicateCandidates += r.DuplicateCandidates
		sum.LowPairs += r.LowPairs
		sum.NonePairs += r.NonePairs
		sum.ConflictsResolved += r.Conflicts
		sum.Categories[r.Category] = categoryStats(r)
	}
	sum.Elapsed = time.Since(start)

	log.Info().
		Int("listings", sum.TotalListings).
		Int("groups", sum.GroupsCreated).
		Int("unmatched", sum.Unmatched).
		Int("unmatchable", len(sum.Unmatchable)).
		Int("duplicates", sum.DuplicateCandidates).
		Int("cleared", len(sum.ClearedCategories)).
		Int("failed_blocks", len(sum.FailedBlocks)).
		Dur("elapsed", sum.Elapsed).
		Msg("full re-match done")
	return sum, nil
}

// runBlock owns the block's timeout and write-back. Partial state is never
// kept: on any error the recomputed groups are discarded.
func (o *Orchestrator) runBlock(ctx context.Context, category string, listings []model.Listing, log zerolog.Logger) BlockResult {
	if o.opts.BlockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.BlockTimeout)
		defer cancel()
	}
	blog := log.With().Str("category", category).Int("listings", len(listings)).Logger()
	if err := ctx.Err(); err != nil {
		return failedBlock(category, len(listings), err, blog)
	}

	start := time.Now()
	res := o.MatchBlock(category, listings)
	if err := ctx.Err(); err != nil {
		return failedBlock(category, len(listings), err, blog)
	}
	if err := o.store.ReplaceBlock(ctx, category, res.Matches, res.Duplicates); err != nil {
		return failedBlock(category, len(listings), fmt.Errorf("write back: %w", err), blog)
	}

	blog.Debug().
		Int("pairs", res.Pairs).
		Int("groups", len(res.Matches)).
		Int("unmatched", res.Unmatched).
		Int("conflicts", res.Conflicts).
		Dur("dur", time.Since(start)).
		Msg("block done")
	return res
}

// clearBlock drops every stored record of a category that has no listings
// left.
func (o *Orchestrator) clearBlock(ctx context.Context, category string, log zerolog.Logger) error {
	blog := log.With().Str("category", category).Logger()
	if err := ctx.Err(); err != nil {
		failedBlock(category, 0, err, blog)
		return err
	}
	if err := o.store.ReplaceBlock(ctx, category, nil, nil); err != nil {
		err = fmt.Errorf("clear stale block: %w", err)
		failedBlock(category, 0, err, blog)
		return err
	}
	blog.Info().Msg("stale block cleared, no listings left")
	return nil
}

func failedBlock(category string, n int, err error, log zerolog.Logger) BlockResult {
	lvl := zerolog.ErrorLevel
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		lvl = zerolog.WarnLevel
	}
	log.WithLevel(lvl).Err(err).Msg("block failed, will be retried on the next run")
	return BlockResult{Category: category, Listings: n, Err: err}
}

func categoryStats(r BlockResult) model.CategoryStats {
	cs := model.CategoryStats{Listings: r.Listings, Groups: len(r.Matches), Unmatched: r.Unmatched}
	n := 0
	total := 0.0
	for _, m := range r.Matches {
		if !m.PriceVariancePct.Valid {
			continue
		}
		v := m.PriceVariancePct.Decimal.InexactFloat64()
		total += v
		n++
		cs.MaxVariancePct = max(cs.MaxVariancePct, v)
	}
	if n > 0 {
		cs.MeanVariancePct = round(total/float64(n), 2)
	}
	return cs
}
