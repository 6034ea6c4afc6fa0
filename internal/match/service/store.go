package service

import (
	"context"

	"listing-match/internal/match/model"
)

// ListingSource reads the corpus written by the extraction layer.
type ListingSource interface {
	Listings(ctx context.Context, f model.ListingFilter) ([]model.Listing, error)
}

// MatchStore persists matcher output. ReplaceBlock and ReplaceMatches must be
// atomic: either the whole swap lands or nothing changes.
type MatchStore interface {
	ReplaceBlock(ctx context.Context, category string, matches []model.ProductMatch, dups []model.DuplicateGroup) error
	MatchesByCategory(ctx context.Context, category string) ([]model.ProductMatch, error)
	ReplaceMatches(ctx context.Context, removeIDs []string, add []model.ProductMatch) error
	// Categories lists every category holding stored matches or duplicate groups.
	Categories(ctx context.Context) ([]string, error)
	// MatchByListing finds the stored group holding listingID in any category.
	MatchByListing(ctx context.Context, listingID string) (model.ProductMatch, bool, error)
}
