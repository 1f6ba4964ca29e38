package auction

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/foundrycloud/flow/internal/platform/foundry"
	"github.com/foundrycloud/flow/internal/taskconfig"
)

// Finder fetches auctions from the API and filters them.
type Finder struct {
	client foundry.Client
	log    logr.Logger
}

// NewFinder returns a Finder backed by the given API client.
func NewFinder(client foundry.Client, log logr.Logger) *Finder {
	return &Finder{client: client, log: log}
}

// Fetch returns every auction visible to the project.
func (f *Finder) Fetch(ctx context.Context, projectID string) ([]foundry.Auction, error) {
	auctions, err := f.client.GetAuctions(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch auctions: %w", err)
	}
	f.log.V(1).Info("fetched auctions", "project_id", projectID, "count", len(auctions))
	return auctions, nil
}

// FindMatching filters auctions by the resource specification, preserving
// the API's ordering.
func (f *Finder) FindMatching(auctions []foundry.Auction, criteria *taskconfig.ResourcesSpecification) []foundry.Auction {
	matcher := NewMatcher(criteria, f.log)
	var matching []foundry.Auction
	for _, a := range auctions {
		if matcher.Matches(a) {
			matching = append(matching, a)
		}
	}
	f.log.V(1).Info("filtered auctions", "matched", len(matching), "total", len(auctions))
	return matching
}
