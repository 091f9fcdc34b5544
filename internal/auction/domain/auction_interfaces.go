package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListingRepository is the storage contract of the ledger. Every mutating call is atomic.
type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	// GetListingSnapshot reads a listing and its bids as of one instant, never between the
	// price move and the bid insert of a concurrent commit.
	GetListingSnapshot(ctx context.Context, id uuid.UUID) (*ListingSnapshot, error)
	// GetActiveSnapshots is GetListingSnapshot for every open listing, newest first, read at one instant
	GetActiveSnapshots(ctx context.Context) ([]*ListingSnapshot, error)
	// CompareAndUpdatePrice sets current_price to bid.Amount and appends bid, only if the listing
	// is active and its current price still equals expected (nil meaning no bids yet).
	// Returns ErrPriceConflict when the price moved, ErrListingInactive when closed meanwhile.
	CompareAndUpdatePrice(ctx context.Context, id uuid.UUID, expected *decimal.Decimal, bid *Bid) error
	// CloseListing deactivates the listing and stores winner and closedAt under the same guard as above.
	// Returns ErrAlreadyClosed when it was closed already, ErrPriceConflict when a bid landed.
	CloseListing(ctx context.Context, id uuid.UUID, expected *decimal.Decimal, winnerID *uuid.UUID, closedAt time.Time) error
}

// ListingSnapshot is a listing together with its bids in insertion order
type ListingSnapshot struct {
	Listing *Listing
	Bids    []*Bid
}

type BidRepository interface {
	// GetHighestBid returns nil, nil when the listing has no bids
	GetHighestBid(ctx context.Context, listingID uuid.UUID) (*Bid, error)
	// GetBidsByListingID returns bids in insertion order
	GetBidsByListingID(ctx context.Context, listingID uuid.UUID) ([]*Bid, error)
}
