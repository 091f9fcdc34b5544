package application

import (
	"context"
	"fmt"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/google/uuid"
)

// BidsQueryUseCase serves the read side of the ledger. Reads do not take the listing lock,
// stores return consistent snapshots.
type BidsQueryUseCase struct {
	listingRepo domain.ListingRepository
	bidRepo     domain.BidRepository
}

func NewBidsQueryUseCase(listingRepo domain.ListingRepository, bidRepo domain.BidRepository) *BidsQueryUseCase {
	return &BidsQueryUseCase{listingRepo: listingRepo, bidRepo: bidRepo}
}

// HighestBid returns the current highest bid of a listing, nil when there is none
func (uc *BidsQueryUseCase) HighestBid(ctx context.Context, listingID uuid.UUID) (*domain.Bid, error) {
	if _, err := uc.listingRepo.GetByID(ctx, listingID); err != nil {
		return nil, fmt.Errorf("highest bid: %w", err)
	}
	bid, err := uc.bidRepo.GetHighestBid(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("highest bid: listing %s: %w", listingID, err)
	}
	return bid, nil
}

// ListBids returns the bid history of a listing, newest first
func (uc *BidsQueryUseCase) ListBids(ctx context.Context, listingID uuid.UUID) ([]*domain.Bid, error) {
	if _, err := uc.listingRepo.GetByID(ctx, listingID); err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	bids, err := uc.bidRepo.GetBidsByListingID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("list bids: listing %s: %w", listingID, err)
	}
	out := make([]*domain.Bid, len(bids))
	for i, b := range bids {
		out[len(bids)-1-i] = b
	}
	return out, nil
}
