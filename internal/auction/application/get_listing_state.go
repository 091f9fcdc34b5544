package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/google/uuid"
)

// ListingStateDTO is the output DTO for exposing listing state to the UI/WS
type ListingStateDTO struct {
	ListingID     uuid.UUID  `json:"listing_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	StartingPrice string     `json:"starting_price"`
	CurrentPrice  *string    `json:"current_price"`
	Active        bool       `json:"active"`
	WinnerID      *uuid.UUID `json:"winner_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	BidCount      int        `json:"bid_count"`
	HighestBid    *BidDTO    `json:"highest_bid,omitempty"`
}

type BidDTO struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listing_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func NewBidDTO(b *domain.Bid) *BidDTO {
	if b == nil {
		return nil
	}
	return &BidDTO{
		ID:        b.ID,
		ListingID: b.ListingID,
		BidderID:  b.BidderID,
		Amount:    b.Amount.StringFixed(2),
		CreatedAt: b.CreatedAt,
	}
}

// GetListingStateUseCase retrieves the current state of a listing with its highest bid
type GetListingStateUseCase struct {
	listingRepo domain.ListingRepository
}

// NewGetListingStateUseCase creates a new instance of GetListingStateUseCase.
func NewGetListingStateUseCase(listingRepo domain.ListingRepository) *GetListingStateUseCase {
	return &GetListingStateUseCase{listingRepo: listingRepo}
}

// Execute reads listing and bids from one store snapshot, price and highest bid always agree
func (uc *GetListingStateUseCase) Execute(ctx context.Context, listingID uuid.UUID) (*ListingStateDTO, error) {
	snap, err := uc.listingRepo.GetListingSnapshot(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing state use case: %w", err)
	}
	return NewListingStateDTO(snap.Listing, snap.Bids), nil
}

// NewListingStateDTO maps a listing and its bids (insertion order) to the DTO
func NewListingStateDTO(listing *domain.Listing, bids []*domain.Bid) *ListingStateDTO {
	dto := &ListingStateDTO{
		ListingID:     listing.ID,
		Title:         listing.Title,
		Description:   listing.Description,
		Category:      listing.Category,
		ImageURL:      listing.ImageURL,
		OwnerID:       listing.OwnerID,
		StartingPrice: listing.StartingPrice.StringFixed(2),
		Active:        listing.Active,
		WinnerID:      listing.WinnerID,
		CreatedAt:     listing.CreatedAt,
		BidCount:      len(bids),
		HighestBid:    NewBidDTO(domain.HighestOf(bids)),
	}
	if listing.CurrentPrice != nil {
		p := listing.CurrentPrice.StringFixed(2)
		dto.CurrentPrice = &p
	}
	return dto
}

// ActiveListingsUseCase lists open listings, newest first, as state snapshots
type ActiveListingsUseCase struct {
	listingRepo domain.ListingRepository
}

func NewActiveListingsUseCase(listingRepo domain.ListingRepository) *ActiveListingsUseCase {
	return &ActiveListingsUseCase{listingRepo: listingRepo}
}

func (uc *ActiveListingsUseCase) Execute(ctx context.Context) ([]*ListingStateDTO, error) {
	snaps, err := uc.listingRepo.GetActiveSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("active listings use case: %w", err)
	}
	out := make([]*ListingStateDTO, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, NewListingStateDTO(snap.Listing, snap.Bids))
	}
	return out, nil
}
