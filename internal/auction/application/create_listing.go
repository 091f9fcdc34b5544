package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateListingDTO struct {
	OwnerID       uuid.UUID
	Title         string
	Description   string
	Category      string
	ImageURL      string
	StartingPrice decimal.Decimal
}

type CreateListingUseCase struct {
	listingRepo domain.ListingRepository
	now         func() time.Time
}

func NewCreateListingUseCase(listingRepo domain.ListingRepository) *CreateListingUseCase {
	return &CreateListingUseCase{
		listingRepo: listingRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CreateListingUseCase) Execute(ctx context.Context, cmd CreateListingDTO) (*domain.Listing, error) {
	listing, err := domain.NewListing(uuid.New(), cmd.OwnerID, cmd.Title, cmd.Description,
		cmd.Category, cmd.ImageURL, cmd.StartingPrice, uc.now())
	if err != nil {
		return nil, fmt.Errorf("create listing use case: %w", err)
	}
	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing use case: %w", err)
	}
	log.Info("Listing created",
		zap.String("listingID", listing.ID.String()),
		zap.String("ownerID", listing.OwnerID.String()),
		zap.Stringer("startingPrice", listing.StartingPrice),
	)
	return listing, nil
}
