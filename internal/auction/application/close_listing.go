package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/cristianortiz/auctionMarket/internal/notification"
	"github.com/cristianortiz/auctionMarket/internal/shared/keyedmutex"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CloseListingDTO struct {
	ListingID   uuid.UUID
	RequesterID uuid.UUID
}

// CloseResult describes a closed auction. NoBids is set when nobody bid, the listing is
// closed anyway and WinningBid is nil.
type CloseResult struct {
	Listing    *domain.Listing
	WinningBid *domain.Bid
	NoBids     bool
	Events     []notification.Event
}

// CloseListingUseCase runs the open -> closed transition and assigns the winner
type CloseListingUseCase struct {
	listingRepo domain.ListingRepository
	bidRepo     domain.BidRepository
	locks       *keyedmutex.KeyedMutex[uuid.UUID]
	dispatcher  notification.Dispatcher
	maxAttempts int
	now         func() time.Time
}

func NewCloseListingUseCase(listingRepo domain.ListingRepository,
	bidRepo domain.BidRepository,
	locks *keyedmutex.KeyedMutex[uuid.UUID],
	dispatcher notification.Dispatcher,
	maxAttempts int) *CloseListingUseCase {

	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &CloseListingUseCase{
		listingRepo: listingRepo,
		bidRepo:     bidRepo,
		locks:       locks,
		dispatcher:  dispatcher,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CloseListingUseCase) Execute(ctx context.Context, cmd CloseListingDTO) (*CloseResult, error) {
	log.Info("Executing CloseListingUseCase",
		zap.String("listingID", cmd.ListingID.String()),
		zap.String("requesterID", cmd.RequesterID.String()),
	)

	unlock := uc.locks.Lock(cmd.ListingID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		listing, err := uc.listingRepo.GetByID(ctx, cmd.ListingID)
		if err != nil {
			return nil, fmt.Errorf("close listing use case: failed to get listing %s: %w", cmd.ListingID, err)
		}

		if err := listing.CheckClose(cmd.RequesterID); err != nil {
			log.Warn("Close rejected",
				zap.String("listingID", listing.ID.String()),
				zap.String("requesterID", cmd.RequesterID.String()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("close listing use case: listing %s: %w", cmd.ListingID, err)
		}

		highest, err := uc.bidRepo.GetHighestBid(ctx, listing.ID)
		if err != nil {
			log.Error("CloseListingUseCase: Failed to get highest bid",
				zap.String("listingID", listing.ID.String()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("close listing use case: failed to get highest bid for listing %s: %w", cmd.ListingID, err)
		}

		var winnerID *uuid.UUID
		if highest != nil {
			winnerID = &highest.BidderID
		}

		closedAt := uc.now()
		err = uc.listingRepo.CloseListing(ctx, listing.ID, listing.CurrentPrice, winnerID, closedAt)
		switch {
		case errors.Is(err, domain.ErrPriceConflict):
			if attempt >= uc.maxAttempts {
				return nil, fmt.Errorf("close listing use case: listing %s: %w", cmd.ListingID, domain.ErrContention)
			}
			continue
		case errors.Is(err, domain.ErrAlreadyClosed), errors.Is(err, domain.ErrListingNotFound):
			return nil, fmt.Errorf("close listing use case: listing %s: %w", cmd.ListingID, err)
		case err != nil:
			log.Error("CloseListingUseCase: Failed to close listing",
				zap.String("listingID", listing.ID.String()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("close listing use case: failed to close listing %s: %w", cmd.ListingID, err)
		}

		listing.ApplyClose(winnerID, closedAt)
		result := &CloseResult{
			Listing:    listing,
			WinningBid: highest,
			NoBids:     highest == nil,
		}
		if result.NoBids {
			log.Info("Auction closed without bids", zap.String("listingID", listing.ID.String()))
		} else {
			log.Info("Auction closed",
				zap.String("listingID", listing.ID.String()),
				zap.String("winnerID", highest.BidderID.String()),
				zap.Stringer("finalPrice", highest.Amount),
			)
		}

		result.Events = notification.AuctionClosed(listing, highest)
		dispatch(ctx, uc.dispatcher, listing.ID, result.Events)
		return result, nil
	}
}
