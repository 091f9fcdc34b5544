package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/cristianortiz/auctionMarket/internal/notification"
	"github.com/cristianortiz/auctionMarket/internal/shared/keyedmutex"
	"github.com/cristianortiz/auctionMarket/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// PlaceBidDTO is DTO input for PlaceBid useCase, contains the necesary data to make a bid
type PlaceBidDTO struct {
	ListingID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// BidResult is what an accepted bid produced: the stored bid, the listing state right after
// the commit and the notifications it triggered (bid_placed first)
type BidResult struct {
	Bid     *domain.Bid
	Listing *domain.Listing
	Events  []notification.Event
}

// PlaceBidUseCase is the ledger write path. It is the only place allowed to move a listing price.
type PlaceBidUseCase struct {
	listingRepo domain.ListingRepository
	bidRepo     domain.BidRepository
	locks       *keyedmutex.KeyedMutex[uuid.UUID]
	dispatcher  notification.Dispatcher
	maxAttempts int
	now         func() time.Time
}

// NewPlaceBidUseCase creates a new instace of PlaceBidUseCase struct, it receives dependency through injection.
// locks must be shared with the CloseListingUseCase so bids and closes on one listing serialize.
func NewPlaceBidUseCase(listingRepo domain.ListingRepository,
	bidRepo domain.BidRepository,
	locks *keyedmutex.KeyedMutex[uuid.UUID],
	dispatcher notification.Dispatcher,
	maxAttempts int) *PlaceBidUseCase {

	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &PlaceBidUseCase{
		listingRepo: listingRepo,
		bidRepo:     bidRepo,
		locks:       locks,
		dispatcher:  dispatcher,
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*BidResult, error) {
	log.Info("Executing PlaceBidUseCase",
		zap.String("listingID", cmd.ListingID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.Stringer("amount", cmd.Amount),
	)

	// one writer per listing inside this process, the store CAS covers other processes
	unlock := uc.locks.Lock(cmd.ListingID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		listing, err := uc.listingRepo.GetByID(ctx, cmd.ListingID)
		if err != nil {
			if !errors.Is(err, domain.ErrListingNotFound) {
				log.Error("PlaceBidUseCase: Failed to get listing",
					zap.String("listingID", cmd.ListingID.String()),
					zap.Error(err),
				)
			}
			return nil, fmt.Errorf("place bid use case: failed to get listing %s: %w", cmd.ListingID, err)
		}

		if err := listing.CheckBid(cmd.BidderID, cmd.Amount); err != nil {
			log.Warn("Bid rejected",
				zap.String("listingID", listing.ID.String()),
				zap.String("bidderID", cmd.BidderID.String()),
				zap.Stringer("amount", cmd.Amount),
				zap.Stringer("price", listing.Price()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("place bid use case: bid failed for listing %s: %w", cmd.ListingID, err)
		}

		previous, err := uc.bidRepo.GetHighestBid(ctx, listing.ID)
		if err != nil {
			log.Error("PlaceBidUseCase: Failed to get highest bid",
				zap.String("listingID", listing.ID.String()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("place bid use case: failed to get highest bid for listing %s: %w", cmd.ListingID, err)
		}

		bid := domain.NewBid(uuid.New(), listing.ID, cmd.BidderID, cmd.Amount, uc.now())
		err = uc.listingRepo.CompareAndUpdatePrice(ctx, listing.ID, listing.CurrentPrice, bid)
		switch {
		case errors.Is(err, domain.ErrPriceConflict):
			if attempt >= uc.maxAttempts {
				log.Error("PlaceBidUseCase: Giving up after repeated price conflicts",
					zap.String("listingID", listing.ID.String()),
					zap.Int("attempts", attempt),
				)
				return nil, fmt.Errorf("place bid use case: listing %s: %w", cmd.ListingID, domain.ErrContention)
			}
			log.Debug("PlaceBidUseCase: Price moved before commit, re-validating",
				zap.String("listingID", listing.ID.String()),
				zap.Int("attempt", attempt),
			)
			continue
		case errors.Is(err, domain.ErrListingInactive), errors.Is(err, domain.ErrListingNotFound):
			return nil, fmt.Errorf("place bid use case: bid failed for listing %s: %w", cmd.ListingID, err)
		case err != nil:
			log.Error("PlaceBidUseCase: Failed to commit bid",
				zap.String("listingID", listing.ID.String()),
				zap.String("bidID", bid.ID.String()),
				zap.Error(err),
			)
			return nil, fmt.Errorf("place bid use case: failed to commit bid for listing %s: %w", cmd.ListingID, err)
		}

		listing.ApplyBid(bid)
		log.Info("Bid placed successfully",
			zap.String("listingID", listing.ID.String()),
			zap.String("bidID", bid.ID.String()),
			zap.String("bidderID", bid.BidderID.String()),
			zap.Stringer("amount", bid.Amount),
		)

		events := notification.BidPlaced(listing, bid, previous)
		dispatch(ctx, uc.dispatcher, listing.ID, events)
		return &BidResult{Bid: bid, Listing: listing, Events: events}, nil
	}
}

// dispatch hands events to the dispatcher while the listing lock is still held, so
// deliveries for one listing keep the order mutations were applied in. A failing
// delivery is logged, the mutation is already committed.
func dispatch(ctx context.Context, d notification.Dispatcher, listingID uuid.UUID, events []notification.Event) {
	if d == nil || len(events) == 0 {
		return
	}
	if err := d.Dispatch(ctx, events); err != nil {
		log.Warn("Failed to dispatch notifications",
			zap.String("listingID", listingID.String()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}
