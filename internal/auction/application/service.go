package application

import (
	"context"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/cristianortiz/auctionMarket/internal/notification"
	"github.com/cristianortiz/auctionMarket/internal/shared/keyedmutex"
	"github.com/google/uuid"
)

// AuctionService defines application interface layer of auction module
// exposes uses cases to external layer, aka infra
type AuctionService interface {
	CreateListing(ctx context.Context, cmd CreateListingDTO) (*domain.Listing, error)
	// PlaceBid validates a bid against the latest committed price and commits it atomically
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*BidResult, error)
	HighestBid(ctx context.Context, listingID uuid.UUID) (*domain.Bid, error)
	ListBids(ctx context.Context, listingID uuid.UUID) ([]*domain.Bid, error)
	// Close ends the auction, only the owner may do it and only once
	Close(ctx context.Context, cmd CloseListingDTO) (*CloseResult, error)
	GetListingState(ctx context.Context, listingID uuid.UUID) (*ListingStateDTO, error)
	ActiveListings(ctx context.Context) ([]*ListingStateDTO, error)
}

// concret implementation of AuctionService (struct)
type auctionService struct {
	createListingUC   *CreateListingUseCase
	placeBidUC        *PlaceBidUseCase
	closeListingUC    *CloseListingUseCase
	bidsQueryUC       *BidsQueryUseCase
	getListingStateUC *GetListingStateUseCase
	activeListingsUC  *ActiveListingsUseCase
}

func NewAuctionService(createListingUC *CreateListingUseCase,
	placeBidUC *PlaceBidUseCase,
	closeListingUC *CloseListingUseCase,
	bidsQueryUC *BidsQueryUseCase,
	getListingStateUC *GetListingStateUseCase,
	activeListingsUC *ActiveListingsUseCase) AuctionService {
	return &auctionService{
		createListingUC:   createListingUC,
		placeBidUC:        placeBidUC,
		closeListingUC:    closeListingUC,
		bidsQueryUC:       bidsQueryUC,
		getListingStateUC: getListingStateUC,
		activeListingsUC:  activeListingsUC,
	}
}

// NewLedger wires every use case over the same repositories and listing lock set
func NewLedger(listingRepo domain.ListingRepository, bidRepo domain.BidRepository,
	dispatcher notification.Dispatcher, maxCommitAttempts int) AuctionService {
	locks := keyedmutex.New[uuid.UUID]()
	return NewAuctionService(
		NewCreateListingUseCase(listingRepo),
		NewPlaceBidUseCase(listingRepo, bidRepo, locks, dispatcher, maxCommitAttempts),
		NewCloseListingUseCase(listingRepo, bidRepo, locks, dispatcher, maxCommitAttempts),
		NewBidsQueryUseCase(listingRepo, bidRepo),
		NewGetListingStateUseCase(listingRepo),
		NewActiveListingsUseCase(listingRepo),
	)
}

func (as *auctionService) CreateListing(ctx context.Context, cmd CreateListingDTO) (*domain.Listing, error) {
	return as.createListingUC.Execute(ctx, cmd)
}

// PlaceBid implements AuctionService.
func (as *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*BidResult, error) {
	return as.placeBidUC.Execute(ctx, cmd)
}

func (as *auctionService) HighestBid(ctx context.Context, listingID uuid.UUID) (*domain.Bid, error) {
	return as.bidsQueryUC.HighestBid(ctx, listingID)
}

func (as *auctionService) ListBids(ctx context.Context, listingID uuid.UUID) ([]*domain.Bid, error) {
	return as.bidsQueryUC.ListBids(ctx, listingID)
}

func (as *auctionService) Close(ctx context.Context, cmd CloseListingDTO) (*CloseResult, error) {
	return as.closeListingUC.Execute(ctx, cmd)
}

// GetListingState to implementss AuctionService
func (as *auctionService) GetListingState(ctx context.Context, listingID uuid.UUID) (*ListingStateDTO, error) {
	return as.getListingStateUC.Execute(ctx, listingID)
}

func (as *auctionService) ActiveListings(ctx context.Context) ([]*ListingStateDTO, error) {
	return as.activeListingsUC.Execute(ctx)
}
