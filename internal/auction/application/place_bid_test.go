package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/cristianortiz/auctionMarket/internal/auction/infra/repository/memory"
	"github.com/cristianortiz/auctionMarket/internal/notification"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// conflictingStore loses the first compare-and-swaps as if another process committed first.
// onConflict runs before each lost swap so tests can play that other process.
type conflictingStore struct {
	*memory.Store
	bidConflicts   int
	closeConflicts int
	onConflict     func()
}

func (s *conflictingStore) CompareAndUpdatePrice(ctx context.Context, id uuid.UUID, expected *decimal.Decimal, bid *domain.Bid) error {
	if s.bidConflicts > 0 {
		s.bidConflicts--
		if s.onConflict != nil {
			s.onConflict()
		}
		return domain.ErrPriceConflict
	}
	return s.Store.CompareAndUpdatePrice(ctx, id, expected, bid)
}

func (s *conflictingStore) CloseListing(ctx context.Context, id uuid.UUID, expected *decimal.Decimal, winnerID *uuid.UUID, closedAt time.Time) error {
	if s.closeConflicts > 0 {
		s.closeConflicts--
		return domain.ErrPriceConflict
	}
	return s.Store.CloseListing(ctx, id, expected, winnerID, closedAt)
}

func createListing(t *testing.T, svc AuctionService, owner uuid.UUID, starting string) *domain.Listing {
	t.Helper()
	l, err := svc.CreateListing(context.Background(), CreateListingDTO{
		OwnerID:       owner,
		Title:         "Listing " + uuid.NewString()[:8],
		Description:   "test listing",
		Category:      "misc",
		StartingPrice: dec(starting),
	})
	require.NoError(t, err)
	return l
}

func placeBid(svc AuctionService, listingID, bidder uuid.UUID, amount string) (*BidResult, error) {
	return svc.PlaceBid(context.Background(), PlaceBidDTO{ListingID: listingID, BidderID: bidder, Amount: dec(amount)})
}

func TestPlaceBid_AcceptedBidsMovePriceAndEmitEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := memory.NewStore()
	dispatcher := notification.NewMockDispatcher(ctrl)
	svc := NewLedger(store, store, dispatcher, 3)

	owner, alice, bob := uuid.New(), uuid.New(), uuid.New()
	listing := createListing(t, svc, owner, "50")

	gomock.InOrder(
		dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Len(1)).Return(nil),
		dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Len(2)).Return(nil),
	)

	// first bid may equal the starting price
	first, err := placeBid(svc, listing.ID, alice, "50")
	require.NoError(t, err)
	require.Len(t, first.Events, 1)
	require.Equal(t, notification.KindBidPlaced, first.Events[0].Kind)
	require.Equal(t, owner, first.Events[0].RecipientID)
	require.True(t, first.Listing.CurrentPrice.Equal(dec("50")))

	second, err := placeBid(svc, listing.ID, bob, "65.25")
	require.NoError(t, err)
	require.Len(t, second.Events, 2)
	require.Equal(t, notification.KindBidPlaced, second.Events[0].Kind)
	require.Equal(t, notification.KindOutbid, second.Events[1].Kind)
	require.Equal(t, alice, second.Events[1].RecipientID)

	stored, err := store.GetByID(context.Background(), listing.ID)
	require.NoError(t, err)
	require.True(t, stored.CurrentPrice.Equal(dec("65.25")))

	bids, err := store.GetBidsByListingID(context.Background(), listing.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, first.Bid.ID, bids[0].ID)
	require.Equal(t, second.Bid.ID, bids[1].ID)
}

func TestPlaceBid_RejectionsLeaveNoTrace(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	owner, alice, bob := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name    string
		setup   func(t *testing.T, svc AuctionService, listingID uuid.UUID)
		target  func(listingID uuid.UUID) uuid.UUID
		bidder  uuid.UUID
		amount  string
		wantErr error
		// accepted bids made by setup
		wantBids int
	}{
		{name: "below_starting_price", bidder: alice, amount: "49.99", wantErr: domain.ErrBidTooLow},
		{
			name: "tie_with_current_price",
			setup: func(t *testing.T, svc AuctionService, id uuid.UUID) {
				_, err := placeBid(svc, id, alice, "100")
				require.NoError(t, err)
			},
			bidder: bob, amount: "100", wantErr: domain.ErrBidTooLow, wantBids: 1,
		},
		{
			name: "below_current_price",
			setup: func(t *testing.T, svc AuctionService, id uuid.UUID) {
				_, err := placeBid(svc, id, alice, "100")
				require.NoError(t, err)
			},
			bidder: bob, amount: "90", wantErr: domain.ErrBidTooLow, wantBids: 1,
		},
		{name: "owner_bids_high", bidder: owner, amount: "10000", wantErr: domain.ErrSelfBid},
		{name: "owner_bids_low", bidder: owner, amount: "1", wantErr: domain.ErrSelfBid},
		{name: "zero_amount", bidder: alice, amount: "0", wantErr: domain.ErrInvalidAmount},
		{name: "negative_amount", bidder: alice, amount: "-60", wantErr: domain.ErrInvalidAmount},
		{name: "sub_cent_amount", bidder: alice, amount: "60.005", wantErr: domain.ErrInvalidAmount},
		{
			name: "closed_listing",
			setup: func(t *testing.T, svc AuctionService, id uuid.UUID) {
				_, err := svc.Close(context.Background(), CloseListingDTO{ListingID: id, RequesterID: owner})
				require.NoError(t, err)
			},
			bidder: alice, amount: "500", wantErr: domain.ErrListingInactive,
		},
		{
			name:    "unknown_listing",
			target:  func(uuid.UUID) uuid.UUID { return uuid.New() },
			bidder:  alice,
			amount:  "60",
			wantErr: domain.ErrListingNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			dispatcher := notification.NewMockDispatcher(ctrl)
			svc := NewLedger(store, store, dispatcher, 3)
			listing := createListing(t, svc, owner, "50")

			if tt.setup != nil {
				// setup mutations may notify, the rejected bid must not
				dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				tt.setup(t, svc, listing.ID)
			}
			before, err := store.GetByID(context.Background(), listing.ID)
			require.NoError(t, err)

			target := listing.ID
			if tt.target != nil {
				target = tt.target(listing.ID)
			}
			result, err := placeBid(svc, target, tt.bidder, tt.amount)
			require.ErrorIs(t, err, tt.wantErr)
			require.True(t, domain.IsRejection(err))
			require.Nil(t, result)

			after, err := store.GetByID(context.Background(), listing.ID)
			require.NoError(t, err)
			require.Equal(t, before, after)

			bids, err := store.GetBidsByListingID(context.Background(), listing.ID)
			require.NoError(t, err)
			require.Len(t, bids, tt.wantBids)
		})
	}
}

func TestPlaceBid_DispatchFailureKeepsCommittedBid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := memory.NewStore()
	dispatcher := notification.NewMockDispatcher(ctrl)
	svc := NewLedger(store, store, dispatcher, 3)

	listing := createListing(t, svc, uuid.New(), "10")
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("redis unavailable"))

	result, err := placeBid(svc, listing.ID, uuid.New(), "12")
	require.NoError(t, err)
	require.Len(t, result.Events, 1)

	highest, err := svc.HighestBid(context.Background(), listing.ID)
	require.NoError(t, err)
	require.Equal(t, result.Bid.ID, highest.ID)
}

func TestPlaceBid_ConcurrentBidsNeverLowerThePrice(t *testing.T) {
	t.Parallel()

	for i := 0; i < 50; i++ {
		store := memory.NewStore()
		svc := NewLedger(store, store, nil, 3)
		listing := createListing(t, svc, uuid.New(), "50")

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, amount := range []string{"90", "100"} {
			wg.Add(1)
			go func(j int, amount string) {
				defer wg.Done()
				_, errs[j] = placeBid(svc, listing.ID, uuid.New(), amount)
			}(j, amount)
		}
		wg.Wait()

		// 100 always lands, 90 only if it came first
		require.NoError(t, errs[1])
		if errs[0] != nil {
			require.ErrorIs(t, errs[0], domain.ErrBidTooLow)
		}

		stored, err := store.GetByID(context.Background(), listing.ID)
		require.NoError(t, err)
		require.True(t, stored.CurrentPrice.Equal(dec("100")), "iteration %d: price %s", i, stored.CurrentPrice)

		bids, err := store.GetBidsByListingID(context.Background(), listing.ID)
		require.NoError(t, err)
		require.True(t, bids[len(bids)-1].Amount.Equal(dec("100")))
	}
}

func TestPlaceBid_ConcurrentBidsKeepStrictlyIncreasingLog(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := NewLedger(store, store, notification.LogDispatcher{}, 3)
	listing := createListing(t, svc, uuid.New(), "1")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []decimal.Decimal
		rejected []error
	)
	for i := 1; i <= 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := fmt.Sprintf("%d.50", (i*7)%40+1)
			_, err := placeBid(svc, listing.ID, uuid.New(), amount)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejected = append(rejected, err)
				return
			}
			accepted = append(accepted, dec(amount))
		}(i)
	}
	wg.Wait()

	for _, err := range rejected {
		require.ErrorIs(t, err, domain.ErrBidTooLow)
	}
	bids, err := store.GetBidsByListingID(context.Background(), listing.ID)
	require.NoError(t, err)
	require.Len(t, bids, len(accepted))
	for i := 1; i < len(bids); i++ {
		require.True(t, bids[i].Amount.GreaterThan(bids[i-1].Amount))
	}

	highest := accepted[0]
	for _, a := range accepted {
		highest = decimal.Max(highest, a)
	}
	stored, err := store.GetByID(context.Background(), listing.ID)
	require.NoError(t, err)
	require.True(t, stored.CurrentPrice.Equal(highest))
}

func TestPlaceBid_LostCompareAndSwap(t *testing.T) {
	t.Parallel()

	owner, alice, carol := uuid.New(), uuid.New(), uuid.New()

	t.Run("retries_until_commit", func(t *testing.T) {
		t.Parallel()
		store := &conflictingStore{Store: memory.NewStore(), bidConflicts: 2}
		svc := NewLedger(store, store, nil, 3)
		listing := createListing(t, svc, owner, "50")

		result, err := placeBid(svc, listing.ID, alice, "60")
		require.NoError(t, err)
		require.True(t, result.Listing.CurrentPrice.Equal(dec("60")))
	})

	t.Run("gives_up_with_contention", func(t *testing.T) {
		t.Parallel()
		store := &conflictingStore{Store: memory.NewStore(), bidConflicts: 10}
		svc := NewLedger(store, store, nil, 3)
		listing := createListing(t, svc, owner, "50")

		_, err := placeBid(svc, listing.ID, alice, "60")
		require.ErrorIs(t, err, domain.ErrContention)
		require.False(t, domain.IsRejection(err))
		require.Equal(t, 7, store.bidConflicts)

		bids, err := store.GetBidsByListingID(context.Background(), listing.ID)
		require.NoError(t, err)
		require.Empty(t, bids)
	})

	t.Run("revalidates_against_the_winning_commit", func(t *testing.T) {
		t.Parallel()
		store := &conflictingStore{Store: memory.NewStore(), bidConflicts: 1}
		svc := NewLedger(store, store, nil, 3)
		listing := createListing(t, svc, owner, "50")

		// another process commits 100 between our read and our swap
		store.onConflict = func() {
			other := domain.NewBid(uuid.New(), listing.ID, carol, dec("100"), listing.CreatedAt)
			require.NoError(t, store.Store.CompareAndUpdatePrice(context.Background(), listing.ID, nil, other))
		}

		_, err := placeBid(svc, listing.ID, alice, "90")
		require.ErrorIs(t, err, domain.ErrBidTooLow)

		stored, err := store.GetByID(context.Background(), listing.ID)
		require.NoError(t, err)
		require.True(t, stored.CurrentPrice.Equal(dec("100")))
	})
}
