package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func openListing(t *testing.T, owner uuid.UUID, starting string) *Listing {
	t.Helper()
	l, err := NewListing(uuid.New(), owner, "Vintage camera", "35mm, works", "cameras", "", amount(starting), time.Now().UTC())
	require.NoError(t, err)
	return l
}

func TestNewListing(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	tests := []struct {
		name     string
		owner    uuid.UUID
		title    string
		category string
		price    string
		wantErr  error
	}{
		{name: "valid", owner: owner, title: "Bike", category: "sports", price: "50.00"},
		{name: "title_is_trimmed", owner: owner, title: "  Bike  ", price: "1"},
		{name: "empty_title", owner: owner, title: "   ", price: "50", wantErr: ErrInvalidListing},
		{name: "title_too_long", owner: owner, title: strings.Repeat("a", 65), price: "50", wantErr: ErrInvalidListing},
		{name: "category_too_long", owner: owner, title: "Bike", category: strings.Repeat("c", 65), price: "50", wantErr: ErrInvalidListing},
		{name: "cyrillic_title_at_limit", owner: owner, title: strings.Repeat("ж", 64), price: "50"},
		{name: "cyrillic_title_40_chars", owner: owner, title: strings.Repeat("Ф", 40), category: strings.Repeat("к", 64), price: "50"},
		{name: "cyrillic_title_too_long", owner: owner, title: strings.Repeat("ж", 65), price: "50", wantErr: ErrInvalidListing},
		{name: "cyrillic_category_too_long", owner: owner, title: "Велосипед", category: strings.Repeat("к", 65), price: "50", wantErr: ErrInvalidListing},
		{name: "no_owner", owner: uuid.Nil, title: "Bike", price: "50", wantErr: ErrInvalidListing},
		{name: "zero_price", owner: owner, title: "Bike", price: "0", wantErr: ErrInvalidListing},
		{name: "negative_price", owner: owner, title: "Bike", price: "-5", wantErr: ErrInvalidListing},
		{name: "three_fraction_digits", owner: owner, title: "Bike", price: "10.005", wantErr: ErrInvalidListing},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, err := NewListing(uuid.New(), tt.owner, tt.title, "", tt.category, "", amount(tt.price), time.Now())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, l)
				return
			}
			require.NoError(t, err)
			require.True(t, l.Active)
			require.Nil(t, l.CurrentPrice)
			require.Nil(t, l.WinnerID)
			require.Equal(t, strings.TrimSpace(tt.title), l.Title)
		})
	}
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		valid bool
	}{
		{"0.01", true},
		{"100", true},
		{"99999999.99", true},
		{"100000000", false},
		{"0", false},
		{"-1", false},
		{"1.001", false},
		{"1.10", true},
	}
	for _, tt := range tests {
		err := ValidateAmount(amount(tt.in))
		if tt.valid {
			require.NoError(t, err, tt.in)
		} else {
			require.ErrorIs(t, err, ErrInvalidAmount, tt.in)
		}
	}
}

func TestListing_CheckBid(t *testing.T) {
	t.Parallel()

	owner, bidder := uuid.New(), uuid.New()

	withPrice := func(p string) func(*Listing) {
		return func(l *Listing) {
			v := amount(p)
			l.CurrentPrice = &v
		}
	}
	closed := func(l *Listing) { l.Active = false }

	tests := []struct {
		name    string
		setup   func(*Listing)
		bidder  uuid.UUID
		amount  string
		wantErr error
	}{
		{name: "first_bid_at_starting_price", bidder: bidder, amount: "50"},
		{name: "first_bid_below_starting_price", bidder: bidder, amount: "49.99", wantErr: ErrBidTooLow},
		{name: "raise_over_current", setup: withPrice("100"), bidder: bidder, amount: "100.01"},
		{name: "tie_with_current", setup: withPrice("100"), bidder: bidder, amount: "100", wantErr: ErrBidTooLow},
		{name: "below_current", setup: withPrice("100"), bidder: bidder, amount: "90", wantErr: ErrBidTooLow},
		{name: "owner_high_amount", bidder: owner, amount: "1000", wantErr: ErrSelfBid},
		{name: "owner_invalid_amount", bidder: owner, amount: "0", wantErr: ErrSelfBid},
		{name: "owner_low_amount", setup: withPrice("100"), bidder: owner, amount: "1", wantErr: ErrSelfBid},
		{name: "closed_listing", setup: closed, bidder: bidder, amount: "500", wantErr: ErrListingInactive},
		{name: "zero_amount", bidder: bidder, amount: "0", wantErr: ErrInvalidAmount},
		{name: "negative_amount", bidder: bidder, amount: "-10", wantErr: ErrInvalidAmount},
		{name: "too_precise_amount", bidder: bidder, amount: "60.001", wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := openListing(t, owner, "50")
			if tt.setup != nil {
				tt.setup(l)
			}
			before := l.Clone()

			err := l.CheckBid(tt.bidder, amount(tt.amount))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, before, l, "CheckBid must not mutate the listing")
		})
	}
}

func TestListing_CheckClose(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	l := openListing(t, owner, "10")

	require.ErrorIs(t, l.CheckClose(uuid.New()), ErrNotOwner)
	require.NoError(t, l.CheckClose(owner))

	l.ApplyClose(nil, time.Now())
	require.ErrorIs(t, l.CheckClose(owner), ErrAlreadyClosed)
	require.ErrorIs(t, l.CheckClose(uuid.New()), ErrNotOwner)
}

func TestListing_ApplyBidAndClose(t *testing.T) {
	t.Parallel()

	owner, winner := uuid.New(), uuid.New()
	l := openListing(t, owner, "10")
	require.False(t, l.HasBids())
	require.True(t, l.Price().Equal(amount("10")))

	bid := NewBid(uuid.New(), l.ID, winner, amount("15.50"), time.Now())
	l.ApplyBid(bid)
	require.True(t, l.HasBids())
	require.True(t, l.Price().Equal(amount("15.50")))

	l.ApplyClose(&winner, time.Now())
	require.False(t, l.Active)
	require.NotNil(t, l.WinnerID)
	require.Equal(t, winner, *l.WinnerID)
}

func TestListing_Clone(t *testing.T) {
	t.Parallel()

	l := openListing(t, uuid.New(), "10")
	l.ApplyBid(NewBid(uuid.New(), l.ID, uuid.New(), amount("20"), time.Now()))

	c := l.Clone()
	*c.CurrentPrice = amount("999")
	require.True(t, l.CurrentPrice.Equal(amount("20")))
}

func TestHighestOf(t *testing.T) {
	t.Parallel()

	require.Nil(t, HighestOf(nil))

	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	listing := uuid.New()
	now := time.Now()
	bids := []*Bid{
		NewBid(uuid.New(), listing, alice, amount("120"), now),
		NewBid(uuid.New(), listing, bob, amount("150"), now.Add(time.Second)),
		NewBid(uuid.New(), listing, carol, amount("140"), now.Add(2*time.Second)),
	}
	require.Equal(t, bob, HighestOf(bids).BidderID)

	// equal maxima: the earliest inserted wins
	first := NewBid(uuid.New(), listing, alice, amount("200"), now)
	second := NewBid(uuid.New(), listing, carol, amount("200.00"), now)
	require.Same(t, first, HighestOf([]*Bid{first, second}))
}

func TestIsRejection(t *testing.T) {
	t.Parallel()

	require.True(t, IsRejection(fmt.Errorf("place bid: %w", ErrBidTooLow)))
	require.True(t, IsRejection(ErrDuplicateTitle))
	require.False(t, IsRejection(fmt.Errorf("commit: %w", ErrContention)))
	require.False(t, IsRejection(errors.New("connection refused")))
	require.False(t, IsRejection(nil))

	require.Equal(t, ErrSelfBid, RejectionOf(fmt.Errorf("a: %w", fmt.Errorf("b: %w", ErrSelfBid))))
	require.Nil(t, RejectionOf(ErrPriceConflict))
}
