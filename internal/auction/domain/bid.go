package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid represents an accepted offer on a listing, it is immutable once created
type Bid struct {
	ID        uuid.UUID
	ListingID uuid.UUID
	BidderID  uuid.UUID //user who makes the bid
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// NewBid creates a new Bid instance
func NewBid(id, listingID, bidderID uuid.UUID, amount decimal.Decimal, createdAt time.Time) *Bid {
	return &Bid{
		ID:        id,
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: createdAt,
	}
}

// HighestOf returns the bid with the maximum amount, the earliest one wins among equal maxima.
// bids must be in insertion order.
func HighestOf(bids []*Bid) *Bid {
	var highest *Bid
	for _, b := range bids {
		if highest == nil || b.Amount.GreaterThan(highest.Amount) {
			highest = b
		}
	}
	return highest
}
