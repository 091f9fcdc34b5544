package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// lengths count characters, like VARCHAR(64)
const (
	maxTitleLength    = 64
	maxCategoryLength = 64
	// amounts are stored as DECIMAL(10,2)
	amountScale = 2
)

var maxAmount = decimal.New(1, 8) // 10 digits, 2 of them fractional

// Listing is an item up for auction. Price state only changes through the ledger,
// the active flag and winner only through Close.
type Listing struct {
	ID            uuid.UUID
	Title         string
	Description   string
	Category      string
	ImageURL      string
	StartingPrice decimal.Decimal
	CurrentPrice  *decimal.Decimal // nil until the first accepted bid
	OwnerID       uuid.UUID
	Active        bool
	WinnerID      *uuid.UUID // set once, at close time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewListing validates the descriptive data and creates an active listing without bids
func NewListing(id, ownerID uuid.UUID, title, description, category, imageURL string, startingPrice decimal.Decimal, createdAt time.Time) (*Listing, error) {
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return nil, ErrInvalidListing
	}
	category = strings.TrimSpace(category)
	if utf8.RuneCountInString(category) > maxCategoryLength {
		return nil, ErrInvalidListing
	}
	if ownerID == uuid.Nil {
		return nil, ErrInvalidListing
	}
	if err := ValidateAmount(startingPrice); err != nil {
		return nil, ErrInvalidListing
	}
	return &Listing{
		ID:            id,
		Title:         title,
		Description:   description,
		Category:      category,
		ImageURL:      strings.TrimSpace(imageURL),
		StartingPrice: startingPrice,
		OwnerID:       ownerID,
		Active:        true,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}, nil
}

// ValidateAmount checks that amount is positive, fits DECIMAL(10,2) and has no more than two fraction digits
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(amountScale)) {
		return ErrInvalidAmount
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// HasBids reports whether a bid was ever accepted
func (l *Listing) HasBids() bool {
	return l.CurrentPrice != nil
}

// Price returns the current price, or the starting price when nobody has bid yet
func (l *Listing) Price() decimal.Decimal {
	if l.CurrentPrice != nil {
		return *l.CurrentPrice
	}
	return l.StartingPrice
}

// CheckBid applies the acceptance rule against this snapshot of the listing.
// It does not mutate the listing, committing is the ledger's job.
func (l *Listing) CheckBid(bidderID uuid.UUID, amount decimal.Decimal) error {
	if !l.Active {
		return ErrListingInactive
	}
	if bidderID == l.OwnerID {
		return ErrSelfBid
	}
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if l.CurrentPrice == nil {
		if amount.LessThan(l.StartingPrice) {
			return ErrBidTooLow
		}
		return nil
	}
	// ties are rejected, a bid must strictly raise the price
	if !amount.GreaterThan(*l.CurrentPrice) {
		return ErrBidTooLow
	}
	return nil
}

// CheckClose validates the open -> closed transition for requester
func (l *Listing) CheckClose(requesterID uuid.UUID) error {
	if requesterID != l.OwnerID {
		return ErrNotOwner
	}
	if !l.Active {
		return ErrAlreadyClosed
	}
	return nil
}

// ApplyBid moves the price to the bid amount. Callers must have run CheckBid on the same snapshot.
func (l *Listing) ApplyBid(bid *Bid) {
	amount := bid.Amount
	l.CurrentPrice = &amount
	l.UpdatedAt = bid.CreatedAt
}

// ApplyClose deactivates the listing and records the winner, if any
func (l *Listing) ApplyClose(winnerID *uuid.UUID, at time.Time) {
	l.Active = false
	if winnerID != nil {
		w := *winnerID
		l.WinnerID = &w
	}
	l.UpdatedAt = at
}

// Clone returns a deep copy, stores hand out copies so readers never see in-flight changes
func (l *Listing) Clone() *Listing {
	c := *l
	if l.CurrentPrice != nil {
		p := *l.CurrentPrice
		c.CurrentPrice = &p
	}
	if l.WinnerID != nil {
		w := *l.WinnerID
		c.WinnerID = &w
	}
	return &c
}
