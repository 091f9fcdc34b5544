package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies what triggered a notification
type Kind string

const (
	KindBidPlaced     Kind = "bid_placed"
	KindOutbid        Kind = "outbid"
	KindAuctionClosed Kind = "auction_closed"
)

// Event is a notification addressed to a single user. It is derived from a ledger mutation
// and never persisted by the core.
type Event struct {
	Kind        Kind            `json:"kind"`
	RecipientID uuid.UUID       `json:"recipient_id"`
	ListingID   uuid.UUID       `json:"listing_id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Subject     string          `json:"subject"`
	Message     string          `json:"message"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
