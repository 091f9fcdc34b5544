package notification

import (
	"fmt"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
)

// BidPlaced builds the events for an accepted bid: bid_placed to the owner first, then outbid
// to the previous highest bidder when there was one and it is not the same user.
func BidPlaced(listing *domain.Listing, bid *domain.Bid, previous *domain.Bid) []Event {
	events := make([]Event, 0, 2)
	if listing.OwnerID != bid.BidderID {
		events = append(events, Event{
			Kind:        KindBidPlaced,
			RecipientID: listing.OwnerID,
			ListingID:   listing.ID,
			Title:       listing.Title,
			Amount:      bid.Amount,
			Subject:     fmt.Sprintf("New bid on %s", listing.Title),
			Message:     fmt.Sprintf("A bid of $%s was placed on %s.", bid.Amount.StringFixed(2), listing.Title),
			OccurredAt:  bid.CreatedAt,
		})
	}
	if previous != nil && previous.BidderID != bid.BidderID {
		events = append(events, Event{
			Kind:        KindOutbid,
			RecipientID: previous.BidderID,
			ListingID:   listing.ID,
			Title:       listing.Title,
			Amount:      bid.Amount,
			Subject:     fmt.Sprintf("You have been outbid on %s", listing.Title),
			Message:     fmt.Sprintf("Someone placed a higher bid of $%s on %s.", bid.Amount.StringFixed(2), listing.Title),
			OccurredAt:  bid.CreatedAt,
		})
	}
	return events
}

// AuctionClosed builds the events for a closed listing. The winner, if any, is notified
// first, then the owner. Amount is the winning amount or zero when nobody bid.
func AuctionClosed(listing *domain.Listing, winning *domain.Bid) []Event {
	events := make([]Event, 0, 2)
	if winning != nil {
		events = append(events, Event{
			Kind:        KindAuctionClosed,
			RecipientID: winning.BidderID,
			ListingID:   listing.ID,
			Title:       listing.Title,
			Amount:      winning.Amount,
			Subject:     fmt.Sprintf("You won %s", listing.Title),
			Message:     fmt.Sprintf("The auction for %s has closed, your bid of $%s won.", listing.Title, winning.Amount.StringFixed(2)),
			OccurredAt:  listing.UpdatedAt,
		})
	}

	owner := Event{
		Kind:        KindAuctionClosed,
		RecipientID: listing.OwnerID,
		ListingID:   listing.ID,
		Title:       listing.Title,
		Subject:     fmt.Sprintf("Auction closed: %s", listing.Title),
		Message:     fmt.Sprintf("The auction for %s has been closed. No bids were placed.", listing.Title),
		OccurredAt:  listing.UpdatedAt,
	}
	if winning != nil {
		owner.Amount = winning.Amount
		owner.Message = fmt.Sprintf("The auction for %s has been closed with a winning bid of $%s.", listing.Title, winning.Amount.StringFixed(2))
	}
	return append(events, owner)
}
