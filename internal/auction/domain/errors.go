package domain

import "errors"

// bussines rule rejections, returned to callers as-is (wrapped) and never leaving partial state
var (
	ErrListingNotFound = errors.New("listing not found")
	ErrListingInactive = errors.New("listing is not active")
	ErrSelfBid         = errors.New("owner cannot bid on their own listing")
	ErrBidTooLow       = errors.New("bid amount is too low")
	ErrNotOwner        = errors.New("only the listing owner can close the auction")
	ErrAlreadyClosed   = errors.New("listing is already closed")
	ErrInvalidAmount   = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidListing  = errors.New("invalid listing data")
	ErrDuplicateTitle  = errors.New("a listing with this title already exists")
)

// infra errors
var (
	// ErrPriceConflict is returned by a store when the committed price no longer matches
	// the value a decision was made on. The ledger re-reads and re-validates on it.
	ErrPriceConflict = errors.New("listing price changed concurrently")
	// ErrContention is returned when a commit kept losing the compare-and-swap.
	ErrContention = errors.New("listing is under heavy contention, try again")
)

var rejections = []error{
	ErrListingNotFound,
	ErrListingInactive,
	ErrSelfBid,
	ErrBidTooLow,
	ErrNotOwner,
	ErrAlreadyClosed,
	ErrInvalidAmount,
	ErrInvalidListing,
	ErrDuplicateTitle,
}

// IsRejection reports whether err is an expected business rule rejection,
// as opposed to an infrastructure failure.
func IsRejection(err error) bool {
	return RejectionOf(err) != nil
}

// RejectionOf returns the business rule sentinel carried by err, nil if there is none
func RejectionOf(err error) error {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}
