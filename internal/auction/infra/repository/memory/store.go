package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is a concurrency-safe in-memory implementation of domain.ListingRepository and
// domain.BidRepository. Values are copied in and out so callers never share state with it.
type Store struct {
	mu       sync.RWMutex
	listings map[uuid.UUID]*domain.Listing
	titles   map[string]uuid.UUID
	bids     map[uuid.UUID][]*domain.Bid // key: listingID -> bids in insertion order
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{
		listings: make(map[uuid.UUID]*domain.Listing),
		titles:   make(map[string]uuid.UUID),
		bids:     make(map[uuid.UUID][]*domain.Bid),
	}
}

// Compile-time interface checks.
var (
	_ domain.ListingRepository = (*Store)(nil)
	_ domain.BidRepository     = (*Store)(nil)
)

func (s *Store) Create(_ context.Context, listing *domain.Listing) error {
	if listing == nil || listing.ID == uuid.Nil {
		return domain.ErrInvalidListing
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.titles[listing.Title]; exists {
		return domain.ErrDuplicateTitle
	}
	if _, exists := s.listings[listing.ID]; exists {
		return domain.ErrInvalidListing
	}
	s.listings[listing.ID] = listing.Clone()
	s.titles[listing.Title] = listing.ID
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return l.Clone(), nil
}

// GetListingSnapshot copies the listing and its bids under one read lock
func (s *Store) GetListingSnapshot(_ context.Context, id uuid.UUID) (*domain.ListingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return s.snapshotLocked(l), nil
}

// GetActiveSnapshots returns open listings, newest first
func (s *Store) GetActiveSnapshots(_ context.Context) ([]*domain.ListingSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ListingSnapshot
	for _, l := range s.listings {
		if l.Active {
			out = append(out, s.snapshotLocked(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Listing.CreatedAt.After(out[j].Listing.CreatedAt)
	})
	return out, nil
}

// callers hold s.mu
func (s *Store) snapshotLocked(l *domain.Listing) *domain.ListingSnapshot {
	return &domain.ListingSnapshot{Listing: l.Clone(), Bids: copyBids(s.bids[l.ID])}
}

func (s *Store) CompareAndUpdatePrice(_ context.Context, id uuid.UUID, expected *decimal.Decimal, bid *domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return domain.ErrListingNotFound
	}
	if !l.Active {
		return domain.ErrListingInactive
	}
	if !samePrice(l.CurrentPrice, expected) {
		return domain.ErrPriceConflict
	}

	stored := *bid
	l.ApplyBid(&stored)
	s.bids[id] = append(s.bids[id], &stored)
	return nil
}

func (s *Store) CloseListing(_ context.Context, id uuid.UUID, expected *decimal.Decimal, winnerID *uuid.UUID, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[id]
	if !ok {
		return domain.ErrListingNotFound
	}
	if !l.Active {
		return domain.ErrAlreadyClosed
	}
	if !samePrice(l.CurrentPrice, expected) {
		return domain.ErrPriceConflict
	}
	l.ApplyClose(winnerID, closedAt)
	return nil
}

func (s *Store) GetHighestBid(_ context.Context, listingID uuid.UUID) (*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	highest := domain.HighestOf(s.bids[listingID])
	if highest == nil {
		return nil, nil
	}
	b := *highest
	return &b, nil
}

func (s *Store) GetBidsByListingID(_ context.Context, listingID uuid.UUID) ([]*domain.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyBids(s.bids[listingID]), nil
}

func copyBids(bids []*domain.Bid) []*domain.Bid {
	out := make([]*domain.Bid, 0, len(bids))
	for _, b := range bids {
		c := *b
		out = append(out, &c)
	}
	return out
}

func samePrice(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
