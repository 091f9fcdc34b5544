package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// BidRepository implements domain.BidRepository interface. Inserts happen in
// ListingRepository.CompareAndUpdatePrice, together with the price move.
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates new instance of BidRepository.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

var _ domain.BidRepository = (*BidRepository)(nil)

func (r *BidRepository) GetBidsByListingID(ctx context.Context, listingID uuid.UUID) ([]*domain.Bid, error) {
	return bidsByListing(ctx, r.pool, listingID)
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func bidsByListing(ctx context.Context, q querier, listingID uuid.UUID) ([]*domain.Bid, error) {
	query := `
        SELECT id, listing_id, bidder_id, amount::text, created_at
        FROM bids
        WHERE listing_id = $1
        ORDER BY seq ASC
    `
	rows, err := q.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("query bids: %w", err)
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}

// GetHighestBid breaks amount ties by insertion order, earliest wins
func (r *BidRepository) GetHighestBid(ctx context.Context, listingID uuid.UUID) (*domain.Bid, error) {
	query := `
        SELECT id, listing_id, bidder_id, amount::text, created_at
        FROM bids
        WHERE listing_id = $1
        ORDER BY amount DESC, seq ASC
        LIMIT 1
    `
	bid, err := scanBid(r.pool.QueryRow(ctx, query, listingID))
	if err != nil {
		//no bids for this listing
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get highest bid: %w", err)
	}
	return bid, nil
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	bid := &domain.Bid{}
	var amount string
	if err := row.Scan(&bid.ID, &bid.ListingID, &bid.BidderID, &amount, &bid.CreatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse bid amount: %w", err)
	}
	bid.Amount = d
	return bid, nil
}
