package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/auctionMarket/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const listingColumns = `id, title, description, category, image_url, starting_price::text, current_price::text,
        owner_id, active, winner_id, created_at, updated_at`

// ListingRepository implements domain.ListingRepository interface
type ListingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository creates a new instance of ListingRepository
func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

var _ domain.ListingRepository = (*ListingRepository)(nil)

func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	query := `
        INSERT INTO listings (id, title, description, category, image_url, starting_price, owner_id, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10)
    `
	_, err := r.pool.Exec(ctx, query,
		l.ID,
		l.Title,
		l.Description,
		l.Category,
		l.ImageURL,
		l.StartingPrice.String(),
		l.OwnerID,
		l.Active,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return domain.ErrDuplicateTitle
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	l, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

func activeListings(ctx context.Context, q querier) ([]*domain.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE active ORDER BY created_at DESC`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}
	defer rows.Close()

	var listings []*domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

// snapshotTx reads under one REPEATABLE READ snapshot, so a commit landing between
// the listing and bid queries is either fully visible or not at all
var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

func (r *ListingRepository) GetListingSnapshot(ctx context.Context, id uuid.UUID) (*domain.ListingSnapshot, error) {
	var snap *domain.ListingSnapshot
	err := pgx.BeginTxFunc(ctx, r.pool, snapshotTx, func(tx pgx.Tx) error {
		l, err := scanListing(tx.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrListingNotFound
			}
			return fmt.Errorf("get listing: %w", err)
		}
		bids, err := bidsByListing(ctx, tx, id)
		if err != nil {
			return err
		}
		snap = &domain.ListingSnapshot{Listing: l, Bids: bids}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *ListingRepository) GetActiveSnapshots(ctx context.Context) ([]*domain.ListingSnapshot, error) {
	var snaps []*domain.ListingSnapshot
	err := pgx.BeginTxFunc(ctx, r.pool, snapshotTx, func(tx pgx.Tx) error {
		listings, err := activeListings(ctx, tx)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*domain.ListingSnapshot, len(listings))
		for _, l := range listings {
			snap := &domain.ListingSnapshot{Listing: l}
			byID[l.ID] = snap
			snaps = append(snaps, snap)
		}

		rows, err := tx.Query(ctx, `
            SELECT b.id, b.listing_id, b.bidder_id, b.amount::text, b.created_at
            FROM bids b JOIN listings l ON l.id = b.listing_id
            WHERE l.active
            ORDER BY b.seq ASC
        `)
		if err != nil {
			return fmt.Errorf("query active bids: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			bid, err := scanBid(rows)
			if err != nil {
				return fmt.Errorf("scan bid: %w", err)
			}
			if snap, ok := byID[bid.ListingID]; ok {
				snap.Bids = append(snap.Bids, bid)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

// CompareAndUpdatePrice moves the price and inserts the bid in one transaction. The UPDATE
// carries the guard, so a concurrent writer in another process makes it touch zero rows.
func (r *ListingRepository) CompareAndUpdatePrice(ctx context.Context, id uuid.UUID, expected *decimal.Decimal, bid *domain.Bid) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE listings
            SET current_price = $2::numeric, updated_at = $4
            WHERE id = $1 AND active AND current_price IS NOT DISTINCT FROM $3::numeric
        `, id, bid.Amount.String(), decimalArg(expected), bid.CreatedAt)
		if err != nil {
			return fmt.Errorf("update listing price: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return guardFailure(ctx, tx, id, domain.ErrListingInactive)
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO bids (id, listing_id, bidder_id, amount, created_at)
            VALUES ($1, $2, $3, $4::numeric, $5)
        `, bid.ID, bid.ListingID, bid.BidderID, bid.Amount.String(), bid.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert bid: %w", err)
		}
		return nil
	})
}

func (r *ListingRepository) CloseListing(ctx context.Context, id uuid.UUID, expected *decimal.Decimal, winnerID *uuid.UUID, closedAt time.Time) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE listings
            SET active = FALSE, winner_id = $2, updated_at = $4
            WHERE id = $1 AND active AND current_price IS NOT DISTINCT FROM $3::numeric
        `, id, winnerID, decimalArg(expected), closedAt)
		if err != nil {
			return fmt.Errorf("close listing: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return guardFailure(ctx, tx, id, domain.ErrAlreadyClosed)
		}
		return nil
	})
}

// guardFailure explains why a guarded UPDATE touched no rows
func guardFailure(ctx context.Context, tx pgx.Tx, id uuid.UUID, inactive error) error {
	var active bool
	err := tx.QueryRow(ctx, `SELECT active FROM listings WHERE id = $1`, id).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("reload listing: %w", err)
	}
	if !active {
		return inactive
	}
	return domain.ErrPriceConflict
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	l := &domain.Listing{}
	var starting string
	var current *string // pointer to handle NULL
	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Description,
		&l.Category,
		&l.ImageURL,
		&starting,
		&current,
		&l.OwnerID,
		&l.Active,
		&l.WinnerID,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if l.StartingPrice, err = decimal.NewFromString(starting); err != nil {
		return nil, fmt.Errorf("parse starting price: %w", err)
	}
	if l.CurrentPrice, err = parseNullableDecimal(current); err != nil {
		return nil, err
	}
	return l, nil
}
