package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// QuoteStore implements domain.QuoteStore using PostgreSQL. Each row is
// one produced payload together with the pricing figures it carried, the
// audit trail revalidated against on-chain executions.
type QuoteStore struct {
	pool *pgxpool.Pool
}

// NewQuoteStore creates a new QuoteStore backed by the given connection pool.
func NewQuoteStore(pool *pgxpool.Pool) *QuoteStore {
	return &QuoteStore{pool: pool}
}

const quoteColumns = `id, session_id, market_address, funding_network, funding_asset,
	gross_amount, net_amount, yes_amount, no_amount, draw_amount, payload, created_at`

// Insert persists one produced quote and returns its row ID.
func (s *QuoteStore) Insert(ctx context.Context, rec domain.QuoteRecord) (int64, error) {
	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal quote payload: %w", err)
	}

	const query = `
		INSERT INTO quotes (session_id, market_address, funding_network, funding_asset,
			gross_amount, net_amount, yes_amount, no_amount, draw_amount, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	var id int64
	err = s.pool.QueryRow(ctx, query,
		rec.SessionID, rec.MarketAddress, rec.FundingNetwork, rec.FundingAsset,
		rec.GrossAmount, rec.NetAmount, rec.YesAmount, rec.NoAmount, rec.DrawAmount,
		payloadJSON,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert quote for %s: %w", rec.MarketAddress, err)
	}
	return id, nil
}

// List returns quotes for one market with pagination and optional time
// filtering, newest first.
func (s *QuoteStore) List(ctx context.Context, market string, opts domain.ListOpts) ([]domain.QuoteRecord, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE market_address = $1`
	args := []any{market}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list quotes for %s: %w", market, err)
	}
	defer rows.Close()

	return scanQuotes(rows)
}

// ListBefore returns all quotes created strictly before the cutoff,
// oldest first. The archiver streams these into blob storage.
func (s *QuoteStore) ListBefore(ctx context.Context, before time.Time) ([]domain.QuoteRecord, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE created_at < $1 ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list quotes before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return scanQuotes(rows)
}

// DeleteBefore removes quotes created strictly before the cutoff and
// returns the number of deleted rows.
func (s *QuoteStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quotes WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete quotes before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func scanQuotes(rows pgx.Rows) ([]domain.QuoteRecord, error) {
	var recs []domain.QuoteRecord
	for rows.Next() {
		var rec domain.QuoteRecord
		var payloadJSON []byte

		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.MarketAddress, &rec.FundingNetwork, &rec.FundingAsset,
			&rec.GrossAmount, &rec.NetAmount, &rec.YesAmount, &rec.NoAmount, &rec.DrawAmount,
			&payloadJSON, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan quote: %w", err)
		}

		if err := json.Unmarshal(payloadJSON, &rec.Payload); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal quote payload: %w", err)
		}

		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list quotes rows: %w", err)
	}
	return recs, nil
}

// Compile-time interface check.
var _ domain.QuoteStore = (*QuoteStore)(nil)
