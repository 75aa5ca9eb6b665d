package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"domainSwap/internal/model"
)

// Store provides Postgres persistence for pools, positions, and the
// transaction journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// SavePool inserts or updates a pool record. The update is guarded on
// last_updated so an older snapshot racing a newer one never wins.
func (s *Store) SavePool(ctx context.Context, p model.Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			pool_id, domain_asset, base_token, domain_reserve, base_reserve,
			total_shares, fee_rate, created_at, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (pool_id)
		DO UPDATE SET
			domain_reserve = EXCLUDED.domain_reserve,
			base_reserve = EXCLUDED.base_reserve,
			total_shares = EXCLUDED.total_shares,
			fee_rate = EXCLUDED.fee_rate,
			last_updated = EXCLUDED.last_updated
		WHERE pools.last_updated <= EXCLUDED.last_updated
	`,
		p.PoolID,
		p.DomainAsset,
		p.BaseToken,
		p.DomainReserve,
		p.BaseReserve,
		p.TotalShares,
		p.FeeRate,
		p.CreatedAt,
		p.LastUpdated,
	)
	return err
}

// LoadPool returns the pool record for an id.
func (s *Store) LoadPool(ctx context.Context, poolID string) (model.Pool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT pool_id, domain_asset, base_token, domain_reserve, base_reserve,
		       total_shares, fee_rate, created_at, last_updated
		FROM pools WHERE pool_id = $1
	`, poolID)

	var p model.Pool
	err := row.Scan(
		&p.PoolID, &p.DomainAsset, &p.BaseToken, &p.DomainReserve, &p.BaseReserve,
		&p.TotalShares, &p.FeeRate, &p.CreatedAt, &p.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, model.ErrPoolNotFound
		}
		return model.Pool{}, err
	}
	return p, nil
}

// ListPools returns all pool records.
func (s *Store) ListPools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_id, domain_asset, base_token, domain_reserve, base_reserve,
		       total_shares, fee_rate, created_at, last_updated
		FROM pools ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Pool
	for rows.Next() {
		var p model.Pool
		if err := rows.Scan(
			&p.PoolID, &p.DomainAsset, &p.BaseToken, &p.DomainReserve, &p.BaseReserve,
			&p.TotalShares, &p.FeeRate, &p.CreatedAt, &p.LastUpdated,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePosition inserts or updates a position record.
func (s *Store) SavePosition(ctx context.Context, pos model.Position) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO positions (
			position_id, pool_id, owner, shares, principal_domain,
			principal_base, rewards_claimed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (pool_id, owner)
		DO UPDATE SET
			shares = EXCLUDED.shares,
			principal_domain = EXCLUDED.principal_domain,
			principal_base = EXCLUDED.principal_base,
			rewards_claimed = EXCLUDED.rewards_claimed
	`,
		pos.PositionID,
		pos.PoolID,
		pos.Owner,
		pos.Shares,
		pos.PrincipalDomain,
		pos.PrincipalBase,
		pos.RewardsClaimed,
		pos.CreatedAt,
	)
	return err
}

// LoadPosition returns the position of an owner in a pool.
func (s *Store) LoadPosition(ctx context.Context, poolID, owner string) (model.Position, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT position_id, pool_id, owner, shares, principal_domain,
		       principal_base, rewards_claimed, created_at
		FROM positions WHERE pool_id = $1 AND owner = $2
	`, poolID, owner)

	var pos model.Position
	err := row.Scan(
		&pos.PositionID, &pos.PoolID, &pos.Owner, &pos.Shares, &pos.PrincipalDomain,
		&pos.PrincipalBase, &pos.RewardsClaimed, &pos.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Position{}, model.ErrPositionNotFound
		}
		return model.Position{}, err
	}
	return pos, nil
}

// DeletePosition removes a position record.
func (s *Store) DeletePosition(ctx context.Context, poolID, owner string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE pool_id = $1 AND owner = $2`, poolID, owner)
	return err
}

// ListPoolPositions returns all positions in a pool.
func (s *Store) ListPoolPositions(ctx context.Context, poolID string) ([]model.Position, error) {
	return s.listPositions(ctx, `
		SELECT position_id, pool_id, owner, shares, principal_domain,
		       principal_base, rewards_claimed, created_at
		FROM positions WHERE pool_id = $1 ORDER BY created_at
	`, poolID)
}

// ListOwnerPositions returns all positions held by an owner.
func (s *Store) ListOwnerPositions(ctx context.Context, owner string) ([]model.Position, error) {
	return s.listPositions(ctx, `
		SELECT position_id, pool_id, owner, shares, principal_domain,
		       principal_base, rewards_claimed, created_at
		FROM positions WHERE owner = $1 ORDER BY created_at
	`, owner)
}

func (s *Store) listPositions(ctx context.Context, query string, arg any) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Position
	for rows.Next() {
		var pos model.Position
		if err := rows.Scan(
			&pos.PositionID, &pos.PoolID, &pos.Owner, &pos.Shares, &pos.PrincipalDomain,
			&pos.PrincipalBase, &pos.RewardsClaimed, &pos.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

// Append writes a transaction record to the trades journal table.
func (s *Store) Append(ctx context.Context, rec model.TransactionRecord) error {
	refs := rec.TransferRefs
	if refs == nil {
		refs = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (
			op_type, pool_id, actor, domain_amount, base_amount,
			shares, fee_amount, transfer_refs, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.Type,
		rec.PoolID,
		rec.Actor,
		rec.DomainAmount,
		rec.BaseAmount,
		rec.Shares,
		rec.FeeAmount,
		refs,
		rec.Timestamp,
	)
	return err
}
