package network

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists placement nodes in PostgreSQL. Attach locks the
// parent row so concurrent placements under the same sponsor cannot both
// observe a free leg.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed placement store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateRoot inserts the first node of the tree.
func (s *PostgresStore) CreateRoot(ctx context.Context, accountID string) (Node, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return Node{}, err
	}
	node := Node{AccountID: accountID, JoinedAt: time.Now().UTC()}
	cmd, err := s.db.Exec(ctx, `INSERT INTO nodes (account_id, sponsor_id, parent_id, leg, left_count, right_count, joined_at)
        VALUES ($1, NULL, NULL, NULL, 0, 0, $2)
        ON CONFLICT (account_id) DO NOTHING`, id, node.JoinedAt)
	if err != nil {
		return Node{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Node{}, ErrAlreadyPlaced
	}
	return node, nil
}

// Attach places the account under the parent inside a single transaction.
func (s *PostgresStore) Attach(ctx context.Context, accountID, sponsorID, parentID string, requested Leg, strict bool) (PlacementResult, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return PlacementResult{}, err
	}
	sponsorUUID, err := uuid.Parse(sponsorID)
	if err != nil {
		return PlacementResult{}, err
	}
	parentUUID, err := uuid.Parse(parentID)
	if err != nil {
		return PlacementResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PlacementResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Lock the parent for the duration of the occupancy check and insert.
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT true FROM nodes WHERE account_id = $1 FOR UPDATE`, parentUUID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlacementResult{}, ErrSponsorNotFound
		}
		return PlacementResult{}, err
	}

	if err := tx.QueryRow(ctx, `SELECT true FROM nodes WHERE account_id = $1`, id).Scan(&exists); err == nil {
		return PlacementResult{}, ErrAlreadyPlaced
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return PlacementResult{}, err
	}

	taken := make(map[Leg]bool, 2)
	rows, err := tx.Query(ctx, `SELECT leg FROM nodes WHERE parent_id = $1`, parentUUID)
	if err != nil {
		return PlacementResult{}, err
	}
	for rows.Next() {
		var leg Leg
		if err := rows.Scan(&leg); err != nil {
			rows.Close()
			return PlacementResult{}, err
		}
		taken[leg] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return PlacementResult{}, err
	}

	leg := requested
	redirected := false
	switch {
	case taken[requested] && taken[requested.Opposite()]:
		return PlacementResult{}, ErrSponsorFull
	case taken[requested]:
		if strict {
			return PlacementResult{}, ErrLegOccupied
		}
		leg = requested.Opposite()
		redirected = true
	}

	node := Node{
		AccountID: accountID,
		SponsorID: sponsorID,
		ParentID:  parentID,
		Leg:       leg,
		JoinedAt:  time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx, `INSERT INTO nodes (account_id, sponsor_id, parent_id, leg, left_count, right_count, joined_at)
        VALUES ($1, $2, $3, $4, 0, 0, $5)`, id, sponsorUUID, parentUUID, leg, node.JoinedAt); err != nil {
		return PlacementResult{}, err
	}

	// Walk the placement chain to the root, bumping the side the new node
	// sits on relative to each ancestor.
	side := leg
	cur := parentUUID
	for {
		column := "left_count"
		if side == LegRight {
			column = "right_count"
		}
		if _, err := tx.Exec(ctx, `UPDATE nodes SET `+column+` = `+column+` + 1 WHERE account_id = $1`, cur); err != nil {
			return PlacementResult{}, err
		}

		var (
			parentOfCur *uuid.UUID
			legOfCur    *Leg
		)
		if err := tx.QueryRow(ctx, `SELECT parent_id, leg FROM nodes WHERE account_id = $1`, cur).Scan(&parentOfCur, &legOfCur); err != nil {
			return PlacementResult{}, err
		}
		if parentOfCur == nil {
			break
		}
		side = *legOfCur
		cur = *parentOfCur
	}

	if err := tx.Commit(ctx); err != nil {
		return PlacementResult{}, err
	}

	return PlacementResult{Node: node, Redirected: redirected}, nil
}

// Node fetches a placement node by account id.
func (s *PostgresStore) Node(ctx context.Context, accountID string) (Node, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return Node{}, ErrNodeNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT sponsor_id, parent_id, leg, left_count, right_count, joined_at
        FROM nodes WHERE account_id = $1`, id)
	return scanNode(row, accountID)
}

// Children returns the occupied legs directly under the parent.
func (s *PostgresStore) Children(ctx context.Context, parentID string) (map[Leg]Node, error) {
	id, err := uuid.Parse(parentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT account_id, sponsor_id, parent_id, leg, left_count, right_count, joined_at
        FROM nodes WHERE parent_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Leg]Node, 2)
	for rows.Next() {
		node, err := scanNodeRow(rows)
		if err != nil {
			return nil, err
		}
		out[node.Leg] = node
	}
	return out, rows.Err()
}

// DirectReferrals lists nodes sponsored by the account.
func (s *PostgresStore) DirectReferrals(ctx context.Context, sponsorID string) ([]Node, error) {
	id, err := uuid.Parse(sponsorID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT account_id, sponsor_id, parent_id, leg, left_count, right_count, joined_at
        FROM nodes WHERE sponsor_id = $1 ORDER BY joined_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Node
	for rows.Next() {
		node, err := scanNodeRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, rows.Err()
}

func scanNode(row pgx.Row, accountID string) (Node, error) {
	var (
		sponsorID *uuid.UUID
		parentID  *uuid.UUID
		leg       *Leg
		joinedAt  time.Time
		node      Node
	)
	if err := row.Scan(&sponsorID, &parentID, &leg, &node.LeftCount, &node.RightCount, &joinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Node{}, ErrNodeNotFound
		}
		return Node{}, err
	}
	node.AccountID = accountID
	if sponsorID != nil {
		node.SponsorID = sponsorID.String()
	}
	if parentID != nil {
		node.ParentID = parentID.String()
	}
	if leg != nil {
		node.Leg = *leg
	}
	node.JoinedAt = joinedAt.UTC()
	return node, nil
}

func scanNodeRow(rows pgx.Rows) (Node, error) {
	var (
		accountID uuid.UUID
		sponsorID *uuid.UUID
		parentID  *uuid.UUID
		leg       *Leg
		joinedAt  time.Time
		node      Node
	)
	if err := rows.Scan(&accountID, &sponsorID, &parentID, &leg, &node.LeftCount, &node.RightCount, &joinedAt); err != nil {
		return Node{}, err
	}
	node.AccountID = accountID.String()
	if sponsorID != nil {
		node.SponsorID = sponsorID.String()
	}
	if parentID != nil {
		node.ParentID = parentID.String()
	}
	if leg != nil {
		node.Leg = *leg
	}
	node.JoinedAt = joinedAt.UTC()
	return node, nil
}
