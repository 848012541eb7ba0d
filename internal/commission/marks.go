package commission

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Marks records what has already been paid to a member so repeated triggers
// can never pay the same event twice: PaidPairs is the high-water mark of
// matched left/right pairs, AwardedRank the highest rank index whose bonus
// was paid (-1 for none).
type Marks struct {
	AccountID   string
	PaidPairs   int64
	AwardedRank int
}

// MarkStore persists payout high-water marks. Claims read and advance a mark
// as one atomic step: concurrent claimers for the same span see exactly one
// winner, so the engine can credit whatever a claim returned without a
// read-then-advance race paying the same pairs twice.
type MarkStore interface {
	Get(ctx context.Context, accountID string) (Marks, error)
	// ClaimPairs raises the paid-pair mark to upTo and returns how many pairs
	// that newly claimed. Zero when the mark is already at or past upTo.
	ClaimPairs(ctx context.Context, accountID string, upTo int64) (int64, error)
	// ClaimRank claims the bonus for one rank tier, reporting whether this
	// caller won it. The mark never lowers.
	ClaimRank(ctx context.Context, accountID string, rankIndex int) (bool, error)
}

type memoryMarkStore struct {
	mu    sync.RWMutex
	marks map[string]Marks
}

// NewMemoryMarkStore builds an in-memory mark store for tests and dev mode.
func NewMemoryMarkStore() MarkStore {
	return &memoryMarkStore{marks: make(map[string]Marks)}
}

func (s *memoryMarkStore) Get(_ context.Context, accountID string) (Marks, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.marks[accountID]
	if !ok {
		return Marks{AccountID: accountID, AwardedRank: -1}, nil
	}
	return m, nil
}

func (s *memoryMarkStore) ClaimPairs(_ context.Context, accountID string, upTo int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.marks[accountID]
	if !ok {
		m = Marks{AccountID: accountID, AwardedRank: -1}
	}
	if upTo <= m.PaidPairs {
		return 0, nil
	}
	claimed := upTo - m.PaidPairs
	m.PaidPairs = upTo
	s.marks[accountID] = m
	return claimed, nil
}

func (s *memoryMarkStore) ClaimRank(_ context.Context, accountID string, rankIndex int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.marks[accountID]
	if !ok {
		m = Marks{AccountID: accountID, AwardedRank: -1}
	}
	if rankIndex <= m.AwardedRank {
		return false, nil
	}
	m.AwardedRank = rankIndex
	s.marks[accountID] = m
	return true, nil
}

// PostgresMarkStore persists marks in PostgreSQL. Claims lock the marks row
// FOR UPDATE for the read-compare-write, the same serialization the ledger
// uses for wallet rows.
type PostgresMarkStore struct {
	db *pgxpool.Pool
}

// NewPostgresMarkStore constructs a Postgres-backed mark store.
func NewPostgresMarkStore(db *pgxpool.Pool) *PostgresMarkStore {
	return &PostgresMarkStore{db: db}
}

// Get fetches the marks row, defaulting to zero marks when absent.
func (s *PostgresMarkStore) Get(ctx context.Context, accountID string) (Marks, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return Marks{}, err
	}
	m := Marks{AccountID: accountID, AwardedRank: -1}
	err = s.db.QueryRow(ctx, `SELECT paid_pairs, awarded_rank FROM commission_marks WHERE account_id = $1`, id).
		Scan(&m.PaidPairs, &m.AwardedRank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return m, nil
		}
		return Marks{}, err
	}
	return m, nil
}

// ClaimPairs atomically raises the paid-pair mark and returns the span won.
func (s *PostgresMarkStore) ClaimPairs(ctx context.Context, accountID string, upTo int64) (int64, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	current, err := lockMarksRow(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	if upTo <= current.PaidPairs {
		return 0, tx.Commit(ctx)
	}
	claimed := upTo - current.PaidPairs
	if _, err := tx.Exec(ctx, `UPDATE commission_marks SET paid_pairs = $2 WHERE account_id = $1`, id, upTo); err != nil {
		return 0, err
	}
	return claimed, tx.Commit(ctx)
}

// ClaimRank atomically claims one rank tier.
func (s *PostgresMarkStore) ClaimRank(ctx context.Context, accountID string, rankIndex int) (bool, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return false, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	current, err := lockMarksRow(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if rankIndex <= current.AwardedRank {
		return false, tx.Commit(ctx)
	}
	if _, err := tx.Exec(ctx, `UPDATE commission_marks SET awarded_rank = $2 WHERE account_id = $1`, id, rankIndex); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// lockMarksRow ensures the marks row exists and locks it for the duration of
// the claiming transaction.
func lockMarksRow(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Marks, error) {
	if _, err := tx.Exec(ctx, `INSERT INTO commission_marks (account_id, paid_pairs, awarded_rank)
        VALUES ($1, 0, -1)
        ON CONFLICT (account_id) DO NOTHING`, id); err != nil {
		return Marks{}, err
	}
	var m Marks
	m.AccountID = id.String()
	err := tx.QueryRow(ctx, `SELECT paid_pairs, awarded_rank FROM commission_marks WHERE account_id = $1 FOR UPDATE`, id).
		Scan(&m.PaidPairs, &m.AwardedRank)
	if err != nil {
		return Marks{}, err
	}
	return m, nil
}
