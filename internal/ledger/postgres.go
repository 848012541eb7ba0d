package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists wallets and entries in PostgreSQL. Transfers take a
// row-level lock on the wallet so concurrent mutations of the same wallet are
// serialized.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger implementation.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Transfer applies a balance mutation and appends the matching entry in one
// transaction.
func (s *PostgresStore) Transfer(ctx context.Context, input TransferInput) (Entry, error) {
	if err := validateTransfer(input); err != nil {
		return Entry{}, err
	}

	accountID, err := uuid.Parse(input.AccountID)
	if err != nil {
		return Entry{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Wallets are created lazily; the On Conflict no-op keeps the insert
	// idempotent before the lock is taken.
	if input.Direction == Credit {
		if _, err := tx.Exec(ctx, `INSERT INTO wallets (account_id, wallet_type, balance, lifetime_earned, lifetime_withdrawn, created_at)
            VALUES ($1, $2, 0, 0, 0, $3)
            ON CONFLICT (account_id, wallet_type) DO NOTHING`, accountID, input.WalletType, time.Now().UTC()); err != nil {
			return Entry{}, err
		}
	}

	var (
		balance           int64
		lifetimeEarned    int64
		lifetimeWithdrawn int64
	)
	row := tx.QueryRow(ctx, `SELECT balance, lifetime_earned, lifetime_withdrawn FROM wallets
        WHERE account_id = $1 AND wallet_type = $2 FOR UPDATE`, accountID, input.WalletType)
	if err := row.Scan(&balance, &lifetimeEarned, &lifetimeWithdrawn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if input.Direction == Debit {
				return Entry{}, ErrInsufficientBalance
			}
			return Entry{}, ErrWalletNotFound
		}
		return Entry{}, err
	}

	before := balance
	switch input.Direction {
	case Credit:
		balance += input.Amount
		if earningCategory(input.Category) {
			lifetimeEarned += input.Amount
		}
	case Debit:
		if balance < input.Amount {
			return Entry{}, ErrInsufficientBalance
		}
		balance -= input.Amount
		if input.Category == CategoryWithdrawal {
			lifetimeWithdrawn += input.Amount
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1, lifetime_earned = $2, lifetime_withdrawn = $3
        WHERE account_id = $4 AND wallet_type = $5`, balance, lifetimeEarned, lifetimeWithdrawn, accountID, input.WalletType); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:            uuid.New().String(),
		AccountID:     input.AccountID,
		WalletType:    input.WalletType,
		Direction:     input.Direction,
		Amount:        input.Amount,
		BalanceBefore: before,
		BalanceAfter:  balance,
		Category:      input.Category,
		Reference:     input.Reference,
		CreatedAt:     time.Now().UTC(),
	}

	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, account_id, wallet_type, direction, amount, balance_before, balance_after, category, reference, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.MustParse(entry.ID), accountID, entry.WalletType, entry.Direction, entry.Amount, entry.BalanceBefore, entry.BalanceAfter, entry.Category, entry.Reference, entry.CreatedAt); err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}

	return entry, nil
}

// Wallet fetches the wallet row for an account and type.
func (s *PostgresStore) Wallet(ctx context.Context, accountID string, walletType WalletType) (Wallet, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return Wallet{}, err
	}
	row := s.db.QueryRow(ctx, `SELECT balance, lifetime_earned, lifetime_withdrawn, created_at FROM wallets
        WHERE account_id = $1 AND wallet_type = $2`, id, walletType)
	w := Wallet{AccountID: accountID, Type: walletType}
	var createdAt time.Time
	if err := row.Scan(&w.Balance, &w.LifetimeEarned, &w.LifetimeWithdrawn, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.CreatedAt = createdAt.UTC()
	return w, nil
}

// Balance returns the current wallet balance, zero when no wallet exists yet.
func (s *PostgresStore) Balance(ctx context.Context, accountID string, walletType WalletType) (int64, error) {
	w, err := s.Wallet(ctx, accountID, walletType)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return w.Balance, nil
}

// Entries lists the account's ledger entries in insertion order.
func (s *PostgresStore) Entries(ctx context.Context, accountID string) ([]Entry, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT id, wallet_type, direction, amount, balance_before, balance_after, category, reference, created_at
        FROM entries WHERE account_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entryID   uuid.UUID
			createdAt time.Time
			e         Entry
		)
		if err := rows.Scan(&entryID, &e.WalletType, &e.Direction, &e.Amount, &e.BalanceBefore, &e.BalanceAfter, &e.Category, &e.Reference, &createdAt); err != nil {
			return nil, err
		}
		e.ID = entryID.String()
		e.AccountID = accountID
		e.CreatedAt = createdAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// EarningsTotal sums income credits derived from the entry log.
func (s *PostgresStore) EarningsTotal(ctx context.Context, accountID string) (int64, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return 0, err
	}
	var total int64
	err = s.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM entries
        WHERE account_id = $1 AND direction = 'credit'
        AND category IN ('direct_income', 'matching_income', 'rank_bonus', 'epin_redeem')`, id).Scan(&total)
	return total, err
}

// SumByCategory totals entry amounts for the account and category.
func (s *PostgresStore) SumByCategory(ctx context.Context, accountID string, category Category) (int64, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return 0, err
	}
	var total int64
	err = s.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM entries
        WHERE account_id = $1 AND category = $2`, id, category).Scan(&total)
	return total, err
}
