package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no account matched the lookup.
var ErrNotFound = errors.New("account not found")

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, account Account) error
	FindByID(ctx context.Context, id string) (Account, error)
	FindByUsername(ctx context.Context, username string) (Account, error)
	// FindByCode resolves an account by username, referral code or raw id,
	// in that order. Sponsor resolution during placement goes through here.
	FindByCode(ctx context.Context, code string) (Account, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	accountID, err := uuid.Parse(account.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts (id, username, referral_code, display_name, password_hash, role, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		accountID, account.Username, account.ReferralCode, account.DisplayName, account.PasswordHash, account.Role, account.Status, account.CreatedAt.UTC())
	return err
}

// FindByID fetches an account by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return r.scanOne(ctx, `SELECT id, username, referral_code, display_name, password_hash, role, status, created_at
        FROM accounts WHERE id = $1`, accountID)
}

// FindByUsername fetches an account by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (Account, error) {
	return r.scanOne(ctx, `SELECT id, username, referral_code, display_name, password_hash, role, status, created_at
        FROM accounts WHERE username = $1`, username)
}

// FindByCode resolves username, then referral code, then id. The lookups run
// in that order so a code matching one account's username and another's
// referral code always resolves to the username owner.
func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (Account, error) {
	account, err := r.FindByUsername(ctx, code)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}

	account, err = r.scanOne(ctx, `SELECT id, username, referral_code, display_name, password_hash, role, status, created_at
        FROM accounts WHERE referral_code = $1`, code)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Account{}, err
	}

	return r.FindByID(ctx, code)
}

func (r *PostgresRepository) scanOne(ctx context.Context, query string, args ...any) (Account, error) {
	row := r.db.QueryRow(ctx, query, args...)
	var (
		id        uuid.UUID
		createdAt time.Time
		account   Account
	)
	if err := row.Scan(&id, &account.Username, &account.ReferralCode, &account.DisplayName, &account.PasswordHash, &account.Role, &account.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	account.ID = id.String()
	account.CreatedAt = createdAt.UTC()
	return account, nil
}
