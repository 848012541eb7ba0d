package epin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists e-pin requests and pins in PostgreSQL. Status
// transitions are guarded compare-and-set updates; redemption additionally
// locks the pin row.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed e-pin store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateRequest inserts a pending request.
func (s *PostgresStore) CreateRequest(ctx context.Context, request Request) error {
	id, err := uuid.Parse(request.ID)
	if err != nil {
		return err
	}
	requester, err := uuid.Parse(request.RequesterID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO epin_requests (id, requester_id, quantity, face_value, package_name, payment_mode, external_tx_id, proof_ref, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, requester, request.Quantity, request.FaceValue, request.PackageName, request.PaymentMode, request.ExternalTxID, request.ProofRef, request.Status, request.CreatedAt.UTC())
	return err
}

// Request fetches a request by id.
func (s *PostgresStore) Request(ctx context.Context, id string) (Request, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrRequestNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, requester_id, quantity, face_value, package_name, payment_mode, external_tx_id, proof_ref, status, created_at, processed_at, processed_by
        FROM epin_requests WHERE id = $1`, requestID)
	return scanRequest(row)
}

// RequestsByStatus lists requests in the given status.
func (s *PostgresStore) RequestsByStatus(ctx context.Context, status RequestStatus) ([]Request, error) {
	rows, err := s.db.Query(ctx, `SELECT id, requester_id, quantity, face_value, package_name, payment_mode, external_tx_id, proof_ref, status, created_at, processed_at, processed_by
        FROM epin_requests WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, request)
	}
	return out, rows.Err()
}

// MarkRequest transitions a PENDING request to a terminal status.
func (s *PostgresStore) MarkRequest(ctx context.Context, id string, to RequestStatus, processedBy string, at time.Time) (Request, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrRequestNotFound
	}
	var processedByUUID *uuid.UUID
	if processedBy != "" {
		parsed, err := uuid.Parse(processedBy)
		if err != nil {
			return Request{}, err
		}
		processedByUUID = &parsed
	}

	cmd, err := s.db.Exec(ctx, `UPDATE epin_requests SET status = $1, processed_at = $2, processed_by = $3
        WHERE id = $4 AND status = $5`, to, at.UTC(), processedByUUID, requestID, RequestPending)
	if err != nil {
		return Request{}, err
	}
	if cmd.RowsAffected() == 0 {
		// Either absent or already processed; disambiguate for the caller.
		if _, err := s.Request(ctx, id); err != nil {
			return Request{}, err
		}
		return Request{}, ErrAlreadyProcessed
	}
	return s.Request(ctx, id)
}

// InsertPin inserts a freshly minted pin, failing with ErrCodeTaken on a
// code collision.
func (s *PostgresStore) InsertPin(ctx context.Context, pin Pin) error {
	generatedBy, err := uuid.Parse(pin.GeneratedBy)
	if err != nil {
		return err
	}
	var holder *uuid.UUID
	if pin.HolderID != "" {
		parsed, err := uuid.Parse(pin.HolderID)
		if err != nil {
			return err
		}
		holder = &parsed
	}
	cmd, err := s.db.Exec(ctx, `INSERT INTO epins (code, face_value, package_name, status, generated_by, holder_id, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (code) DO NOTHING`,
		pin.Code, pin.FaceValue, pin.PackageName, pin.Status, generatedBy, holder, pin.CreatedAt.UTC(), pin.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCodeTaken
	}
	return nil
}

// Pin fetches a pin by code.
func (s *PostgresStore) Pin(ctx context.Context, code string) (Pin, error) {
	row := s.db.QueryRow(ctx, `SELECT code, face_value, package_name, status, generated_by, holder_id, redeemed_by, created_at, expires_at, redeemed_at
        FROM epins WHERE code = $1`, code)
	return scanPin(row)
}

// PinsByHolder lists pins allocated to the holder.
func (s *PostgresStore) PinsByHolder(ctx context.Context, holderID string) ([]Pin, error) {
	id, err := uuid.Parse(holderID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT code, face_value, package_name, status, generated_by, holder_id, redeemed_by, created_at, expires_at, redeemed_at
        FROM epins WHERE holder_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Pin
	for rows.Next() {
		pin, err := scanPin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pin)
	}
	return out, rows.Err()
}

// MarkRedeemed flips an UNUSED pin to USED under a row lock.
func (s *PostgresStore) MarkRedeemed(ctx context.Context, code, redeemerID string, at time.Time) (Pin, error) {
	redeemer, err := uuid.Parse(redeemerID)
	if err != nil {
		return Pin{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Pin{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT code, face_value, package_name, status, generated_by, holder_id, redeemed_by, created_at, expires_at, redeemed_at
        FROM epins WHERE code = $1 FOR UPDATE`, code)
	pin, err := scanPin(row)
	if err != nil {
		return Pin{}, err
	}

	switch pin.Status {
	case StatusUsed:
		return Pin{}, ErrAlreadyUsed
	case StatusExpired:
		return Pin{}, ErrExpired
	}
	if pin.HolderID != "" && pin.HolderID != redeemerID {
		return Pin{}, ErrNotAllocated
	}

	if _, err := tx.Exec(ctx, `UPDATE epins SET status = $1, redeemed_by = $2, redeemed_at = $3 WHERE code = $4`,
		StatusUsed, redeemer, at.UTC(), code); err != nil {
		return Pin{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Pin{}, err
	}

	pin.Status = StatusUsed
	pin.RedeemedBy = redeemerID
	pin.RedeemedAt = at.UTC()
	return pin, nil
}

// ExpireDue flips lapsed UNUSED pins to EXPIRED.
func (s *PostgresStore) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	cmd, err := s.db.Exec(ctx, `UPDATE epins SET status = $1 WHERE status = $2 AND expires_at < $3`,
		StatusExpired, StatusUnused, now.UTC())
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var (
		id          uuid.UUID
		requester   uuid.UUID
		processedBy *uuid.UUID
		createdAt   time.Time
		processedAt *time.Time
		request     Request
	)
	if err := row.Scan(&id, &requester, &request.Quantity, &request.FaceValue, &request.PackageName, &request.PaymentMode, &request.ExternalTxID, &request.ProofRef, &request.Status, &createdAt, &processedAt, &processedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrRequestNotFound
		}
		return Request{}, err
	}
	request.ID = id.String()
	request.RequesterID = requester.String()
	request.CreatedAt = createdAt.UTC()
	if processedAt != nil {
		request.ProcessedAt = processedAt.UTC()
	}
	if processedBy != nil {
		request.ProcessedBy = processedBy.String()
	}
	return request, nil
}

func scanPin(row pgx.Row) (Pin, error) {
	var (
		generatedBy uuid.UUID
		holder      *uuid.UUID
		redeemedBy  *uuid.UUID
		createdAt   time.Time
		expiresAt   time.Time
		redeemedAt  *time.Time
		pin         Pin
	)
	if err := row.Scan(&pin.Code, &pin.FaceValue, &pin.PackageName, &pin.Status, &generatedBy, &holder, &redeemedBy, &createdAt, &expiresAt, &redeemedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pin{}, ErrInvalidCode
		}
		return Pin{}, err
	}
	pin.GeneratedBy = generatedBy.String()
	if holder != nil {
		pin.HolderID = holder.String()
	}
	if redeemedBy != nil {
		pin.RedeemedBy = redeemedBy.String()
	}
	pin.CreatedAt = createdAt.UTC()
	pin.ExpiresAt = expiresAt.UTC()
	if redeemedAt != nil {
		pin.RedeemedAt = redeemedAt.UTC()
	}
	return pin, nil
}
