package account

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore persists accounts and identities in Postgres. The
// uniqueness invariants live in the schema: one account per email, one
// account per (provider, provider_user_id) pair.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Account, error) {
	return s.loadOne(ctx, `
		SELECT id, email, name, avatar_url, role, last_login_at, created_at
		FROM accounts
		WHERE id = $1
	`, id)
}

func (s *PostgresStore) FindByIdentity(ctx context.Context, provider, subjectID string) (*Account, error) {
	return s.loadOne(ctx, `
		SELECT a.id, a.email, a.name, a.avatar_url, a.role, a.last_login_at, a.created_at
		FROM accounts a
		JOIN identities i ON i.account_id = a.id
		WHERE i.provider = $1
		  AND i.provider_user_id = $2
	`, provider, subjectID)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.loadOne(ctx, `
		SELECT id, email, name, avatar_url, role, last_login_at, created_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, email)
}

func (s *PostgresStore) loadOne(ctx context.Context, query string, args ...any) (*Account, error) {
	var (
		a         Account
		lastLogin sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.Email, &a.Name, &a.AvatarURL, &a.Role, &lastLogin, &a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		a.LastLoginAt = lastLogin.Time
	}

	a.Identities = make(map[string]string)
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, provider_user_id
		FROM identities
		WHERE account_id = $1
	`, a.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var provider, subjectID string
		if err := rows.Scan(&provider, &subjectID); err != nil {
			return nil, err
		}
		a.Identities[provider] = subjectID
	}
	return &a, rows.Err()
}

// Create inserts the account and its identities in one transaction.
// A unique-constraint violation on either table surfaces as
// ErrDuplicate with nothing committed.
func (s *PostgresStore) Create(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, email, name, avatar_url, role, last_login_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Email, a.Name, a.AvatarURL, a.Role, nullTime(a.LastLoginAt), a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	for provider, subjectID := range a.Identities {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO identities (account_id, provider, provider_user_id)
			VALUES ($1, $2, $3)
		`, a.ID, provider, subjectID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
	}

	return tx.Commit()
}

// Save updates mutable account fields and reconciles the identity set.
func (s *PostgresStore) Save(ctx context.Context, a *Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET email = $2, name = $3, avatar_url = $4, role = $5,
		    last_login_at = $6, updated_at = NOW()
		WHERE id = $1
	`, a.ID, a.Email, a.Name, a.AvatarURL, a.Role, nullTime(a.LastLoginAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM identities WHERE account_id = $1
	`, a.ID)
	if err != nil {
		return err
	}

	for provider, subjectID := range a.Identities {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO identities (account_id, provider, provider_user_id)
			VALUES ($1, $2, $3)
		`, a.ID, provider, subjectID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
	}

	return tx.Commit()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
