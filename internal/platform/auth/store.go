package auth

import (
	"context"
	"database/sql"
	"errors"

	"ResumeSection-backend/internal/platform/db"
)

type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, a *Account) (int64, error)
	Update(ctx context.Context, a *Account) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type Store struct{ db db.DBTX }

func NewStore(conn db.DBTX) *Store {
	return &Store{db: conn}
}

const accountColumns = `id, username, password_hash, role, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*Account, error) {
	var (
		a    Account
		role string
		at   db.Timestamp
	)
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &role, &at); err != nil {
		return nil, err
	}
	a.Role = Role(role)
	a.CreatedAt = at.Time
	return &a, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ? LIMIT 1`
	a, err := scanAccount(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE username = ? LIMIT 1`
	a, err := scanAccount(s.db.QueryRowContext(ctx, q, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *Store) List(ctx context.Context) ([]Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts ORDER BY id ASC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}

func (s *Store) Create(ctx context.Context, a *Account) (int64, error) {
	const q = `
INSERT INTO accounts (username, password_hash, role, created_at)
VALUES (?, ?, ?, ?)
`
	res, err := s.db.ExecContext(ctx, q, a.Username, a.PasswordHash, string(a.Role), db.NewTimestamp(a.CreatedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) Update(ctx context.Context, a *Account) (int64, error) {
	const q = `UPDATE accounts SET username = ?, password_hash = ?, role = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, a.Username, a.PasswordHash, string(a.Role), a.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, id int64) (int64, error) {
	const q = `DELETE FROM accounts WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
