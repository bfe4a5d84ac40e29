package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS users (
		email         TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		status        TEXT NOT NULL,
		created_at    INTEGER NOT NULL,
		approved_at   INTEGER
	);`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT email, password_hash, status, created_at, approved_at
	FROM users
	WHERE email = ?`, NormalizeEmail(email))

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT email, password_hash, status, created_at, approved_at
	FROM users
	ORDER BY created_at ASC, email ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Create inserts u and returns ErrExists when the email is taken.
func (s *SQLiteStore) Create(ctx context.Context, u *User) error {
	if u == nil {
		return errors.New("nil user")
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO users (email, password_hash, status, created_at, approved_at)
	VALUES (?, ?, ?, ?, ?)`,
		NormalizeEmail(u.Email), u.PasswordHash, string(u.Status), u.CreatedAt.UnixMilli(), nullMillis(u.ApprovedAt))
	if isUniqueViolation(err) {
		return ErrExists
	}
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, u *User) error {
	if u == nil {
		return errors.New("nil user")
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO users (email, password_hash, status, created_at, approved_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(email) DO UPDATE SET
		password_hash = excluded.password_hash,
		status        = excluded.status,
		approved_at   = excluded.approved_at`,
		NormalizeEmail(u.Email), u.PasswordHash, string(u.Status), u.CreatedAt.UnixMilli(), nullMillis(u.ApprovedAt))
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE email = ?`, NormalizeEmail(email))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u          User
		status     string
		createdAt  int64
		approvedAt sql.NullInt64
	)
	if err := row.Scan(&u.Email, &u.PasswordHash, &status, &createdAt, &approvedAt); err != nil {
		return nil, err
	}
	u.Status = Status(status)
	u.CreatedAt = time.UnixMilli(createdAt)
	if approvedAt.Valid {
		t := time.UnixMilli(approvedAt.Int64)
		u.ApprovedAt = &t
	}
	return &u, nil
}
