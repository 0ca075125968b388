package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Account is a dashboard login, unrelated to VPN certificate users.
type Account struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

func (s *Store) CreateAccount(ctx context.Context, username, passwordHash, role string) (Account, error) {
	var acc Account
	err := s.pool.QueryRow(ctx,
		`INSERT INTO accounts (username, password_hash, role) VALUES ($1, $2, $3)
		 RETURNING id, username, password_hash, role, created_at`,
		username, passwordHash, role).
		Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &acc.Role, &acc.CreatedAt)
	if err != nil {
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return acc, nil
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	var acc Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, created_at FROM accounts WHERE username = $1`,
		username).
		Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &acc.Role, &acc.CreatedAt)
	if err != nil {
		return Account{}, err
	}
	return acc, nil
}
