package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/akellavk/openvpn-dashboard/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const RoleAdmin = "admin"

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Create registers a new dashboard account with a hashed password.
func (s *Service) Create(ctx context.Context, username, password, role string) (store.Account, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return store.Account{}, fmt.Errorf("hash password: %w", err)
	}

	acc, err := s.store.CreateAccount(ctx, username, hash, role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.Account{}, ErrUsernameExists
		}
		return store.Account{}, fmt.Errorf("create account: %w", err)
	}
	return acc, nil
}

// Authenticate verifies a username/password pair and returns the account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (store.Account, error) {
	acc, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Account{}, ErrInvalidCredentials
		}
		return store.Account{}, fmt.Errorf("query account: %w", err)
	}

	if !CheckPassword(password, acc.PasswordHash) {
		return store.Account{}, ErrInvalidCredentials
	}
	return acc, nil
}
