package store

import (
	"context"
	"fmt"
)

// ClientMeta is operator-maintained metadata attached to a certificate
// common name.
type ClientMeta struct {
	CommonName  string `json:"common_name"`
	Email       string `json:"email"`
	Description string `json:"description"`
}

func (s *Store) UpsertClientMeta(ctx context.Context, meta ClientMeta) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO clients (common_name, email, description) VALUES ($1, $2, $3)
		 ON CONFLICT (common_name) DO UPDATE SET email = $2, description = $3`,
		meta.CommonName, meta.Email, meta.Description)
	if err != nil {
		return fmt.Errorf("upsert client %s: %w", meta.CommonName, err)
	}
	return nil
}

func (s *Store) DeleteClientMeta(ctx context.Context, commonName string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM clients WHERE common_name = $1`, commonName)
	if err != nil {
		return fmt.Errorf("delete client %s: %w", commonName, err)
	}
	return nil
}

func (s *Store) ListClientMeta(ctx context.Context) ([]ClientMeta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT common_name, email, description FROM clients`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var metas []ClientMeta
	for rows.Next() {
		var m ClientMeta
		if err := rows.Scan(&m.CommonName, &m.Email, &m.Description); err != nil {
			return nil, fmt.Errorf("scan client row: %w", err)
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client rows: %w", err)
	}
	return metas, nil
}
