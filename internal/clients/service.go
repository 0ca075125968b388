// Package clients manages VPN certificate users: the union of the CA's
// valid certificates, operator metadata and live connection state.
package clients

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/akellavk/openvpn-dashboard/internal/easyrsa"
	"github.com/akellavk/openvpn-dashboard/internal/openvpn"
	"github.com/akellavk/openvpn-dashboard/internal/store"
)

var (
	ErrInvalidCommonName = errors.New("invalid common name")

	// Common names end up as subprocess arguments and certificate
	// subjects; keep them to a safe charset.
	commonNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)
)

// Client is one certificate user as shown on the dashboard.
type Client struct {
	CommonName  string `json:"common_name"`
	Email       string `json:"email"`
	Description string `json:"description"`
	Connected   bool   `json:"is_connected"`
}

// SnapshotSource provides the latest parsed status snapshot.
type SnapshotSource interface {
	Snapshot() openvpn.Snapshot
}

// MetaStore is the metadata slice of the persistence layer.
type MetaStore interface {
	UpsertClientMeta(ctx context.Context, meta store.ClientMeta) error
	DeleteClientMeta(ctx context.Context, commonName string) error
	ListClientMeta(ctx context.Context) ([]store.ClientMeta, error)
}

type Service struct {
	ca   easyrsa.CA
	meta MetaStore
	live SnapshotSource
}

func NewService(ca easyrsa.CA, meta MetaStore, live SnapshotSource) *Service {
	return &Service{ca: ca, meta: meta, live: live}
}

// List returns all valid certificate users with their metadata and a
// connected flag derived from the latest snapshot.
func (s *Service) List(ctx context.Context) ([]Client, error) {
	certs, err := s.ca.ListCertificates()
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}

	metas, err := s.meta.ListClientMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("list client metadata: %w", err)
	}
	metaByName := make(map[string]store.ClientMeta, len(metas))
	for _, m := range metas {
		metaByName[m.CommonName] = m
	}

	connected := make(map[string]bool)
	for _, sess := range s.live.Snapshot().Sessions {
		connected[sess.CommonName] = true
	}

	result := make([]Client, 0, len(certs))
	for _, cert := range certs {
		c := Client{
			CommonName: cert.CommonName,
			Connected:  connected[cert.CommonName],
		}
		if m, ok := metaByName[cert.CommonName]; ok {
			c.Email = m.Email
			c.Description = m.Description
		}
		result = append(result, c)
	}
	return result, nil
}

// Add issues a certificate for a new user and stores its metadata.
func (s *Service) Add(ctx context.Context, commonName, email, description string) error {
	if !commonNamePattern.MatchString(commonName) {
		return ErrInvalidCommonName
	}

	if err := s.ca.CreateClient(ctx, commonName, email); err != nil {
		return err
	}

	if err := s.meta.UpsertClientMeta(ctx, store.ClientMeta{
		CommonName:  commonName,
		Email:       email,
		Description: description,
	}); err != nil {
		return fmt.Errorf("save metadata for %s: %w", commonName, err)
	}
	return nil
}

// Revoke invalidates a user's certificate and drops its metadata.
func (s *Service) Revoke(ctx context.Context, commonName string) error {
	if !commonNamePattern.MatchString(commonName) {
		return ErrInvalidCommonName
	}

	if err := s.ca.RevokeClient(ctx, commonName); err != nil {
		return err
	}

	if err := s.meta.DeleteClientMeta(ctx, commonName); err != nil {
		return fmt.Errorf("delete metadata for %s: %w", commonName, err)
	}
	return nil
}
