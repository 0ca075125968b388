// Package easyrsa manages VPN client certificates through the host's
// easy-rsa wrapper scripts and its index.txt database.
package easyrsa

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CA issues and revokes client certificates. The reconciliation core
// never touches this; it exists for the admin HTTP surface and is faked
// in tests.
type CA interface {
	CreateClient(ctx context.Context, commonName, email string) error
	RevokeClient(ctx context.Context, commonName string) error
	ListCertificates() ([]Certificate, error)
}

// ScriptCA shells out to the add/revoke wrapper scripts installed next
// to the OpenVPN server.
type ScriptCA struct {
	AddScript    string
	RevokeScript string
	IndexPath    string
}

func NewScriptCA(addScript, revokeScript, indexPath string) *ScriptCA {
	return &ScriptCA{
		AddScript:    addScript,
		RevokeScript: revokeScript,
		IndexPath:    indexPath,
	}
}

func (c *ScriptCA) CreateClient(ctx context.Context, commonName, email string) error {
	cmd := exec.CommandContext(ctx, c.AddScript, commonName, email)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("add client %s: %w: %s", commonName, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *ScriptCA) RevokeClient(ctx context.Context, commonName string) error {
	cmd := exec.CommandContext(ctx, c.RevokeScript, commonName)
	// The revoke script confirms interactively.
	cmd.Stdin = strings.NewReader("yes\n")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("revoke client %s: %w: %s", commonName, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *ScriptCA) ListCertificates() ([]Certificate, error) {
	return ParseIndex(c.IndexPath)
}
