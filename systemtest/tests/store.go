package tests

import (
	"context"
	"testing"
	"time"

	"github.com/akellavk/openvpn-dashboard/internal/accounts"
	"github.com/akellavk/openvpn-dashboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSessionLifecycle walks one session through open -> traffic update ->
// close against a real database.
func TestSessionLifecycle(t *testing.T, st *store.Store) {
	ctx := context.Background()
	connectedAt := time.Now().UTC().Add(-30 * time.Minute).Truncate(time.Microsecond)
	observedAt := connectedAt.Add(time.Minute)

	require.NoError(t, st.CreateOpenSession(ctx, "lifecycle-alice", connectedAt, observedAt))

	open, err := st.OpenSessions(ctx)
	require.NoError(t, err)
	sess := findSession(t, open, "lifecycle-alice")
	assert.Equal(t, connectedAt, sess.ConnectedAt.UTC())
	assert.Nil(t, sess.DisconnectedAt)

	require.NoError(t, st.UpdateOpenTraffic(ctx, "lifecycle-alice", 2.00, 1.00, observedAt.Add(time.Minute)))

	open, err = st.OpenSessions(ctx)
	require.NoError(t, err)
	sess = findSession(t, open, "lifecycle-alice")
	assert.Equal(t, 2.00, sess.BytesReceived)
	assert.Equal(t, 1.00, sess.BytesSent)

	disconnectedAt := connectedAt.Add(28 * time.Minute)
	require.NoError(t, st.CloseSession(ctx, "lifecycle-alice", disconnectedAt, 28, 2.00, 1.00))

	open, err = st.OpenSessions(ctx)
	require.NoError(t, err)
	for _, s := range open {
		assert.NotEqual(t, "lifecycle-alice", s.CommonName)
	}

	all, err := st.ListSessions(ctx)
	require.NoError(t, err)
	sess = findSession(t, all, "lifecycle-alice")
	require.NotNil(t, sess.DisconnectedAt)
	assert.Equal(t, disconnectedAt, sess.DisconnectedAt.UTC())
	require.NotNil(t, sess.DurationMinutes)
	assert.Equal(t, int64(28), *sess.DurationMinutes)

	// A reconnect after close starts a fresh row.
	require.NoError(t, st.CreateOpenSession(ctx, "lifecycle-alice", disconnectedAt.Add(time.Minute), disconnectedAt.Add(time.Minute)))
	all, err = st.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, countSessions(all, "lifecycle-alice"))
}

// TestOpenSessionUniqueness verifies the schema rejects a second open row
// for the same identity.
func TestOpenSessionUniqueness(t *testing.T, st *store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, st.CreateOpenSession(ctx, "unique-bob", now, now))
	assert.Error(t, st.CreateOpenSession(ctx, "unique-bob", now.Add(time.Second), now.Add(time.Second)))
}

// TestCloseOnlyAffectsOpenRows verifies closed rows are immutable through
// the store API.
func TestCloseOnlyAffectsOpenRows(t *testing.T, st *store.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, st.CreateOpenSession(ctx, "immutable-carol", now.Add(-time.Hour), now))
	firstClose := now.Add(-30 * time.Minute)
	require.NoError(t, st.CloseSession(ctx, "immutable-carol", firstClose, 30, 1.00, 0.50))

	// Second close is a no-op: no open row remains.
	require.NoError(t, st.CloseSession(ctx, "immutable-carol", now, 60, 9.99, 9.99))
	require.NoError(t, st.UpdateOpenTraffic(ctx, "immutable-carol", 5.55, 5.55, now))

	all, err := st.ListSessions(ctx)
	require.NoError(t, err)
	sess := findSession(t, all, "immutable-carol")
	require.NotNil(t, sess.DisconnectedAt)
	assert.Equal(t, firstClose, sess.DisconnectedAt.UTC())
	assert.Equal(t, 1.00, sess.BytesReceived)
}

// TestClientMeta exercises the metadata upsert/delete path.
func TestClientMeta(t *testing.T, st *store.Store) {
	ctx := context.Background()

	require.NoError(t, st.UpsertClientMeta(ctx, store.ClientMeta{
		CommonName: "meta-dave", Email: "dave@example.com", Description: "laptop",
	}))
	require.NoError(t, st.UpsertClientMeta(ctx, store.ClientMeta{
		CommonName: "meta-dave", Email: "dave@example.com", Description: "desktop",
	}))

	metas, err := st.ListClientMeta(ctx)
	require.NoError(t, err)
	var found *store.ClientMeta
	for i := range metas {
		if metas[i].CommonName == "meta-dave" {
			found = &metas[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "desktop", found.Description)

	require.NoError(t, st.DeleteClientMeta(ctx, "meta-dave"))
}

// TestAccounts covers the migration-seeded admin and duplicate detection.
func TestAccounts(t *testing.T, st *store.Store) {
	ctx := context.Background()
	svc := accounts.NewService(st)

	acc, err := svc.Authenticate(ctx, "admin", "changeme")
	require.NoError(t, err)
	assert.Equal(t, accounts.RoleAdmin, acc.Role)

	_, err = svc.Authenticate(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, accounts.ErrInvalidCredentials)

	_, err = svc.Create(ctx, "operator", "s3cretpass", accounts.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "operator", "other", accounts.RoleAdmin)
	assert.ErrorIs(t, err, accounts.ErrUsernameExists)
}

func findSession(t *testing.T, sessions []store.Session, commonName string) store.Session {
	t.Helper()
	for _, s := range sessions {
		if s.CommonName == commonName {
			return s
		}
	}
	t.Fatalf("session %s not found", commonName)
	return store.Session{}
}

func countSessions(sessions []store.Session, commonName string) int {
	n := 0
	for _, s := range sessions {
		if s.CommonName == commonName {
			n++
		}
	}
	return n
}
