package clients

import (
	"context"
	"testing"
	"time"

	"github.com/akellavk/openvpn-dashboard/internal/easyrsa"
	"github.com/akellavk/openvpn-dashboard/internal/openvpn"
	"github.com/akellavk/openvpn-dashboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCA struct {
	certs   []easyrsa.Certificate
	added   []string
	revoked []string
}

func (f *fakeCA) CreateClient(_ context.Context, commonName, _ string) error {
	f.added = append(f.added, commonName)
	f.certs = append(f.certs, easyrsa.Certificate{CommonName: commonName})
	return nil
}

func (f *fakeCA) RevokeClient(_ context.Context, commonName string) error {
	f.revoked = append(f.revoked, commonName)
	return nil
}

func (f *fakeCA) ListCertificates() ([]easyrsa.Certificate, error) {
	return f.certs, nil
}

type fakeMeta struct {
	metas map[string]store.ClientMeta
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{metas: make(map[string]store.ClientMeta)}
}

func (f *fakeMeta) UpsertClientMeta(_ context.Context, meta store.ClientMeta) error {
	f.metas[meta.CommonName] = meta
	return nil
}

func (f *fakeMeta) DeleteClientMeta(_ context.Context, commonName string) error {
	delete(f.metas, commonName)
	return nil
}

func (f *fakeMeta) ListClientMeta(context.Context) ([]store.ClientMeta, error) {
	var out []store.ClientMeta
	for _, m := range f.metas {
		out = append(out, m)
	}
	return out, nil
}

type fakeLive struct {
	snap openvpn.Snapshot
}

func (f *fakeLive) Snapshot() openvpn.Snapshot { return f.snap }

func TestList_MergesMetadataAndConnectedState(t *testing.T) {
	ca := &fakeCA{certs: []easyrsa.Certificate{
		{CommonName: "alice"},
		{CommonName: "bob"},
	}}
	meta := newFakeMeta()
	require.NoError(t, meta.UpsertClientMeta(context.Background(), store.ClientMeta{
		CommonName: "alice", Email: "alice@example.com", Description: "laptop",
	}))
	live := &fakeLive{snap: openvpn.Snapshot{
		Count: 1,
		Sessions: []openvpn.ActiveSession{
			{CommonName: "alice", ObservedAt: time.Now()},
		},
	}}

	svc := NewService(ca, meta, live)
	list, err := svc.List(context.Background())
	require.NoError(t, err)

	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].CommonName)
	assert.Equal(t, "alice@example.com", list[0].Email)
	assert.True(t, list[0].Connected)
	assert.Equal(t, "bob", list[1].CommonName)
	assert.Empty(t, list[1].Email)
	assert.False(t, list[1].Connected)
}

func TestAdd_IssuesCertAndStoresMetadata(t *testing.T) {
	ca := &fakeCA{}
	meta := newFakeMeta()
	svc := NewService(ca, meta, &fakeLive{})

	require.NoError(t, svc.Add(context.Background(), "carol", "carol@example.com", "phone"))
	assert.Equal(t, []string{"carol"}, ca.added)
	assert.Equal(t, "carol@example.com", meta.metas["carol"].Email)
}

func TestAdd_RejectsUnsafeCommonName(t *testing.T) {
	svc := NewService(&fakeCA{}, newFakeMeta(), &fakeLive{})

	for _, name := range []string{"", "has space", "semi;colon", "../traversal", "-leadingdash"} {
		err := svc.Add(context.Background(), name, "", "")
		assert.ErrorIs(t, err, ErrInvalidCommonName, "name %q", name)
	}
}

func TestRevoke_RemovesCertAndMetadata(t *testing.T) {
	ca := &fakeCA{}
	meta := newFakeMeta()
	svc := NewService(ca, meta, &fakeLive{})

	require.NoError(t, svc.Add(context.Background(), "dave", "", ""))
	require.NoError(t, svc.Revoke(context.Background(), "dave"))
	assert.Equal(t, []string{"dave"}, ca.revoked)
	assert.NotContains(t, meta.metas, "dave")
}
