package openvpn

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStatus = `TITLE,OpenVPN 2.5.5 x86_64-pc-linux-gnu
TIME,2024-01-02 15:04:05,1704207845
HEADER,CLIENT_LIST,Common Name,Real Address,Virtual Address,Virtual IPv6 Address,Bytes Received,Bytes Sent,Connected Since,Connected Since (time_t),Username,Client ID,Peer ID
CLIENT_LIST,alice,203.0.113.7:51082,10.8.0.2,,2097152,1048576,2024-01-02 14:00:00,1704204000,UNDEF,0,0
CLIENT_LIST,bob,198.51.100.4:39514,10.8.0.3,,0,0,2024-01-02 14:30:00,1704205800,UNDEF,1,1
HEADER,ROUTING_TABLE,Virtual Address,Common Name,Real Address,Last Ref,Last Ref (time_t)
ROUTING_TABLE,10.8.0.2,alice,203.0.113.7:51082,2024-01-02 15:04:00,1704207840
GLOBAL_STATS,Max bcast/mcast queue length,0
END
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "status.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseStatus(t *testing.T) {
	p := NewStatusParser(writeTemp(t, sampleStatus))

	snap, err := p.Parse()
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Count)
	assert.Zero(t, snap.Malformed)
	require.Len(t, snap.Sessions, 2)

	alice := snap.Sessions[0]
	assert.Equal(t, "alice", alice.CommonName)
	assert.Equal(t, "203.0.113.7:51082", alice.RealAddress)
	assert.Equal(t, 2.00, alice.BytesReceived)
	assert.Equal(t, 1.00, alice.BytesSent)
	assert.Equal(t,
		time.Date(2024, 1, 2, 14, 0, 0, 0, time.Local),
		alice.ConnectedSince)
	assert.False(t, alice.ObservedAt.IsZero())

	bob := snap.Sessions[1]
	assert.Equal(t, "bob", bob.CommonName)
	assert.Zero(t, bob.BytesReceived)
	assert.Zero(t, bob.BytesSent)
}

func TestParseStatus_MalformedLineSkipped(t *testing.T) {
	status := "HEADER,CLIENT_LIST,Common Name\n" +
		"CLIENT_LIST,onlyonefield\n" +
		"CLIENT_LIST,alice,203.0.113.7:51082,10.8.0.2,,1048576,1048576,2024-01-02 14:00:00,1704204000\n" +
		"HEADER,ROUTING_TABLE\n"
	p := NewStatusParser(writeTemp(t, status))

	snap, err := p.Parse()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, 1, snap.Malformed)
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, "alice", snap.Sessions[0].CommonName)
}

func TestParseStatus_UnparsableNumbersSkipped(t *testing.T) {
	status := "HEADER,CLIENT_LIST,Common Name\n" +
		"CLIENT_LIST,alice,203.0.113.7:51082,10.8.0.2,,notanumber,0,2024-01-02 14:00:00,1704204000\n" +
		"CLIENT_LIST,bob,198.51.100.4:39514,10.8.0.3,,0,0,not a date,1704204000\n" +
		"HEADER,ROUTING_TABLE\n"
	p := NewStatusParser(writeTemp(t, status))

	snap, err := p.Parse()
	require.NoError(t, err)
	assert.Zero(t, snap.Count)
	assert.Equal(t, 2, snap.Malformed)
}

func TestParseStatus_IgnoresLinesOutsideClientBlock(t *testing.T) {
	status := "CLIENT_LIST,eve,203.0.113.9:1234,10.8.0.9,,0,0,2024-01-02 14:00:00,1704204000\n" +
		"HEADER,CLIENT_LIST,Common Name\n" +
		"HEADER,ROUTING_TABLE\n" +
		"CLIENT_LIST,mallory,203.0.113.10:1234,10.8.0.10,,0,0,2024-01-02 14:00:00,1704204000\n"
	p := NewStatusParser(writeTemp(t, status))

	snap, err := p.Parse()
	require.NoError(t, err)
	assert.Zero(t, snap.Count)
	assert.Empty(t, snap.Sessions)
}

func TestParseStatus_MissingFile(t *testing.T) {
	p := NewStatusParser(filepath.Join(t.TempDir(), "does-not-exist.log"))

	snap, err := p.Parse()
	require.NoError(t, err)
	assert.Zero(t, snap.Count)
	assert.Empty(t, snap.Sessions)
}

func TestParseStatus_DuplicateIdentitiesPreserved(t *testing.T) {
	status := "HEADER,CLIENT_LIST,Common Name\n" +
		"CLIENT_LIST,alice,203.0.113.7:51082,10.8.0.2,,0,0,2024-01-02 14:00:00,1704204000\n" +
		"CLIENT_LIST,alice,203.0.113.8:51083,10.8.0.4,,1048576,0,2024-01-02 14:10:00,1704204600\n" +
		"HEADER,ROUTING_TABLE\n"
	p := NewStatusParser(writeTemp(t, status))

	snap, err := p.Parse()
	require.NoError(t, err)
	// Both occurrences survive, in file order; consumers apply
	// last-occurrence-wins.
	require.Len(t, snap.Sessions, 2)
	assert.Equal(t, 1.00, snap.Sessions[1].BytesReceived)
}

func TestBytesToMiB(t *testing.T) {
	assert.Equal(t, 1.00, BytesToMiB(1048576))
	assert.Equal(t, 2.00, BytesToMiB(2097152))
	assert.Equal(t, 0.00, BytesToMiB(0))
	assert.Equal(t, 0.5, BytesToMiB(524288))
	assert.Equal(t, 1.5, BytesToMiB(1572864))
	assert.Equal(t, 0.01, BytesToMiB(10486))
}
