package openvpn

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEventLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanDisconnects(t *testing.T) {
	log := "Tue Jan  2 14:00:00 2024 alice/203.0.113.7:51082 Connection reset, restarting [0]\n" +
		"Tue Jan  2 15:04:05 2024 bob/198.51.100.4:39514 [bob] Inactivity timeout (--ping-restart), restarting\n" +
		"Tue Jan  2 15:10:00 2024 MULTI: multi_create_instance called\n"
	s := NewEventScanner(writeEventLog(t, log))

	events, err := s.ScanDisconnects()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t,
		time.Date(2024, 1, 2, 15, 4, 5, 0, time.Local),
		events["bob"])
}

func TestScanDisconnects_LatestOccurrenceWins(t *testing.T) {
	log := "Tue Jan  2 12:00:00 2024 bob/198.51.100.4:39514 [bob] Inactivity timeout (--ping-restart), restarting\n" +
		"Tue Jan  2 16:30:00 2024 bob/198.51.100.4:40001 [bob] Inactivity timeout (--ping-restart), restarting\n"
	s := NewEventScanner(writeEventLog(t, log))

	events, err := s.ScanDisconnects()
	require.NoError(t, err)
	assert.Equal(t,
		time.Date(2024, 1, 2, 16, 30, 0, 0, time.Local),
		events["bob"])
}

func TestScanDisconnects_BareIdentity(t *testing.T) {
	log := "Wed Jan 10 08:15:30 2024 alice [alice] Inactivity timeout (--ping-restart), restarting\n"
	s := NewEventScanner(writeEventLog(t, log))

	events, err := s.ScanDisconnects()
	require.NoError(t, err)
	assert.Equal(t,
		time.Date(2024, 1, 10, 8, 15, 30, 0, time.Local),
		events["alice"])
}

func TestScanDisconnects_MissingFile(t *testing.T) {
	s := NewEventScanner(filepath.Join(t.TempDir(), "missing.log"))

	events, err := s.ScanDisconnects()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestScanDisconnects_IgnoresOtherRestarts(t *testing.T) {
	log := "Tue Jan  2 15:00:00 2024 carol/203.0.113.9:1234 [carol] SIGUSR1[soft,ping-restart] received, client-instance restarting\n"
	s := NewEventScanner(writeEventLog(t, log))

	events, err := s.ScanDisconnects()
	require.NoError(t, err)
	assert.Empty(t, events)
}
