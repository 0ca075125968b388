package openvpn

import (
	"bufio"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	clientListHeader   = "HEADER,CLIENT_LIST"
	routingTableHeader = "HEADER,ROUTING_TABLE"
	clientListPrefix   = "CLIENT_LIST"

	// Minimum comma-separated fields in a CLIENT_LIST row of a
	// status-version-2 report.
	minClientListFields = 9

	connectedSinceLayout = "2006-01-02 15:04:05"
)

// ActiveSession is one row of the client-list block of an OpenVPN status
// report. Traffic counters are normalized to MiB.
type ActiveSession struct {
	CommonName     string    `json:"common_name"`
	RealAddress    string    `json:"real_address"`
	BytesReceived  float64   `json:"bytes_received"`
	BytesSent      float64   `json:"bytes_sent"`
	ConnectedSince time.Time `json:"connected_since"`
	ObservedAt     time.Time `json:"observed_at"`
}

// Snapshot is the set of active sessions reported by the server at one
// point in time. Count covers only well-formed rows; Malformed counts
// skipped ones.
type Snapshot struct {
	Count     int
	Sessions  []ActiveSession
	Malformed int
}

// StatusParser reads OpenVPN status-version-2 reports.
type StatusParser struct {
	path string
	now  func() time.Time
}

func NewStatusParser(path string) *StatusParser {
	return &StatusParser{path: path, now: time.Now}
}

// Parse re-reads the status report in full and returns the current
// snapshot. A missing or unreadable report yields an empty snapshot, not
// an error: the server may be restarting and the next poll is the retry.
func (p *StatusParser) Parse() (Snapshot, error) {
	f, err := os.Open(p.path)
	if err != nil {
		slog.Warn("Status report unavailable", "path", p.path, "error", err)
		return Snapshot{}, nil
	}
	defer f.Close()

	observed := p.now()
	var snap Snapshot
	inClients := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, routingTableHeader) {
			break
		}
		if inClients && strings.HasPrefix(line, clientListPrefix+",") {
			session, ok := parseClientListLine(line, observed)
			if !ok {
				slog.Debug("Skipping malformed client-list line", "line", line)
				snap.Malformed++
				continue
			}
			snap.Sessions = append(snap.Sessions, session)
			snap.Count++
		}
		if strings.HasPrefix(line, clientListHeader) {
			inClients = true
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("Error reading status report", "path", p.path, "error", err)
		return Snapshot{}, nil
	}

	return snap, nil
}

func parseClientListLine(line string, observed time.Time) (ActiveSession, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < minClientListFields {
		return ActiveSession{}, false
	}

	rx, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return ActiveSession{}, false
	}
	tx, err := strconv.ParseInt(parts[6], 10, 64)
	if err != nil {
		return ActiveSession{}, false
	}

	since, err := time.ParseInLocation(connectedSinceLayout, parts[7], time.Local)
	if err != nil {
		return ActiveSession{}, false
	}

	return ActiveSession{
		CommonName:     parts[1],
		RealAddress:    parts[2],
		BytesReceived:  BytesToMiB(rx),
		BytesSent:      BytesToMiB(tx),
		ConnectedSince: since,
		ObservedAt:     observed,
	}, true
}

// BytesToMiB converts a raw byte counter to MiB rounded to two decimal
// places.
func BytesToMiB(b int64) float64 {
	return math.Round(float64(b)/(1024*1024)*100) / 100
}
