package openvpn

import (
	"bufio"
	"log/slog"
	"os"
	"regexp"
	"time"
)

// OpenVPN writes its own timestamps when not logging through syslog.
const eventTimeLayout = "Mon Jan _2 15:04:05 2006"

// Matches an inactivity-timeout disconnect, e.g.
//
//	Tue Jan  2 15:04:05 2024 alice/10.8.0.2:51082 [alice] Inactivity timeout (--ping-restart), restarting
//
// The client prefix is either identity/address:port or a bare identity;
// the bracketed repeat is what we key on.
var timeoutLinePattern = regexp.MustCompile(
	`^(\w{3} \w{3} [ \d]\d \d{2}:\d{2}:\d{2} \d{4}) \S+ \[([^\]]+)\] Inactivity timeout \(--ping-restart\), restarting`)

// EventScanner extracts authoritative disconnect times from the server's
// event log.
type EventScanner struct {
	path string
}

func NewEventScanner(path string) *EventScanner {
	return &EventScanner{path: path}
}

// ScanDisconnects re-scans the event log in full and returns the most
// recent timeout-disconnect timestamp per identity. Only inactivity
// timeouts are recognized; the log format records no other disconnect
// cause reliably. A missing log yields an empty map.
func (s *EventScanner) ScanDisconnects() (map[string]time.Time, error) {
	events := make(map[string]time.Time)

	f, err := os.Open(s.path)
	if err != nil {
		slog.Warn("Event log unavailable", "path", s.path, "error", err)
		return events, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := timeoutLinePattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		ts, err := time.ParseInLocation(eventTimeLayout, m[1], time.Local)
		if err != nil {
			slog.Debug("Unparsable event timestamp", "value", m[1], "error", err)
			continue
		}
		// Later lines overwrite earlier ones, so the newest
		// occurrence per identity wins.
		events[m[2]] = ts
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("Error reading event log", "path", s.path, "error", err)
	}

	return events, nil
}
