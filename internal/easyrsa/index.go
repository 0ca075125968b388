package easyrsa

import (
	"bufio"
	"log/slog"
	"os"
	"sort"
	"strings"
)

const (
	statusValid = "V"

	// Minimum tab-separated fields in an index.txt line.
	minIndexFields = 5

	// The server's own certificate lives in the same index and is not
	// a client.
	serverCertName = "server"
)

// Certificate is one valid entry of the easy-rsa certificate database.
type Certificate struct {
	CommonName string
	Serial     string
}

// ParseIndex reads easy-rsa's index.txt and returns the valid client
// certificates sorted by common name. A missing index yields an empty
// list; the CA may not be provisioned yet.
func ParseIndex(path string) ([]Certificate, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("Certificate index unavailable", "path", path, "error", err)
		return nil, nil
	}
	defer f.Close()

	var certs []Certificate
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, statusValid) {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < minIndexFields {
			continue
		}

		dn := parts[len(parts)-1]
		i := strings.LastIndex(dn, "/CN=")
		if i < 0 {
			continue
		}
		cn := strings.TrimSpace(dn[i+len("/CN="):])
		if cn == "" || strings.EqualFold(cn, serverCertName) {
			continue
		}

		certs = append(certs, Certificate{
			CommonName: cn,
			Serial:     parts[3],
		})
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("Error reading certificate index", "path", path, "error", err)
		return nil, nil
	}

	sort.Slice(certs, func(i, j int) bool {
		return certs[i].CommonName < certs[j].CommonName
	})
	return certs, nil
}
