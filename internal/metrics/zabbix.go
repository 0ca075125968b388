// Package metrics forwards scalar measurements to an external monitoring
// sink. Deliveries are fire-and-forget; callers log failures and move on.
package metrics

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type Sink interface {
	Send(ctx context.Context, key, value string) error
}

// ZabbixSender ships values through the zabbix_sender binary.
type ZabbixSender struct {
	SenderPath string
	Server     string
	Port       string
	Hostname   string
}

func NewZabbixSender(senderPath, server, hostname string) *ZabbixSender {
	host, port := splitServerAddr(server)
	return &ZabbixSender{
		SenderPath: senderPath,
		Server:     host,
		Port:       port,
		Hostname:   hostname,
	}
}

func (z *ZabbixSender) Send(ctx context.Context, key, value string) error {
	cmd := exec.CommandContext(ctx, z.SenderPath,
		"-z", z.Server,
		"-p", z.Port,
		"-s", z.Hostname,
		"-k", key,
		"-o", value,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("zabbix_sender %s=%s: %w: %s", key, value, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func splitServerAddr(server string) (host, port string) {
	if i := strings.LastIndex(server, ":"); i >= 0 {
		return server[:i], server[i+1:]
	}
	return server, "10051"
}
