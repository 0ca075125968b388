// Package recon reconciles the live OpenVPN snapshot against persisted
// connection history: it opens rows for newly seen identities, refreshes
// traffic on still-connected ones and closes rows for identities that
// dropped out of the snapshot.
package recon

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/akellavk/openvpn-dashboard/internal/metrics"
	"github.com/akellavk/openvpn-dashboard/internal/openvpn"
	"github.com/akellavk/openvpn-dashboard/internal/store"
)

const connectedClientsKey = "vpn.connected_clients"

// SessionStore is the slice of the persistence layer the engine writes
// through. Update and close must only touch rows that are still open.
type SessionStore interface {
	CreateOpenSession(ctx context.Context, commonName string, connectedAt, lastUpdated time.Time) error
	UpdateOpenTraffic(ctx context.Context, commonName string, bytesReceived, bytesSent float64, lastUpdated time.Time) error
	CloseSession(ctx context.Context, commonName string, disconnectedAt time.Time, durationMinutes int64, bytesReceived, bytesSent float64) error
	OpenSessions(ctx context.Context) ([]store.Session, error)
}

type StatusSource interface {
	Parse() (openvpn.Snapshot, error)
}

type DisconnectSource interface {
	ScanDisconnects() (map[string]time.Time, error)
}

type Config struct {
	// Interval between reconciliation cycles.
	Interval time.Duration
	// Grace is subtracted from "now" when closing a session with no
	// logged disconnect event, to absorb keepalive detection lag.
	Grace time.Duration
}

type Engine struct {
	cfg    Config
	store  SessionStore
	status StatusSource
	events DisconnectSource
	sink   metrics.Sink
	now    func() time.Time

	kick chan struct{}

	mu       sync.RWMutex
	snapshot openvpn.Snapshot
}

func NewEngine(cfg Config, st SessionStore, status StatusSource, events DisconnectSource, sink metrics.Sink) *Engine {
	return &Engine{
		cfg:    cfg,
		store:  st,
		status: status,
		events: events,
		sink:   sink,
		now:    time.Now,
		kick:   make(chan struct{}, 1),
	}
}

// Run drives reconciliation cycles until ctx is cancelled. A failed cycle
// is logged and retried implicitly on the next tick; nothing terminates
// the loop except cancellation.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("Reconciliation loop started", "interval", e.cfg.Interval, "grace", e.cfg.Grace)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := e.RunCycle(ctx); err != nil {
			slog.Error("Reconciliation cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("Reconciliation loop stopped")
			return
		case <-ticker.C:
		case <-e.kick:
		}
	}
}

// Kick requests an extra cycle before the next tick. Multiple kicks
// between cycles coalesce into one.
func (e *Engine) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Snapshot returns the result of the most recent status parse.
func (e *Engine) Snapshot() openvpn.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// RunCycle executes one merge-and-close pass. Failures on a single
// identity are logged and skipped so the rest of the cycle proceeds.
func (e *Engine) RunCycle(ctx context.Context) error {
	snap, err := e.status.Parse()
	if err != nil {
		// Treated the same as a missing report: reconcile against
		// an empty snapshot next time instead.
		slog.Error("Status parse failed", "error", err)
		return err
	}

	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()

	open, err := e.store.OpenSessions(ctx)
	if err != nil {
		return err
	}
	openByName := make(map[string]store.Session, len(open))
	for _, sess := range open {
		openByName[sess.CommonName] = sess
	}

	// Last occurrence wins if the snapshot carries duplicate identities.
	active := make(map[string]openvpn.ActiveSession, len(snap.Sessions))
	for _, sess := range snap.Sessions {
		active[sess.CommonName] = sess
	}

	// Traffic updates and creations first, closures after, so a
	// disconnect-and-reconnect within one interval still yields two
	// distinct rows once the identity reappears.
	for _, sess := range active {
		if _, ok := openByName[sess.CommonName]; ok {
			if err := e.store.UpdateOpenTraffic(ctx, sess.CommonName, sess.BytesReceived, sess.BytesSent, sess.ObservedAt); err != nil {
				slog.Error("Failed to update traffic", "common_name", sess.CommonName, "error", err)
			}
			continue
		}
		if err := e.store.CreateOpenSession(ctx, sess.CommonName, sess.ConnectedSince, sess.ObservedAt); err != nil {
			slog.Error("Failed to create session", "common_name", sess.CommonName, "error", err)
		}
	}

	e.closeAbsent(ctx, openByName, active)

	e.reportActiveCount(ctx, snap.Count)

	return nil
}

func (e *Engine) closeAbsent(ctx context.Context, open map[string]store.Session, active map[string]openvpn.ActiveSession) {
	var disconnects map[string]time.Time

	for name, sess := range open {
		if _, stillActive := active[name]; stillActive {
			continue
		}

		if disconnects == nil {
			var err error
			disconnects, err = e.events.ScanDisconnects()
			if err != nil {
				slog.Error("Disconnect scan failed", "error", err)
				disconnects = map[string]time.Time{}
			}
		}

		disconnectedAt, ok := disconnects[name]
		if !ok {
			// No authoritative event; assume the link died one
			// grace interval ago rather than just now.
			disconnectedAt = e.now().Add(-e.cfg.Grace)
		}

		duration := durationMinutes(sess.ConnectedAt, disconnectedAt)
		if err := e.store.CloseSession(ctx, name, disconnectedAt, duration, sess.BytesReceived, sess.BytesSent); err != nil {
			slog.Error("Failed to close session", "common_name", name, "error", err)
			continue
		}
		slog.Info("Session closed", "common_name", name,
			"disconnected_at", disconnectedAt, "duration_minutes", duration)
	}
}

func durationMinutes(connectedAt, disconnectedAt time.Time) int64 {
	mins := int64(math.Floor(disconnectedAt.Sub(connectedAt).Minutes()))
	if mins < 0 {
		return 0
	}
	return mins
}

func (e *Engine) reportActiveCount(ctx context.Context, count int) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Send(ctx, connectedClientsKey, strconv.Itoa(count)); err != nil {
		slog.Error("Failed to forward metric", "key", connectedClientsKey, "error", err)
	}
}
