package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/akellavk/openvpn-dashboard/internal/api/http/dto"
	"github.com/akellavk/openvpn-dashboard/internal/openvpn"
	"github.com/akellavk/openvpn-dashboard/internal/store"
	"github.com/gin-gonic/gin"
)

// SnapshotSource is satisfied by the reconciliation engine.
type SnapshotSource interface {
	Snapshot() openvpn.Snapshot
}

// SessionLister is satisfied by the store.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]store.Session, error)
}

type StatusHandler struct {
	live     SnapshotSource
	sessions SessionLister
}

func NewStatusHandler(live SnapshotSource, sessions SessionLister) *StatusHandler {
	return &StatusHandler{live: live, sessions: sessions}
}

// Status returns the latest parsed snapshot: active client count plus
// per-session traffic.
func (h *StatusHandler) Status(c *gin.Context) {
	snap := h.live.Snapshot()
	stats := snap.Sessions
	if stats == nil {
		stats = []openvpn.ActiveSession{}
	}
	c.JSON(http.StatusOK, dto.StatusResponse{
		Clients: snap.Count,
		Stats:   stats,
	})
}

// Connections returns the persisted session history. A partially-updated
// cycle may be visible here; the view is advisory.
func (h *StatusHandler) Connections(c *gin.Context) {
	sessions, err := h.sessions.ListSessions(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list connections", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	c.JSON(http.StatusOK, dto.ConnectionsResponse{
		Connections: sessions,
		Total:       len(sessions),
	})
}
