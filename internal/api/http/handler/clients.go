package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/akellavk/openvpn-dashboard/internal/api/http/dto"
	"github.com/akellavk/openvpn-dashboard/internal/clients"
	"github.com/gin-gonic/gin"
)

type ClientsHandler struct {
	clients *clients.Service
}

func NewClientsHandler(svc *clients.Service) *ClientsHandler {
	return &ClientsHandler{clients: svc}
}

func (h *ClientsHandler) List(c *gin.Context) {
	list, err := h.clients.List(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list clients", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, dto.ClientsResponse{
		Clients: list,
		Count:   len(list),
	})
}

func (h *ClientsHandler) Add(c *gin.Context) {
	var req dto.AddClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.clients.Add(c.Request.Context(), req.Username, req.Email, req.Description); err != nil {
		if errors.Is(err, clients.ErrInvalidCommonName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid common name"})
			return
		}
		slog.Error("Failed to add client", "common_name", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add client"})
		return
	}

	c.JSON(http.StatusCreated, dto.MessageResponse{
		Message: fmt.Sprintf("client %s added", req.Username),
	})
}

func (h *ClientsHandler) Revoke(c *gin.Context) {
	name := c.Param("name")

	if err := h.clients.Revoke(c.Request.Context(), name); err != nil {
		if errors.Is(err, clients.ErrInvalidCommonName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid common name"})
			return
		}
		slog.Error("Failed to revoke client", "common_name", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke client"})
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{
		Message: fmt.Sprintf("client %s revoked", name),
	})
}
