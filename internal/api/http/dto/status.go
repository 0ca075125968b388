package dto

import (
	"github.com/akellavk/openvpn-dashboard/internal/clients"
	"github.com/akellavk/openvpn-dashboard/internal/openvpn"
	"github.com/akellavk/openvpn-dashboard/internal/store"
)

type StatusResponse struct {
	Clients int                     `json:"clients"`
	Stats   []openvpn.ActiveSession `json:"stats"`
}

type ConnectionsResponse struct {
	Connections []store.Session `json:"connections"`
	Total       int             `json:"total"`
}

type ClientsResponse struct {
	Clients []clients.Client `json:"clients"`
	Count   int              `json:"count"`
}

type AddClientRequest struct {
	Username    string `json:"username" binding:"required,min=1,max=64"`
	Email       string `json:"email" binding:"omitempty,email"`
	Description string `json:"description" binding:"max=255"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
