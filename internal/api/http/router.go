package http

import (
	"github.com/akellavk/openvpn-dashboard/internal/accounts"
	"github.com/akellavk/openvpn-dashboard/internal/api/http/handler"
	"github.com/akellavk/openvpn-dashboard/internal/api/http/middleware"
	"github.com/akellavk/openvpn-dashboard/internal/auth"
	"github.com/akellavk/openvpn-dashboard/internal/clients"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Accounts *accounts.Service
	Clients  *clients.Service
	Live     handler.SnapshotSource
	Sessions handler.SessionLister
	JWT      auth.Config
	Http     Config
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)

	authHandler := handler.NewAuthHandler(srvs.Accounts, srvs.JWT)
	engine.POST("/api/auth/login",
		middleware.LoginRateLimit(srvs.Http.LoginRatePerMinute),
		authHandler.Login)
	engine.POST("/api/auth/logout", authHandler.Logout)

	statusHandler := handler.NewStatusHandler(srvs.Live, srvs.Sessions)
	clientsHandler := handler.NewClientsHandler(srvs.Clients)

	authed := engine.Group("/api", middleware.JWTAuth(srvs.JWT.Secret))
	{
		authed.GET("/status", statusHandler.Status)
		authed.GET("/connections", statusHandler.Connections)
		authed.GET("/clients", clientsHandler.List)
	}

	admin := authed.Group("", middleware.RequireRole(accounts.RoleAdmin))
	{
		admin.POST("/clients", clientsHandler.Add)
		admin.POST("/clients/:name/revoke", clientsHandler.Revoke)
	}
}
