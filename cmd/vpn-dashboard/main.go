package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/akellavk/openvpn-dashboard/internal/accounts"
	internalhttp "github.com/akellavk/openvpn-dashboard/internal/api/http"
	"github.com/akellavk/openvpn-dashboard/internal/clients"
	"github.com/akellavk/openvpn-dashboard/internal/db"
	"github.com/akellavk/openvpn-dashboard/internal/easyrsa"
	"github.com/akellavk/openvpn-dashboard/internal/metrics"
	"github.com/akellavk/openvpn-dashboard/internal/openvpn"
	"github.com/akellavk/openvpn-dashboard/internal/recon"
	"github.com/akellavk/openvpn-dashboard/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var AppVersion string

var rootCmd = &cobra.Command{
	Use:           "vpn-dashboard",
	Short:         "OpenVPN monitoring dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard server and reconciliation loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var createAdminPassword string

var createAdminCmd = &cobra.Command{
	Use:   "create-admin <username>",
	Short: "Create a dashboard admin account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreateAdmin(args[0], createAdminPassword)
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&createAdminPassword, "password", "", "password for the new account")
	_ = createAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, createAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func runServe() error {
	InitConfig()

	slog.Info("VPN Dashboard", "version", AppVersion)

	// A broken store at startup is fatal; everything downstream
	// depends on it.
	if err := db.RunMigrations(config.Database.Url, config.Database.Schema); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.InitDB(ctx, config.Database.Url, config.Database.Schema)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	st := store.New(pool)

	var sink metrics.Sink
	if config.Zabbix.Enabled {
		sink = metrics.NewZabbixSender(config.Zabbix.SenderPath, config.Zabbix.Server, config.Zabbix.Hostname)
	}

	engine := recon.NewEngine(
		recon.Config{Interval: config.Recon.Interval, Grace: config.Recon.Grace},
		st,
		openvpn.NewStatusParser(config.OpenVPN.StatusLog),
		openvpn.NewEventScanner(config.OpenVPN.ServerLog),
		sink,
	)

	ca := easyrsa.NewScriptCA(
		config.OpenVPN.AddClientScript,
		config.OpenVPN.RevokeClientScript,
		config.OpenVPN.IndexFile,
	)

	services := &internalhttp.Services{
		Accounts: accounts.NewService(st),
		Clients:  clients.NewService(ca, st, engine),
		Live:     engine,
		Sessions: st,
		JWT:      config.Auth,
		Http:     config.Http,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(gin.Recovery())
	internalhttp.SetupRoute(router, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: router,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()

	if config.OpenVPN.WatchStatus {
		watcher := recon.NewWatcher(config.OpenVPN.StatusLog, engine)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx); err != nil {
				slog.Warn("Status watcher unavailable", "error", err)
			}
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	wg.Wait()
	slog.Info("Shutdown complete")
	return nil
}

func runCreateAdmin(username, password string) error {
	InitConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.RunMigrations(config.Database.Url, config.Database.Schema); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	pool, err := db.InitDB(ctx, config.Database.Url, config.Database.Schema)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	acc, err := accounts.NewService(store.New(pool)).Create(ctx, username, password, accounts.RoleAdmin)
	if err != nil {
		return err
	}

	fmt.Printf("Created account %s (%s)\n", acc.Username, acc.ID)
	return nil
}
