package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	api "care-inventory-backend/internal/api/grpc"
	httpapi "care-inventory-backend/internal/api/http"
	"care-inventory-backend/internal/clock"
	"care-inventory-backend/internal/config"
	"care-inventory-backend/internal/logger"
	"care-inventory-backend/internal/repository/postgres"
	"care-inventory-backend/internal/security"
	"care-inventory-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Care Inventory Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http_address", cfg.GetHTTPAddress(), "grpc_address", cfg.GetGRPCAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(context.Background(), db); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Initialize Repositories
	store := postgres.NewStore(db)
	clk := clock.NewSystem(cfg.Location())

	// Initialize Services
	itemSvc := service.NewItemService(store, store.Items, store.Events, clk)
	userSvc := service.NewUserService(store, store.Users, store.Loans, store.Events, clk)
	loanSvc := service.NewLoanService(store, store.Loans, store.Items, store.Users, store.Events, clk)
	dashboardSvc := service.NewDashboardService(store.Dashboard, store.Loans, store.Events, loanSvc)
	eventSvc := service.NewEventService(store.Events)

	if cfg.Inventory.SeedDefaultList {
		created, err := itemSvc.AddDefaultItems(context.Background())
		if err != nil {
			logger.Error("Failed to seed default items", "error", err)
			log.Fatalf("Failed to seed default items: %v", err)
		}
		logger.Info("Default item list seeded", "created", len(created))
	}

	// Initialize Security
	var tokenManager security.TokenManager
	if cfg.Security.JWTSecret != "" {
		tokenManager = security.NewTokenManager(cfg.Security.JWTSecret, cfg.TokenExpiry())
	} else {
		logger.Warn("JWT secret not configured, API authentication is disabled")
	}

	// Set up HTTP server
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           httpapi.NewRouter(httpapi.NewHandler(itemSvc, userSvc, loanSvc, dashboardSvc, eventSvc), tokenManager),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	// Set up gRPC server
	grpcServer, healthSrv := api.NewServer(api.NewInventoryHandler(loanSvc, dashboardSvc, eventSvc), tokenManager)
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		go func() {
			logger.Info("gRPC server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down servers...")
	healthSrv.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Servers stopped. Goodbye!")
}
