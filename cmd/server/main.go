package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arturoeanton/code-atlas/internal/adapter/ai"
	"github.com/arturoeanton/code-atlas/internal/adapter/store"
	"github.com/arturoeanton/code-atlas/internal/adapter/vcs"
	"github.com/arturoeanton/code-atlas/internal/handler"
	"github.com/arturoeanton/code-atlas/internal/mcp"
	"github.com/arturoeanton/code-atlas/internal/middleware"
	"github.com/arturoeanton/code-atlas/internal/port"
	"github.com/arturoeanton/code-atlas/internal/service"
	"github.com/arturoeanton/code-atlas/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
)

// stores groups the persistence interfaces one backend provides.
type stores interface {
	port.AnalysisStore
	port.AuditStore
}

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("Starting CodeAtlas",
		"port", cfg.Port,
		"storage", cfg.StorageName(),
		"default_model", cfg.DefaultModel,
		"tree_workers", cfg.TreeWorkers,
		"mcp_enabled", cfg.MCPEnabled,
	)

	// ── Storage ──────────────────────────────────────────────────────────
	var db stores
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "dsn", cfg.DSN(), "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()
		db = pgStore
	} else {
		memStore, err := store.NewMemoryStore(cfg.AnalysisCacheSize)
		if err != nil {
			slog.Error("failed to create memory store", "error", err)
			os.Exit(1)
		}
		db = memStore
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	hosts, err := vcs.NewGitHubFactory(vcs.GitHubConfig{
		Token:   cfg.GitHubToken,
		BaseURL: cfg.GitHubAPIURL,
		RPS:     cfg.GitHubRPS,
		Burst:   cfg.GitHubBurst,
	})
	if err != nil {
		slog.Error("failed to configure GitHub client", "error", err)
		os.Exit(1)
	}
	models := ai.NewGeminiFactory(ai.GeminiConfig{
		BaseURL:      cfg.GeminiBaseURL,
		DefaultModel: cfg.DefaultModel,
	})

	// ── Services ─────────────────────────────────────────────────────────
	analysisService := service.NewAnalysisService(hosts, models, service.TreeLimits{
		MaxDepth: cfg.TreeMaxDepth,
		MaxNodes: cfg.TreeMaxNodes,
		Workers:  cfg.TreeWorkers,
	}, db)

	// ── Fiber App ────────────────────────────────────────────────────────
	// No write timeout: analyses and chat streams are long-lived.
	app := fiber.New(fiber.Config{
		AppName:     cfg.AppName,
		ReadTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "x-api-key", "x-model"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	app.Use(middleware.AuditMiddleware(db))

	api := app.Group("/api")

	jobTracker := handler.NewJobTracker()
	handler.NewHealthHandler(cfg.AppName, cfg.StorageName()).Register(api)
	handler.NewAnalysisHandler(analysisService, jobTracker, cfg.RequestTimeout).Register(api)
	handler.NewJobsHandler(jobTracker).Register(api)
	handler.NewChatHandler(models, cfg.DefaultModel, cfg.ChatBuffer).Register(api)
	handler.NewAuditHandler(db).Register(api)

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		mcpServer := mcp.NewMCPServer(analysisService, db)
		go func() {
			if err := mcp.StartHTTP(mcpServer, cfg.MCPPort); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	// ── Start ────────────────────────────────────────────────────────────
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
