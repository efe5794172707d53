package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gilvint/headspace-agent/internal/api/handlers"
	"github.com/gilvint/headspace-agent/internal/config"
	"github.com/gilvint/headspace-agent/internal/database"
	"github.com/gilvint/headspace-agent/internal/jobs"
	"github.com/gilvint/headspace-agent/internal/llm"
	"github.com/gilvint/headspace-agent/internal/repository"
	"github.com/gilvint/headspace-agent/internal/server"
	"github.com/gilvint/headspace-agent/internal/service"
	"github.com/gilvint/headspace-agent/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent API server",
		Long:  "Start the portfolio agent API server and the background embedding worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Disable the background embedding worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasLLM() {
		return fmt.Errorf("HSA_LLM_API_KEY is required")
	}

	llmClient := llm.NewClientWithConfig(llm.Config{
		APIKey:              cfg.LLMAPIKey,
		BaseURL:             cfg.LLMBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		ChatModel:           cfg.ChatModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	docRepo := repository.NewDocRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	quotaRepo := repository.NewQuotaRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}

	chunkCfg := service.ChunkConfig{
		MinCharsBeforeSplit: cfg.ChunkMinChars,
		TargetChars:         cfg.ChunkTargetChars,
		OverlapChars:        cfg.ChunkOverlapChars,
	}

	syncSvc := service.NewSyncService(docRepo, uuidGen)
	embedSvc := service.NewEmbedPassService(llmClient, docRepo, txRunner, chunkCfg, uuidGen)
	quotaGate := service.NewQuotaGate(quotaRepo, service.QuotaConfig{
		AnonDailyLimit: cfg.AnonDailyQuota,
		AuthDailyLimit: cfg.AuthDailyQuota,
	})
	agentSvc := service.NewAgentService(llmClient, llmClient, chunkRepo, historyRepo, quotaGate, service.AgentConfig{
		OwnerName:       cfg.OwnerName,
		TopK:            cfg.AgentTopK,
		MinSimilarity:   cfg.MinSimilarity,
		MaxOutputTokens: cfg.MaxOutputTokens,
		ExposeSources:   cfg.ExposeSources,
	})

	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		worker := jobs.NewWorker(&embedPassAdapter{svc: embedSvc}, cfg.EmbedPollInterval)
		go worker.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{
		AgentHandler: handlers.NewAgentHandler(agentSvc),
		EmbedHandler: handlers.NewEmbedHandler(embedSvc),
		SyncHandler:  handlers.NewSyncHandler(syncSvc),
		EmbedSecret:  cfg.EmbedSecret,
		JWTSecret:    cfg.JWTSecret,
		OwnerEmail:   cfg.OwnerEmail,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// embedPassAdapter lets the polling worker drive the embedding pass service.
type embedPassAdapter struct {
	svc *service.EmbedPassService
}

func (a *embedPassAdapter) ProcessDirtyDocs(ctx context.Context) error {
	_, err := a.svc.RunPass(ctx)
	return err
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: at version %d", version)
	}

	return nil
}
