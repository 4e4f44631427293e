package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rarediag/internal/config"
	"rarediag/internal/core"
	"rarediag/internal/db"
	httpserver "rarediag/internal/http"
	"rarediag/internal/intake"
	"rarediag/internal/llm"
	"rarediag/internal/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "server",
		Short: "Rare disease lookup and diagnosis API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the diseases and fda_drugs tables if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			conn, err := openDB(cmd.Context(), cfg.DSN())
			if err != nil {
				logger.Error().Err(err).Msg("database connection failed")
				return err
			}
			defer conn.Close()

			if err := db.Migrate(cmd.Context(), db.NewGate(conn)); err != nil {
				logger.Error().Err(err).Msg("migration failed")
				return err
			}
			logger.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	gin.SetMode(cfg.GinMode)

	if cfg.LLMAPIKey == "" {
		logger.Warn().Msg("GROQ_API_KEY is not set; generation requests will fail")
	}

	conn, err := openDB(context.Background(), cfg.DSN())
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		return err
	}
	defer conn.Close()

	repo := db.NewRepository(db.NewGate(conn), db.NewNotifier(cfg.NotifyChannel))
	client := llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	labels := registry.NewClient(cfg.OpenFDAURL, cfg.OpenFDATimeout)

	if err := os.MkdirAll(cfg.PatientDataDir, 0o755); err != nil {
		return fmt.Errorf("create patient data dir: %w", err)
	}
	records := intake.NewWriter(cfg.PatientDataDir)

	handler := httpserver.NewServer(
		core.NewDiseaseService(repo, client, logger.With().Str("component", "disease").Logger()),
		core.NewDrugService(repo, labels, logger.With().Str("component", "drug").Logger()),
		core.NewDiagnosisService(client, records, logger.With().Str("component", "diagnosis").Logger()),
		repo,
		logger,
		cfg.CORSOrigins,
	)

	// No WriteTimeout: completions routinely take longer than any sane bound.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info().Str("port", cfg.Port).Str("model", cfg.LLMModel).Msg("server listening")
	return waitForShutdown(server, errCh, logger)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

func waitForShutdown(server *http.Server, errCh <-chan error, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
		return err
	case <-stop:
	}

	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
