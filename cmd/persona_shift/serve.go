package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/persona-shift/internal/generation"
	"github.com/jonathan/persona-shift/internal/llm"
	"github.com/jonathan/persona-shift/internal/pipeline"
	"github.com/jonathan/persona-shift/internal/server"
	"github.com/jonathan/persona-shift/internal/session"
)

var (
	servePort  int
	serveFlags commonFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server that exposes session endpoints for uploading a portrait and streaming persona generation.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT env var or 8080)")
	serveFlags.register(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := serveFlags.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key is required")
	}
	jwtConfig, err := cfg.JWTConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llmClient, err := llm.NewClient(ctx, cfg.LLMConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close() //nolint:errcheck

	controller := pipeline.NewController(
		generation.NewGeminiClient(llmClient),
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithCallTimeout(cfg.RequestTimeout),
	)
	store := session.NewStore(cfg.SessionTTL, logger.Named("session"))

	srv, err := server.New(server.Config{
		Port:          cfg.Port,
		MaxImageBytes: cfg.MaxImageBytes,
	}, store, controller, jwtConfig, logger.Named("server"))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("using models",
		zap.String("text", llmClient.GetModel(llm.TierStandard)),
		zap.String("image", llmClient.GetModel(llm.TierImage)),
	)
	return srv.Start(ctx)
}
