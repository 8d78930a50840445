package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/chatdesk/internal/api"
	"github.com/kalambet/chatdesk/internal/config"
	"github.com/kalambet/chatdesk/internal/logging"
	"github.com/kalambet/chatdesk/internal/storage"
	"github.com/kalambet/chatdesk/internal/upstream"
)

var serveStubCmd = &cobra.Command{
	Use:   "serve-stub",
	Short: "Run a local backend implementing the chat and admin routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Stub.Port, _ = cmd.Flags().GetInt("port")
		}
		return runStub(cmd.Context(), cfg)
	},
}

func init() {
	serveStubCmd.Flags().Int("port", 0, "listen port (default stub.port)")
}

func runStub(ctx context.Context, cfg config.Config) error {
	logger, closer := logging.SetupFile(cfg.Log.File, cfg.Storage.DataDir, "stub", cfg.Log.Level)
	defer closer.Close()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	deps := api.Deps{
		Store:         store,
		Model:         cfg.Upstream.Model,
		AdminPassword: cfg.Stub.AdminPassword,
		Logger:        logger,
	}
	if cfg.Upstream.APIKey != "" {
		deps.LLM = upstream.NewClient(cfg.Upstream.APIKey, cfg.Upstream.BaseURL)
	} else {
		printWarning("No upstream API key configured; /chat will echo messages")
	}

	handler, err := api.NewHandler(deps)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Stub.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		printStep("Stub backend listening on http://%s", addr)
		logger.Info("stub backend listening", "addr", addr, "echo", deps.LLM == nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		printStep("Shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
