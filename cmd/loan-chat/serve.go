package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loan-assistant/internal/api"
	"loan-assistant/internal/bootstrap"
	"loan-assistant/internal/common/config"
	"loan-assistant/internal/common/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides http.listen_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewZapAdapter(zapLog)
	deps, err := bootstrap.Build(ctx, cfg, log, cfg.App.Name)
	if err != nil {
		return err
	}
	defer deps.Close()

	handler := api.NewHandler(deps.Engine(), deps.ReadinessChecks(), log)
	addr := cfg.HTTP.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(handler, config.GetDuration(cfg.HTTP.RequestTimeout)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("HTTP API listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zapLog.Info("Shutdown signal received, stopping HTTP API...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP API", zap.Error(err))
		return err
	}
	zapLog.Info("HTTP API stopped gracefully")
	return nil
}
