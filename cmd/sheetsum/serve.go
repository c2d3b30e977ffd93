package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Veraticus/sheetsum/internal/config"
	"github.com/Veraticus/sheetsum/internal/dropbox"
	"github.com/Veraticus/sheetsum/internal/server"
	"github.com/Veraticus/sheetsum/internal/service"
	"github.com/Veraticus/sheetsum/internal/workbook"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP extraction service",
		RunE:  runServe,
	}

	cmd.Flags().String("host", "", "listen host (default 0.0.0.0)")
	cmd.Flags().Int("port", 0, "listen port (default 8787)")
	_ = viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	extractor := newExtractor(cfg)
	handler := server.New(cfg, extractor)

	return runServer(cmd.Context(), cfg.Server, handler)
}

// newExtractor wires the Dropbox connector and workbook parser into the service.
func newExtractor(cfg *config.Config) *service.Extractor {
	connector := dropbox.NewConnector(dropboxConfig(cfg))

	return service.NewExtractor(
		service.ConnectorFunc(func(ctx context.Context) (service.DocumentStore, error) {
			client, err := connector.Connect(ctx)
			if err != nil {
				return nil, err
			}
			return client, nil
		}),
		workbook.NewParser(),
		service.WithOverride(cfg.Extraction.Override),
		service.WithCurrency(cfg.Extraction.Currency),
	)
}

func dropboxConfig(cfg *config.Config) dropbox.Config {
	return dropbox.Config{
		AccessToken:  cfg.Dropbox.AccessToken,
		RefreshToken: cfg.Dropbox.RefreshToken,
		AppKey:       cfg.Dropbox.AppKey,
		AppSecret:    cfg.Dropbox.AppSecret,
	}
}

// runServer serves until ctx is canceled, then shuts down gracefully.
func runServer(ctx context.Context, cfg config.ServerConfig, handler http.Handler) error {
	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     handler,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Server started", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		slog.Info("Server stopped gracefully")
	}

	return nil
}
