package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"audience-client/internal/core/services"
	applog "audience-client/internal/log"
	"audience-client/internal/mockapi"
	"audience-client/internal/pkg/config"
)

func main() {
	var (
		addr     string
		pageSize int
		minUsers int64
		maxUsers int64
		logLevel string
	)
	cmd := &cobra.Command{
		Use:          "mockapi",
		Short:        "In-memory audience API for local runs",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: applog.ParseLevel(logLevel)}))
			slog.SetDefault(logger)
			return run(addr, mockapi.NewStore(minUsers, maxUsers),
				mockapi.WithPageSize(pageSize),
				mockapi.WithLogger(logger),
				mockapi.WithRequestLogging(),
			)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultMockAddr, "listen address")
	cmd.Flags().IntVar(&pageSize, "page-size", mockapi.DefaultPageSize, "listing page size")
	cmd.Flags().Int64Var(&minUsers, "min-users", services.MinUsersPerAudience, "minimum users per audience")
	cmd.Flags().Int64Var(&maxUsers, "max-users", services.MaxUsersPerAudience, "maximum users per audience")
	cmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn or error")

	if err := cmd.Execute(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run запускает сервер и останавливает его по сигналу.
func run(addr string, store *mockapi.Store, opts ...mockapi.Option) error {
	srv := mockapi.New(store, opts...).HTTPServer(addr)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting mock audience API", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		slog.Info("Signal received, shutting down...")
	case <-serverDone:
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("Mock audience API stopped")
	return nil
}
