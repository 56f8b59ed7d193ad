package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmorales/periogame/internal/config"
	"github.com/dmorales/periogame/internal/logger"
	"github.com/dmorales/periogame/internal/sandbox"
)

func newSandboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sandbox",
		Short: "Run a local stand-in backend with a demo question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSandbox(cmd.Context())
		},
	}
}

func runSandbox(ctx context.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.Default().WithPrefix("cli")

	store, err := sandbox.Open(cfg.SandboxDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	group, err := sandbox.Seed(ctx, store)
	if err != nil {
		return err
	}
	if group != nil {
		log.Info("demo group ready: code=%s name=%q", group.Code, group.Name)
	}

	srv := &http.Server{
		Addr:         cfg.SandboxAddr,
		Handler:      sandbox.NewServer(store).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("sandbox backend listening on %s", cfg.SandboxAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("sandbox server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info("received signal %v, shutting down", sig)
	case <-ctx.Done():
		log.Info("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
