package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cdesearch/config"
	"cdesearch/internal/adapter/store"
	"cdesearch/internal/server"
	"cdesearch/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP",
	Long: `Load the vector index once and serve similarity queries over HTTP.

If the index cannot be loaded the server still starts but answers every
search with 503, so a broken artifact pair never produces wrong results.
Rebuild the index with 'cdesearch index' and restart to recover.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := store.NewBoltStore(config.StoreDBPath(dataDir))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	searcher := usecase.NewSearcher(config.IndexPath(dataDir), config.IDsPath(dataDir), logger)
	if err := searcher.Load(); err != nil {
		logger.Error("index load failed; serving fail-closed", zap.Error(err))
	}

	embedder, err := newEmbedder()
	if err != nil {
		// Queries cannot be embedded without a provider; the search
		// handler reports this per request instead of crashing here.
		logger.Error("embedding provider unavailable", zap.Error(err))
		embedder = nil
	}
	queryEmbed := usecase.NewQueryEmbedUseCase(embedder, logger)

	var authToken string
	if cfg.Server.AuthTokenEnv != "" {
		authToken = os.Getenv(cfg.Server.AuthTokenEnv)
		if authToken == "" {
			return fmt.Errorf("auth enabled but %s is not set", cfg.Server.AuthTokenEnv)
		}
	}

	srv := server.NewServer(searcher, queryEmbed, st, cfg, authToken, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	}
}
