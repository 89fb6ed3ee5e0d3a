package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"cdesearch/config"
	"cdesearch/internal/adapter/embedding"
	"cdesearch/internal/adapter/store"
	"cdesearch/internal/port"
	"cdesearch/internal/usecase"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Generate document embeddings for the prepared corpus",
	Long: `Send every prepared record to the embedding provider in batches and
store the raw vectors. Calls are paced to the provider's request quota, so
large corpora take a while by design.

A provider failure aborts the run; batches embedded before the failure
remain stored.`,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	st, err := store.NewBoltStore(config.StoreDBPath(dataDir))
	if err != nil {
		return fmt.Errorf("failed to open store (run 'cdesearch prepare' first): %w", err)
	}
	defer st.Close()

	embedder, err := newEmbedder()
	if err != nil {
		return err
	}

	gen := usecase.NewGenerateUseCase(st, st, embedder, cfg.Embedding.BatchSize, logger)

	var bar *progressbar.ProgressBar
	progress := func(embedded, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(embedded)
	}

	stats, err := gen.Generate(cmd.Context(), progress)
	if err != nil {
		if stats.Embedded > 0 {
			fmt.Printf("\nRun aborted after %d of %d records (%d batches kept): %v\n",
				stats.Embedded, stats.Records, stats.Batches, err)
		}
		return fmt.Errorf("embedding generation failed: %w", err)
	}

	fmt.Printf("\nEmbedding complete:\n")
	fmt.Printf("  Model:     %s\n", embedder.ModelName())
	fmt.Printf("  Records:   %d\n", stats.Embedded)
	fmt.Printf("  Batches:   %d\n", stats.Batches)
	return nil
}

// newEmbedder builds the configured embedding provider. Shared by the
// embed, query, eval and serve commands so document and query vectors
// always come from the same model.
func newEmbedder() (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "voyage":
		embedder, err := embedding.NewVoyageEmbedder(
			cfg.Embedding.APIKeyEnv,
			cfg.Embedding.Model,
			cfg.Embedding.RequestsPerMinute,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return embedder, nil
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}
