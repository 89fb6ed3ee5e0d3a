package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cdesearch/config"
	"cdesearch/internal/adapter/store"
	"cdesearch/internal/usecase"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from stored embeddings",
	Long: `Normalize every stored embedding to unit length and build an exact
inner-product index over the vectors. The index and the ordered record-id
file are written together; the pair is swapped into place atomically so a
running server never sees a half-written index.`,
	RunE: runIndexBuild,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	st, err := store.NewBoltStore(config.StoreDBPath(dataDir))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	build := usecase.NewBuildUseCase(st, config.IndexPath(dataDir), config.IDsPath(dataDir), logger)

	stats, err := build.Build()
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyStore) {
			return fmt.Errorf("no embeddings found; run 'cdesearch embed' first")
		}
		return fmt.Errorf("index build failed: %w", err)
	}

	fmt.Printf("Index built:\n")
	fmt.Printf("  Rows:      %d\n", stats.Rows)
	fmt.Printf("  Dimension: %d\n", stats.Dim)
	if stats.Skipped > 0 {
		fmt.Printf("  Skipped:   %d (degenerate vectors)\n", stats.Skipped)
	}
	fmt.Printf("\nIndex: %s\n", config.IndexPath(dataDir))
	fmt.Printf("IDs:   %s\n", config.IDsPath(dataDir))
	return nil
}
