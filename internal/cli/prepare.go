package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cdesearch/config"
	"cdesearch/internal/adapter/corpus"
	"cdesearch/internal/adapter/store"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare [path]",
	Short: "Ingest and clean CDE source files",
	Long: `Locate CDE CSV files under the given path, strip HTML tags and
extra whitespace from the text column, drop empty rows and store the
cleaned records in the local database.

Examples:
  cdesearch prepare ./data
  cdesearch prepare data/cde_all.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, args []string) error {
	path := dataDir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	var files []string
	if info.IsDir() {
		finder := corpus.NewFinder(cfg.Corpus.Includes, cfg.Corpus.Excludes)
		files, err = finder.Find(path)
		if err != nil {
			return fmt.Errorf("failed to scan for corpus files: %w", err)
		}
	} else {
		files = []string{path}
	}
	if len(files) == 0 {
		return fmt.Errorf("no corpus files found under %s", path)
	}

	loader := corpus.NewLoader(cfg.Corpus.TextColumn, cfg.Corpus.IDColumn)
	result, err := loader.LoadFiles(files)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	if len(result.Records) == 0 {
		return fmt.Errorf("no usable records found in %d file(s)", len(files))
	}

	if err := config.EnsureDataDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.NewBoltStore(config.StoreDBPath(dataDir))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if err := st.PutRecords(result.Records); err != nil {
		return fmt.Errorf("failed to store records: %w", err)
	}

	fmt.Printf("Prepared corpus:\n")
	fmt.Printf("  Files read:      %d\n", len(files))
	fmt.Printf("  Records stored:  %d\n", len(result.Records))
	fmt.Printf("  Rows dropped:    %d (missing or empty text)\n", result.Dropped)
	fmt.Printf("\nStore: %s\n", config.StoreDBPath(dataDir))
	return nil
}
