package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cdesearch/config"
)

var (
	cfgFile string
	cfg     *config.Config
	dataDir string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cdesearch",
	Short: "Semantic search over Common Data Element descriptions",
	Long: `cdesearch embeds a corpus of Common Data Element (CDE) descriptions
with a remote embedding model, builds an exact cosine-similarity index over
the vectors, and answers free-text queries with the most similar records.

Typical workflow:
  cdesearch prepare ./data         # Ingest and clean the CDE CSV files
  cdesearch embed                  # Generate document embeddings
  cdesearch index                  # Build the vector index
  cdesearch query -q "blood pressure measurement"
  cdesearch serve                  # Expose the search API over HTTP`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if dataDir == "" {
			dataDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(dataDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = newLogger(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./cdesearch.yaml)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "data directory (default is current directory)")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
