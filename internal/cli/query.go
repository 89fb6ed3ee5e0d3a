package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cdesearch/config"
	"cdesearch/internal/adapter/store"
	"cdesearch/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the corpus for records similar to a free-text query",
	Long: `Embed the query with the same model that embedded the corpus and
return the most similar records ranked by cosine similarity.

Examples:
  cdesearch query -q "blood pressure measurement"
  cdesearch query -q "pain assessment scale" --top-k 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

type queryResult struct {
	Rank  int     `json:"rank"`
	ID    int64   `json:"id"`
	Score float32 `json:"score"`
	Text  string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	st, err := store.NewBoltStore(config.StoreDBPath(dataDir))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	searcher := usecase.NewSearcher(config.IndexPath(dataDir), config.IDsPath(dataDir), logger)
	if err := searcher.Load(); err != nil {
		return fmt.Errorf("no index found; run 'cdesearch index' first: %w", err)
	}

	embedder, err := newEmbedder()
	if err != nil {
		return err
	}
	queryEmbed := usecase.NewQueryEmbedUseCase(embedder, logger)

	topK := cfg.Search.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	vector, err := queryEmbed.EmbedQuery(cmd.Context(), queryText)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := searcher.Search(vector, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	output := make([]queryResult, 0, len(results))
	for _, res := range results {
		if cfg.Search.MinScore > 0 && float64(res.Score) < cfg.Search.MinScore {
			continue
		}
		qr := queryResult{Rank: len(output) + 1, ID: res.ID, Score: res.Score}
		if rec, err := st.GetRecord(res.ID); err == nil {
			qr.Text = rec.Text
		}
		output = append(output, qr)
	}

	if queryJSON {
		data, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if len(output) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(output), queryText)
	for _, r := range output {
		text := r.Text
		if len(text) > 150 {
			text = text[:150] + "..."
		}
		fmt.Printf("%3d. ID %-8d score %.4f  %s\n", r.Rank, r.ID, r.Score, text)
	}
	return nil
}
