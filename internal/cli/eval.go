package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cdesearch/config"
	"cdesearch/internal/adapter/store"
	"cdesearch/internal/usecase"
)

var (
	evalQueriesFile string
	evalOutput      string
	evalTopK        int
)

// Default probe queries covering common CDE topics.
var defaultEvalQueries = []string{
	"patient reported symptoms of high blood pressure",
	"assessment scale for patient pain level",
	"demographic information including age and gender",
	"measurement of body weight",
	"history of diabetes mellitus",
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Run canned queries against the index and write a text report",
	Long: `Run a fixed set of evaluation queries through the full embed-and-search
path and write the ranked results with record texts to a report file, for
manual relevance review.

Queries come from --queries (one per line) or a built-in default set.
Each query is a separate provider call, paced by the shared rate limit.`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVar(&evalQueriesFile, "queries", "", "file with one query per line")
	evalCmd.Flags().StringVarP(&evalOutput, "output", "o", "eval_results.txt", "report file path")
	evalCmd.Flags().IntVarP(&evalTopK, "top-k", "k", 5, "results per query")
}

func runEval(cmd *cobra.Command, args []string) error {
	queries := defaultEvalQueries
	if evalQueriesFile != "" {
		loaded, err := readQueries(evalQueriesFile)
		if err != nil {
			return fmt.Errorf("failed to read queries: %w", err)
		}
		queries = loaded
	}
	if len(queries) == 0 {
		return fmt.Errorf("no evaluation queries")
	}

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

	out, err := os.Create(evalOutput)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "CDE Semantic Search Evaluation\n")
	fmt.Fprintf(w, "==============================\n")
	fmt.Fprintf(w, "(top %d results per query, %d queries)\n\n", evalTopK, len(queries))

	for i, query := range queries {
		fmt.Printf("Query %d/%d: %s\n", i+1, len(queries), query)
		fmt.Fprintf(w, "--- Query %d: %s ---\n", i+1, query)

		vector, err := queryEmbed.EmbedQuery(cmd.Context(), query)
		if err != nil {
			fmt.Fprintf(w, "  embedding failed: %v\n\n", err)
			continue
		}

		results, err := searcher.Search(vector, evalTopK)
		if err != nil {
			fmt.Fprintf(w, "  search failed: %v\n\n", err)
			continue
		}
		if len(results) == 0 {
			fmt.Fprintf(w, "  no results\n\n")
			continue
		}

		for rank, res := range results {
			text := "*text not found*"
			if rec, err := st.GetRecord(res.ID); err == nil {
				text = rec.Text
			}
			fmt.Fprintf(w, "  %d. ID %d (score %.4f)\n", rank+1, res.ID, res.Score)
			fmt.Fprintf(w, "     %s\n", text)
		}
		fmt.Fprintln(w)
	}

	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nReport written to %s\n", evalOutput)
	return nil
}

func readQueries(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var queries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			queries = append(queries, line)
		}
	}
	return queries, scanner.Err()
}
