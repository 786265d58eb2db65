package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

var (
	searchCategory string
	searchCompany  string
	searchDocType  string
	searchTopK     int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested documents",
	Long: `Performs hybrid search over the ingested documents, blending
semantic similarity with BM25 keyword matching.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "restrict to a category: financial, legal, hr, market")
	searchCmd.Flags().StringVar(&searchCompany, "company", "", "restrict to a company identifier")
	searchCmd.Flags().StringVar(&searchDocType, "type", "", "restrict to a document type")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	app, _, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	results, err := app.Searcher.Search(cmd.Context(), domain.SearchRequest{
		Query:     args[0],
		Category:  searchCategory,
		CompanyID: searchCompany,
		DocType:   searchDocType,
		TopK:      searchTopK,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, r := range results {
		source, _ := r.Metadata["filename"].(string)
		cmd.Printf("[%d] score=%.3f", i+1, r.Score)
		if source != "" {
			cmd.Printf(" %s", source)
		}
		cmd.Println()
		cmd.Printf("    %s\n\n", snippet(r.Content, 240))
	}
	return nil
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
