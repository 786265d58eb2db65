package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/northbridge-ai/diligence/internal/core/domain"
)

var (
	askCategory string
	askCompany  string
	askDocType  string
	askTopK     int
	askSources  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question grounded in ingested documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askCategory, "category", "", "restrict retrieval to a category: financial, legal, hr, market")
	askCmd.Flags().StringVar(&askCompany, "company", "", "restrict retrieval to a company identifier")
	askCmd.Flags().StringVar(&askDocType, "type", "", "restrict retrieval to a document type")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "n", 10, "number of context documents")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print retrieved sources after the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, _, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	answer, sources, err := app.Answerer.Answer(cmd.Context(), domain.SearchRequest{
		Query:     args[0],
		Category:  askCategory,
		CompanyID: askCompany,
		DocType:   askDocType,
		TopK:      askTopK,
	})
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	cmd.Println(answer)

	if askSources && len(sources) > 0 {
		cmd.Println("\nSources:")
		for i, s := range sources {
			filename, _ := s.Metadata["filename"].(string)
			cmd.Printf("  [%d] score=%.3f %s\n", i+1, s.Score, filename)
		}
	}
	return nil
}
