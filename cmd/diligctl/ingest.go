package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestRecursive bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Ingest a data room directory",
	Long: `Loads every supported file under the directory, chunks and
deduplicates the content, and stores it in the vector collections.
Supported formats: csv, txt, md, pdf, xlsx.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestRecursive, "recursive", "r", false, "descend into subdirectories")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	app, _, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	stats, err := app.Pipeline.IngestDirectory(cmd.Context(), args[0], ingestRecursive)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
