package main

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the diligctl version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("diligctl " + version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
