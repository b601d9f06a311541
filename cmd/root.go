// Package cmd contains the amblue command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "amblue",
	Short: "amblue - conversational analytics and retrieval agent service",
	Long: `amblue serves a conversational agent platform over HTTP.

A supervisor routes each question to a cost-analytics agent backed by SQL
tools or to a document-retrieval agent backed by a pgvector knowledge base.
Answers stream as NDJSON events; conversations and agent checkpoints persist
in PostgreSQL.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
