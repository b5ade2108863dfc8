package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/screener/internal/questions"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Print the AQ-10 question text",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, q := range questions.All() {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", q.ID, q.Text); err != nil {
				return err
			}
		}
		return nil
	},
}
