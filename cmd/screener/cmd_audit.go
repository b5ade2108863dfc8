package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	auditStore string
	auditLimit int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the screening audit store",
}

var auditRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print the most recent audit records as NDJSON, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if auditLimit <= 0 {
			return fmt.Errorf("--limit must be positive, got %d", auditLimit)
		}
		store, err := openStore(cmd.Context(), cfg.Audit, auditStore)
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.Recent(cmd.Context(), auditLimit)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, rec := range recs {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	},
}

var auditCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored audit records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(cmd.Context(), cfg.Audit, auditStore)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
		return err
	},
}

func init() {
	auditCmd.PersistentFlags().StringVar(&auditStore, "store", "", "sqlite or postgres (default: postgres if it is a configured sink, else sqlite)")
	auditRecentCmd.Flags().IntVar(&auditLimit, "limit", 20, "maximum records to print")
	auditCmd.AddCommand(auditRecentCmd)
	auditCmd.AddCommand(auditCountCmd)
}
