package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func recomputeCmd() *cobra.Command {
	var investorID string
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rescore every candidate startup for one investor",
		RunE: func(cmd *cobra.Command, args []string) error {
			zapLog, log := newLogger()
			defer func() { _ = zapLog.Sync() }()

			a, err := buildApp(cmd.Context(), log, options{})
			if err != nil {
				return fmt.Errorf("recompute: %w", err)
			}
			defer a.Close()

			res, err := a.engine.RecomputeForInvestor(cmd.Context(), investorID)
			if err != nil {
				return fmt.Errorf("recompute: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&investorID, "investor", "", "investor id")
	_ = cmd.MarkFlagRequired("investor")
	return cmd
}
