package main

import (
	"github.com/spf13/cobra"

	"sieve/internal/cmdlog"
	"sieve/internal/jobs"
)

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Rebuild the model from every stored label",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return cmdlog.Run(a.log, "retrain", func() error {
			return jobs.RunRetrainOnce(cmd.Context(), a.store, a.scorer, a.log)
		})
	},
}

func init() {
	rootCmd.AddCommand(retrainCmd)
}
