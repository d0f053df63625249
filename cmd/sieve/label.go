package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sieve/internal/cmdlog"
	"sieve/internal/model"
)

var (
	labelTitle       string
	labelDescription string
	labelNotes       string
	labelSource      string
	labelValue       string
	labelEpochs      int
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Record a label and train on it",
	RunE:  runLabel,
}

func init() {
	f := labelCmd.Flags()
	f.StringVar(&labelTitle, "title", "", "article title")
	f.StringVar(&labelDescription, "description", "", "article description")
	f.StringVar(&labelNotes, "notes", "", "reviewer notes")
	f.StringVar(&labelSource, "source", "", "source name")
	f.StringVar(&labelValue, "label", "", "approved or junk")
	f.IntVar(&labelEpochs, "epochs", 0, "incremental epochs (0 uses the configured default)")
	_ = labelCmd.MarkFlagRequired("title")
	_ = labelCmd.MarkFlagRequired("label")
	rootCmd.AddCommand(labelCmd)
}

func runLabel(cmd *cobra.Command, _ []string) error {
	label, ok := model.ParseLabel(labelValue)
	if !ok {
		return fmt.Errorf("unknown label %q (want approved or junk)", labelValue)
	}
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return cmdlog.Run(a.log, "label", func() error { return storeLabel(cmd, a, label) })
}

func storeLabel(cmd *cobra.Command, a *app, label model.Label) error {
	ctx := cmd.Context()
	ex := model.TrainingExample{
		Title:       labelTitle,
		Description: labelDescription,
		SourceName:  labelSource,
		Notes:       labelNotes,
		Label:       label,
	}
	id, err := a.store.PutExample(ctx, ex)
	if err != nil {
		return fmt.Errorf("store label: %w", err)
	}
	epochs := labelEpochs
	if epochs <= 0 {
		epochs = a.cfg.Training.IncrementalEpochs
	}
	trained, err := a.scorer.IncrementalTrain(ctx, []model.TrainingExample{ex}, epochs)
	if err != nil {
		return fmt.Errorf("label %d stored, training failed: %w", id, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "label %d stored as %s\n", id, label)
	if !trained {
		fmt.Fprintln(out, "not trained yet: need at least 2 approved and 2 junk labels")
	}
	return nil
}
