package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"sieve/internal/analytics"
	"sieve/internal/cmdlog"
	"sieve/internal/model"
	"sieve/internal/triage"
)

var (
	scoreIn     string
	scoreTriage bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a JSON array of articles",
	Long:  "Reads a JSON array of articles from --in (or stdin with -) and prints one result per article.",
	RunE:  runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreIn, "in", "-", "articles JSON file, - for stdin")
	scoreCmd.Flags().BoolVar(&scoreTriage, "triage", false, "apply and record automatic actions")
	rootCmd.AddCommand(scoreCmd)
}

type scoredLine struct {
	model.ScoreResult
	Band   model.Band    `json:"band"`
	Action triage.Action `json:"action,omitempty"`
}

func readArticles(cmd *cobra.Command, path string) ([]model.Article, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var articles []model.Article
	if err := json.NewDecoder(r).Decode(&articles); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	v := validator.New()
	for i := range articles {
		if err := v.Struct(articles[i]); err != nil {
			return nil, fmt.Errorf("article %d: %w", i, err)
		}
	}
	return articles, nil
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	articles, err := readArticles(cmd, scoreIn)
	if err != nil {
		return err
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return cmdlog.Run(a.log, "score", func() error {
		return scoreArticles(cmd, a, articles)
	})
}

func scoreArticles(cmd *cobra.Command, a *app, articles []model.Article) error {
	ctx := cmd.Context()
	examples, err := a.store.LoadExamples(ctx)
	if err != nil {
		return fmt.Errorf("load examples: %w", err)
	}
	results := a.scorer.ScoreBatch(ctx, articles, examples)
	a.log.Info("score_batch",
		"articles", len(articles),
		"bands", analytics.Distribution(results),
		"sources", analytics.BySource(results))

	out := make([]scoredLine, len(results))
	for i, r := range results {
		out[i] = scoredLine{ScoreResult: r, Band: r.Band()}
	}
	if scoreTriage {
		gate := triage.NewGate(a.store, a.cfg.Triage, a.log)
		actions, err := gate.ApplyAll(ctx, time.Now(), results)
		if err != nil {
			return err
		}
		for i, act := range actions {
			out[i].Action = act
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
