// Package scorer is the entry point for scoring and training. It picks the
// network when enough labels exist, trains one on first use, and degrades to
// the keyword scorer or a neutral result instead of failing a batch.
package scorer

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"

	"sieve/internal/fallback"
	"sieve/internal/logging"
	"sieve/internal/metrics"
	"sieve/internal/model"
	"sieve/internal/nn"
)

const (
	ReasonNoData       = "no training data yet"
	ReasonInsufficient = "insufficient training data"
	ReasonInstability  = "neutral: model output not a valid probability"
)

// Scorer combines a model store with a trainer writing to it.
type Scorer struct {
	store   nn.ModelStore
	trainer *nn.Trainer
	log     *logging.Logger
	cold    singleflight.Group
}

func New(store nn.ModelStore, trainer *nn.Trainer, log *logging.Logger) *Scorer {
	return &Scorer{
		store:   store,
		trainer: trainer,
		log:     logging.OrNop(log).With("component", "scorer"),
	}
}

// ScoreBatch returns one result per article, in order. It never fails as a
// whole; problems fall back to the keyword scorer or to neutral per article.
func (s *Scorer) ScoreBatch(ctx context.Context, articles []model.Article, examples []model.TrainingExample) []model.ScoreResult {
	approved, junk := model.CountLabels(examples)
	switch {
	case approved == 0 && junk == 0:
		return neutralAll(articles, ReasonNoData, "no_data")
	case !model.Sufficient(examples):
		return neutralAll(articles, ReasonInsufficient, "insufficient")
	}

	m, err := s.activeModel(ctx, examples)
	if err != nil {
		s.log.Warn("network_unavailable_using_keywords", "error", err, "articles", len(articles))
		kw := fallback.New(examples)
		out := make([]model.ScoreResult, len(articles))
		for i, a := range articles {
			out[i] = kw.Score(a)
			metrics.ScoredArticles.WithLabelValues(string(model.SourceKeyword)).Inc()
		}
		return out
	}

	out := make([]model.ScoreResult, len(articles))
	for i, a := range articles {
		out[i] = s.scoreOne(m, a)
	}
	return out
}

func (s *Scorer) scoreOne(m *nn.Model, a model.Article) model.ScoreResult {
	p := m.Predict(nn.Vectorize(a, m.Vocabulary))
	r, ok := model.FromProbability(p)
	if !ok {
		s.log.Warn("invalid_network_output", "article_id", a.ID, "p", p)
		metrics.NeutralFallbacks.WithLabelValues("instability").Inc()
		r = model.Neutral(ReasonInstability)
	}
	r.ArticleID = a.ID
	metrics.ScoredArticles.WithLabelValues(string(r.Source)).Inc()
	return r
}

// activeModel loads the active model, training and persisting one when none
// is usable. Concurrent cold starts share a single retrain.
func (s *Scorer) activeModel(ctx context.Context, examples []model.TrainingExample) (*nn.Model, error) {
	m, err := s.store.LoadActiveModel(ctx)
	if err != nil {
		s.log.Warn("load_active_model_failed", "error", err)
	}
	if m != nil {
		return m, nil
	}

	v, err, shared := s.cold.Do("cold-start", func() (interface{}, error) {
		return s.trainer.FullRetrain(ctx, examples)
	})
	trained, _ := v.(*nn.Model)
	switch {
	case err == nil:
		s.log.Info("cold_start_retrain", "model_id", trained.ID, "shared", shared)
		return trained, nil
	case errors.Is(err, nn.ErrPersist) && trained != nil:
		s.log.Error("cold_start_model_not_persisted", "error", err)
		return trained, nil
	default:
		return nil, err
	}
}

// FullRetrain rebuilds the model from examples. Too few labels is reported
// as (false, nil).
func (s *Scorer) FullRetrain(ctx context.Context, examples []model.TrainingExample) (bool, error) {
	if !model.Sufficient(examples) {
		return false, nil
	}
	if _, err := s.trainer.FullRetrain(ctx, examples); err != nil {
		return false, err
	}
	return true, nil
}

// IncrementalTrain continues training the active model on newExamples.
// epochs <= 0 uses nn.DefaultIncrementalEpochs.
func (s *Scorer) IncrementalTrain(ctx context.Context, newExamples []model.TrainingExample, epochs int) (bool, error) {
	_, err := s.trainer.IncrementalTrain(ctx, newExamples, epochs)
	switch {
	case errors.Is(err, nn.ErrInsufficientData):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func neutralAll(articles []model.Article, reason, kind string) []model.ScoreResult {
	out := make([]model.ScoreResult, len(articles))
	for i, a := range articles {
		out[i] = model.Neutral(reason)
		out[i].ArticleID = a.ID
	}
	metrics.NeutralFallbacks.WithLabelValues(kind).Add(float64(len(articles)))
	metrics.ScoredArticles.WithLabelValues(string(model.SourceNeutral)).Add(float64(len(articles)))
	return out
}
