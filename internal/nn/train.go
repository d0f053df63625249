package nn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"sieve/internal/logging"
	"sieve/internal/metrics"
	"sieve/internal/model"
)

const (
	FullEpochs               = 100
	DefaultIncrementalEpochs = 20
	maxUpdateAttempts        = 3
)

// ModelStore persists the single active model.
type ModelStore interface {
	// SaveModel deactivates any active model and stores m as the new active
	// one in one transaction. It assigns m.ID and m.Version.
	SaveModel(ctx context.Context, m *Model) error
	// UpdateModel overwrites the active row in place if its version still
	// equals m.Version, then bumps m.Version. Otherwise ErrStaleModel.
	UpdateModel(ctx context.Context, m *Model) error
	// LoadActiveModel returns nil, nil when no model is active.
	LoadActiveModel(ctx context.Context) (*Model, error)
}

// ExampleSource supplies the full labeled history.
type ExampleSource interface {
	LoadExamples(ctx context.Context) ([]model.TrainingExample, error)
}

// Trainer runs full and incremental training against a ModelStore.
// Calls are serialised; one Trainer is the single writer for its store.
type Trainer struct {
	mu          sync.Mutex
	store       ModelStore
	history     ExampleSource
	log         *logging.Logger
	rng         *rand.Rand
	maxFeatures int
	now         func() time.Time
}

type TrainerOption func(*Trainer)

// WithRand sets the random source used for initialisation and shuffling.
func WithRand(r *rand.Rand) TrainerOption { return func(t *Trainer) { t.rng = r } }

// WithSeed seeds a deterministic PCG source.
func WithSeed(seed uint64) TrainerOption {
	return func(t *Trainer) { t.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func WithMaxFeatures(n int) TrainerOption { return func(t *Trainer) { t.maxFeatures = n } }

// WithHistory sets the source used when incremental training has to fall
// back to a full retrain.
func WithHistory(src ExampleSource) TrainerOption { return func(t *Trainer) { t.history = src } }

func WithLogger(l *logging.Logger) TrainerOption { return func(t *Trainer) { t.log = l } }

func NewTrainer(store ModelStore, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		store:       store,
		maxFeatures: DefaultMaxFeatures,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(t)
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	t.log = logging.OrNop(t.log).With("component", "trainer")
	return t
}

// Fit runs epochs of online SGD. Each epoch shuffles samples (Fisher-Yates)
// then calls TrainOne once per sample. observe, if set, runs after each epoch.
func Fit(net *Network, samples []FeatureVector, epochs int, rng *rand.Rand, observe func(epoch int)) {
	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	for epoch := 1; epoch <= epochs; epoch++ {
		for i := len(order) - 1; i > 0; i-- {
			j := rng.IntN(i + 1)
			order[i], order[j] = order[j], order[i]
		}
		for _, idx := range order {
			net.TrainOne(samples[idx].X, samples[idx].Y)
		}
		if observe != nil {
			observe(epoch)
		}
	}
}

// MeanAbsError is the average |target - predict(x)| over samples.
func MeanAbsError(net *Network, samples []FeatureVector) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(s.Y[0] - net.Predict(s.X))
	}
	return sum / float64(len(samples))
}

// Train builds a fresh vocabulary and network and trains it for FullEpochs,
// without persisting anything.
func (t *Trainer) Train(examples []model.TrainingExample) (*Model, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.train(examples)
}

func (t *Trainer) train(examples []model.TrainingExample) (*Model, error) {
	if !model.Sufficient(examples) {
		a, j := model.CountLabels(examples)
		return nil, fmt.Errorf("%w: %d approved, %d junk", ErrInsufficientData, a, j)
	}
	vocab := BuildVocabulary(examples, t.maxFeatures)
	net := NewNetwork(len(vocab), t.rng)
	Fit(net, Samples(examples, vocab), FullEpochs, t.rng, nil)
	now := t.now()
	return &Model{
		Net:           net,
		Vocabulary:    vocab,
		TrainingCount: int64(len(examples) * FullEpochs),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// FullRetrain trains from scratch and persists the result as the new active
// model. When only persistence fails the trained model is still returned,
// together with an error wrapping ErrPersist.
func (t *Trainer) FullRetrain(ctx context.Context, examples []model.TrainingExample) (*Model, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fullRetrain(ctx, examples)
}

func (t *Trainer) fullRetrain(ctx context.Context, examples []model.TrainingExample) (m *Model, err error) {
	start := time.Now()
	defer func() { metrics.ObserveTraining("full", start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err = t.train(examples)
	if err != nil {
		return nil, err
	}
	if err := t.store.SaveModel(ctx, m); err != nil {
		metrics.ModelSaveErrors.Inc()
		t.log.Error("model_save_failed", "error", err, "vocabulary", len(m.Vocabulary))
		return m, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	t.log.Info("full_retrain_done",
		"model_id", m.ID, "examples", len(examples), "vocabulary", len(m.Vocabulary),
		"duration", time.Since(start))
	return m, nil
}

// IncrementalTrain continues training the active model on newExamples only,
// keeping its vocabulary. With no usable active model it degrades to a full
// retrain over the example history.
func (t *Trainer) IncrementalTrain(ctx context.Context, newExamples []model.TrainingExample, epochs int) (*Model, error) {
	if epochs <= 0 {
		epochs = DefaultIncrementalEpochs
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for attempt := 1; ; attempt++ {
		m, err := t.store.LoadActiveModel(ctx)
		if err != nil && !errors.Is(err, ErrCorruptModel) {
			return nil, fmt.Errorf("nn: load active model: %w", err)
		}
		if m == nil {
			if err != nil {
				t.log.Warn("active_model_corrupt", "error", err)
			}
			return t.retrainFromHistory(ctx, newExamples)
		}

		m, err = t.incremental(ctx, m, newExamples, epochs)
		if errors.Is(err, ErrStaleModel) && attempt < maxUpdateAttempts {
			t.log.Warn("incremental_update_conflict", "attempt", attempt)
			continue
		}
		return m, err
	}
}

func (t *Trainer) incremental(ctx context.Context, m *Model, newExamples []model.TrainingExample, epochs int) (_ *Model, err error) {
	start := time.Now()
	defer func() { metrics.ObserveTraining("incremental", start, err) }()

	samples := Samples(newExamples, m.Vocabulary)
	Fit(m.Net, samples, epochs, t.rng, nil)
	m.TrainingCount += int64(len(newExamples) * epochs)
	m.UpdatedAt = t.now()

	if err := t.store.UpdateModel(ctx, m); err != nil {
		if errors.Is(err, ErrStaleModel) {
			return nil, err
		}
		metrics.ModelSaveErrors.Inc()
		return m, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	t.log.Info("incremental_train_done",
		"model_id", m.ID, "examples", len(newExamples), "epochs", epochs,
		"training_count", m.TrainingCount)
	return m, nil
}

func (t *Trainer) retrainFromHistory(ctx context.Context, newExamples []model.TrainingExample) (*Model, error) {
	all := newExamples
	if t.history != nil {
		hist, err := t.history.LoadExamples(ctx)
		if err != nil {
			return nil, fmt.Errorf("nn: load example history: %w", err)
		}
		all = mergeExamples(hist, newExamples)
	}
	t.log.Info("incremental_degraded_to_full_retrain", "examples", len(all))
	return t.fullRetrain(ctx, all)
}

// mergeExamples appends the new examples not already present in hist.
func mergeExamples(hist, fresh []model.TrainingExample) []model.TrainingExample {
	seen := make(map[model.TrainingExample]struct{}, len(hist))
	for _, e := range hist {
		seen[e] = struct{}{}
	}
	out := append([]model.TrainingExample(nil), hist...)
	for _, e := range fresh {
		if _, ok := seen[e]; !ok {
			out = append(out, e)
		}
	}
	return out
}
