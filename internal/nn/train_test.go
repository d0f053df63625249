package nn

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sieve/internal/model"
)

// memStore is an in-memory ModelStore that keeps the encoded state, so every
// load goes through the persistence codec.
type memStore struct {
	mu        sync.Mutex
	data      []byte
	id        uuid.UUID
	version   int64
	saves     int
	updates   int
	loads     int
	saveErr   error
	staleOnce bool
}

func (s *memStore) SaveModel(_ context.Context, m *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	b, err := MarshalState(m)
	if err != nil {
		return err
	}
	s.saves++
	s.data, s.id, s.version = b, uuid.New(), 1
	m.ID, m.Version = s.id, s.version
	return nil
}

func (s *memStore) UpdateModel(_ context.Context, m *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleOnce {
		s.staleOnce = false
		s.version++
		return ErrStaleModel
	}
	if m.ID != s.id || m.Version != s.version {
		return ErrStaleModel
	}
	b, err := MarshalState(m)
	if err != nil {
		return err
	}
	s.updates++
	s.data = b
	s.version++
	m.Version = s.version
	return nil
}

func (s *memStore) LoadActiveModel(context.Context) (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.data == nil {
		return nil, nil
	}
	m, err := UnmarshalState(s.data)
	if err != nil {
		return nil, err
	}
	m.ID, m.Version = s.id, s.version
	return m, nil
}

type staticHistory []model.TrainingExample

func (h staticHistory) LoadExamples(context.Context) ([]model.TrainingExample, error) { return h, nil }

func chipLotteryExamples() []model.TrainingExample {
	return []model.TrainingExample{
		model.Approved("Chip semiconductor processor design unveiled", ""),
		model.Approved("Chip semiconductor processor maker posts record revenue", ""),
		model.Approved("Chip semiconductor processor shortage eases", ""),
		model.Junk("Lottery jackpot ticket prize soars tonight", ""),
		model.Junk("Lottery jackpot ticket winner claims prize", ""),
		model.Junk("Lottery jackpot ticket scam warning", ""),
	}
}

func TestFullRetrainChipVersusLottery(t *testing.T) {
	store := &memStore{}
	tr := NewTrainer(store, WithSeed(42))

	m, err := tr.FullRetrain(context.Background(), chipLotteryExamples())
	require.NoError(t, err)
	require.Equal(t, 1, store.saves)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.EqualValues(t, 6*FullEpochs, m.TrainingCount)
	assert.Equal(t, len(m.Vocabulary), m.Net.InputSize)

	chip := m.Predict(Vectorize(model.Article{Title: "Chip semiconductor processor breakthrough"}, m.Vocabulary))
	lottery := m.Predict(Vectorize(model.Article{Title: "Lottery jackpot ticket results"}, m.Vocabulary))
	assert.Greater(t, chip, 0.5)
	assert.Less(t, lottery, 0.5)
}

func TestFullRetrainInsufficientData(t *testing.T) {
	store := &memStore{}
	tr := NewTrainer(store, WithSeed(1))
	ex := []model.TrainingExample{model.Approved("chip one", ""), model.Approved("chip two", ""), model.Junk("lottery", "")}

	m, err := tr.FullRetrain(context.Background(), ex)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Zero(t, store.saves)
}

func TestFullRetrainPersistFailureReturnsModel(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	tr := NewTrainer(store, WithSeed(3))

	m, err := tr.FullRetrain(context.Background(), chipLotteryExamples())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	require.NotNil(t, m)
	assert.NotEmpty(t, m.Vocabulary)
}

func TestTrainingErrorDecreases(t *testing.T) {
	ex := chipLotteryExamples()
	tr := NewTrainer(&memStore{}, WithSeed(5))
	vocab := BuildVocabulary(ex, DefaultMaxFeatures)
	samples := Samples(ex, vocab)
	net := NewNetwork(len(vocab), tr.rng)

	var checkpoints []float64
	initial := MeanAbsError(net, samples)
	Fit(net, samples, FullEpochs, tr.rng, func(epoch int) {
		if epoch%20 == 0 {
			checkpoints = append(checkpoints, MeanAbsError(net, samples))
		}
	})
	require.Len(t, checkpoints, 5)

	increases := 0
	for i := 1; i < len(checkpoints); i++ {
		if checkpoints[i] > checkpoints[i-1]+1e-6 {
			increases++
		}
	}
	assert.LessOrEqual(t, increases, 1, "checkpoints %v", checkpoints)
	assert.Less(t, checkpoints[len(checkpoints)-1], initial)
}

func TestIncrementalTrainKeepsVocabulary(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	tr := NewTrainer(store, WithSeed(9))
	base, err := tr.FullRetrain(ctx, chipLotteryExamples())
	require.NoError(t, err)

	fresh := []model.TrainingExample{model.Approved("Chip exports climb amid brandnewword", "")}
	m, err := tr.IncrementalTrain(ctx, fresh, 0)
	require.NoError(t, err)

	assert.Equal(t, base.Vocabulary, m.Vocabulary)
	assert.NotContains(t, m.Vocabulary, "brandnewword")
	assert.Equal(t, base.TrainingCount+int64(DefaultIncrementalEpochs), m.TrainingCount)
	assert.Equal(t, base.ID, m.ID)
	assert.EqualValues(t, 2, m.Version)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, store.updates)
}

func TestIncrementalTrainRetriesStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	tr := NewTrainer(store, WithSeed(10))
	_, err := tr.FullRetrain(ctx, chipLotteryExamples())
	require.NoError(t, err)

	store.staleOnce = true
	_, err = tr.IncrementalTrain(ctx, []model.TrainingExample{model.Junk("Lottery", "")}, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, store.loads)
	assert.Equal(t, 1, store.updates)
}

func TestIncrementalTrainDegradesToFullRetrain(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	hist := staticHistory(chipLotteryExamples())
	tr := NewTrainer(store, WithSeed(11), WithHistory(hist))

	fresh := []model.TrainingExample{model.Approved("Chip packaging advances", "")}
	m, err := tr.IncrementalTrain(ctx, fresh, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	assert.EqualValues(t, 7*FullEpochs, m.TrainingCount)
}

func TestIncrementalTrainDegradeInsufficient(t *testing.T) {
	tr := NewTrainer(&memStore{}, WithSeed(12))
	_, err := tr.IncrementalTrain(context.Background(), []model.TrainingExample{model.Approved("chip", "")}, 20)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestIncrementalTrainCorruptModelRetrains(t *testing.T) {
	store := &memStore{data: []byte(`{"inputSize": 3}`), id: uuid.New(), version: 1}
	tr := NewTrainer(store, WithSeed(13), WithHistory(staticHistory(chipLotteryExamples())))

	m, err := tr.IncrementalTrain(context.Background(), nil, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
	assert.NotNil(t, m)
}

func TestMergeExamplesDeduplicates(t *testing.T) {
	a := model.Approved("chip", "")
	b := model.Junk("lottery", "")
	got := mergeExamples([]model.TrainingExample{a, b}, []model.TrainingExample{b, model.Junk("scam", "")})
	assert.Len(t, got, 3)
}
