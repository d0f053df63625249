package nn

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sieve/internal/model"
)

func trainedModel(t *testing.T) *Model {
	t.Helper()
	tr := NewTrainer(&memStore{}, WithSeed(21))
	m, err := tr.Train(chipLotteryExamples())
	require.NoError(t, err)
	return m
}

func TestStateRoundTripIsExact(t *testing.T) {
	m := trainedModel(t)
	b, err := MarshalState(m)
	require.NoError(t, err)

	got, err := UnmarshalState(b)
	require.NoError(t, err)
	assert.Equal(t, m.Vocabulary, got.Vocabulary)
	assert.Equal(t, m.TrainingCount, got.TrainingCount)

	for _, a := range []model.Article{
		{Title: "Chip breakthrough"},
		{Title: "Lottery results"},
		{Title: "Unrelated gardening tips"},
	} {
		x := Vectorize(a, m.Vocabulary)
		require.Equal(t, m.Predict(x), got.Predict(Vectorize(a, got.Vocabulary)))
	}
}

func TestStateFieldNames(t *testing.T) {
	b, err := MarshalState(trainedModel(t))
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, k := range []string{"inputSize", "hiddenSize", "outputSize", "weightsInputHidden",
		"weightsHiddenOutput", "biasHidden", "biasOutput", "learningRate", "trainingCount", "vocabulary"} {
		assert.Contains(t, raw, k)
	}
}

func TestEmptyVocabularyRoundTrip(t *testing.T) {
	m := &Model{Net: NewNetwork(0, testRand())}
	b, err := MarshalState(m)
	require.NoError(t, err)
	got, err := UnmarshalState(b)
	require.NoError(t, err)
	assert.Equal(t, m.Predict(nil), got.Predict(nil))
}

func TestUnmarshalStateRejectsCorruption(t *testing.T) {
	_, err := UnmarshalState([]byte("{not json"))
	assert.ErrorIs(t, err, ErrCorruptModel)

	_, err = UnmarshalState([]byte(`{"inputSize":2,"hiddenSize":20,"outputSize":1,"vocabulary":["a"]}`))
	assert.ErrorIs(t, err, ErrCorruptModel)
}

func TestMarshalStateRejectsNonFinite(t *testing.T) {
	m := trainedModel(t)
	m.Net.BiasHidden[3] = math.NaN()
	_, err := MarshalState(m)
	assert.ErrorIs(t, err, ErrCorruptModel)

	m = trainedModel(t)
	m.Vocabulary = m.Vocabulary[:1]
	_, err = MarshalState(m)
	assert.ErrorIs(t, err, ErrCorruptModel)
}
