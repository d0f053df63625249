package nn

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientData is returned when either class has fewer than two examples.
	ErrInsufficientData = errors.New("nn: insufficient training data")
	// ErrCorruptModel is returned when a persisted model fails to decode or validate.
	ErrCorruptModel = errors.New("nn: corrupt model")
	// ErrPersist wraps storage failures while saving a trained model.
	ErrPersist = errors.New("nn: model not persisted")
	// ErrStaleModel is returned by ModelStore.UpdateModel when the active row
	// changed since the model was loaded.
	ErrStaleModel = errors.New("nn: stale model version")
)

// Model is a trained network together with the vocabulary it was trained on.
type Model struct {
	ID            uuid.UUID
	Version       int64
	Net           *Network
	Vocabulary    Vocabulary
	TrainingCount int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Predict scores an already vectorized input.
func (m *Model) Predict(x []float64) float64 { return m.Net.Predict(x) }

// state is the persisted shape. Nested arrays keep full float64 precision
// through encoding/json.
type state struct {
	InputSize           int         `json:"inputSize"`
	HiddenSize          int         `json:"hiddenSize"`
	OutputSize          int         `json:"outputSize"`
	WeightsInputHidden  [][]float64 `json:"weightsInputHidden"`
	WeightsHiddenOutput [][]float64 `json:"weightsHiddenOutput"`
	BiasHidden          []float64   `json:"biasHidden"`
	BiasOutput          []float64   `json:"biasOutput"`
	LearningRate        float64     `json:"learningRate"`
	TrainingCount       int64       `json:"trainingCount"`
	Vocabulary          []string    `json:"vocabulary"`
}

// MarshalState encodes the network, vocabulary and training count.
func MarshalState(m *Model) ([]byte, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}
	n := m.Net
	vocab := []string(m.Vocabulary)
	if vocab == nil {
		vocab = []string{}
	}
	return json.Marshal(state{
		InputSize:           n.InputSize,
		HiddenSize:          n.HiddenSize,
		OutputSize:          n.OutputSize,
		WeightsInputHidden:  n.WeightsInputHidden,
		WeightsHiddenOutput: n.WeightsHiddenOutput,
		BiasHidden:          n.BiasHidden,
		BiasOutput:          n.BiasOutput,
		LearningRate:        n.LearningRate,
		TrainingCount:       m.TrainingCount,
		Vocabulary:          vocab,
	})
}

// UnmarshalState decodes a persisted model. Any decode or validation failure
// wraps ErrCorruptModel.
func UnmarshalState(data []byte) (*Model, error) {
	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	m := &Model{
		Net: &Network{
			InputSize:           s.InputSize,
			HiddenSize:          s.HiddenSize,
			OutputSize:          s.OutputSize,
			LearningRate:        s.LearningRate,
			WeightsInputHidden:  s.WeightsInputHidden,
			WeightsHiddenOutput: s.WeightsHiddenOutput,
			BiasHidden:          s.BiasHidden,
			BiasOutput:          s.BiasOutput,
		},
		Vocabulary:    Vocabulary(s.Vocabulary),
		TrainingCount: s.TrainingCount,
	}
	if m.Net.WeightsInputHidden == nil {
		m.Net.WeightsInputHidden = [][]float64{}
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks shapes, inputSize == len(vocabulary) and that every weight
// and bias is finite.
func Validate(m *Model) error {
	if m == nil || m.Net == nil {
		return fmt.Errorf("%w: missing network", ErrCorruptModel)
	}
	n := m.Net
	switch {
	case n.InputSize != len(m.Vocabulary):
		return fmt.Errorf("%w: input size %d != vocabulary size %d", ErrCorruptModel, n.InputSize, len(m.Vocabulary))
	case n.HiddenSize <= 0 || n.OutputSize <= 0:
		return fmt.Errorf("%w: bad layer sizes %d/%d", ErrCorruptModel, n.HiddenSize, n.OutputSize)
	case len(n.WeightsInputHidden) != n.InputSize:
		return fmt.Errorf("%w: weightsInputHidden has %d rows", ErrCorruptModel, len(n.WeightsInputHidden))
	case len(n.WeightsHiddenOutput) != n.HiddenSize:
		return fmt.Errorf("%w: weightsHiddenOutput has %d rows", ErrCorruptModel, len(n.WeightsHiddenOutput))
	case len(n.BiasHidden) != n.HiddenSize || len(n.BiasOutput) != n.OutputSize:
		return fmt.Errorf("%w: bias length mismatch", ErrCorruptModel)
	case !finite(n.LearningRate) || n.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate %v", ErrCorruptModel, n.LearningRate)
	}
	for _, row := range n.WeightsInputHidden {
		if len(row) != n.HiddenSize || !allFinite(row) {
			return fmt.Errorf("%w: invalid input-hidden weights", ErrCorruptModel)
		}
	}
	for _, row := range n.WeightsHiddenOutput {
		if len(row) != n.OutputSize || !allFinite(row) {
			return fmt.Errorf("%w: invalid hidden-output weights", ErrCorruptModel)
		}
	}
	if !allFinite(n.BiasHidden) || !allFinite(n.BiasOutput) {
		return fmt.Errorf("%w: non-finite bias", ErrCorruptModel)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func allFinite(v []float64) bool {
	for _, x := range v {
		if !finite(x) {
			return false
		}
	}
	return true
}
