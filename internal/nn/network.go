package nn

import (
	"math"
	"math/rand/v2"
)

// Fixed architecture. Changing any of these changes the learning dynamics
// persisted models were trained under.
const (
	HiddenSize   = 20
	OutputSize   = 1
	LearningRate = 0.1
)

// Network is a single-hidden-layer sigmoid feedforward network.
type Network struct {
	InputSize    int
	HiddenSize   int
	OutputSize   int
	LearningRate float64

	WeightsInputHidden  [][]float64 // [InputSize][HiddenSize]
	WeightsHiddenOutput [][]float64 // [HiddenSize][OutputSize]
	BiasHidden          []float64
	BiasOutput          []float64
}

// NewNetwork initialises every weight and bias uniformly in [-1, 1].
func NewNetwork(inputSize int, rng *rand.Rand) *Network {
	n := &Network{
		InputSize:    inputSize,
		HiddenSize:   HiddenSize,
		OutputSize:   OutputSize,
		LearningRate: LearningRate,
	}
	uniform := func() float64 { return rng.Float64()*2 - 1 }
	n.WeightsInputHidden = make([][]float64, inputSize)
	for i := range n.WeightsInputHidden {
		row := make([]float64, HiddenSize)
		for j := range row {
			row[j] = uniform()
		}
		n.WeightsInputHidden[i] = row
	}
	n.WeightsHiddenOutput = make([][]float64, HiddenSize)
	for j := range n.WeightsHiddenOutput {
		row := make([]float64, OutputSize)
		for k := range row {
			row[k] = uniform()
		}
		n.WeightsHiddenOutput[j] = row
	}
	n.BiasHidden = make([]float64, HiddenSize)
	for j := range n.BiasHidden {
		n.BiasHidden[j] = uniform()
	}
	n.BiasOutput = make([]float64, OutputSize)
	for k := range n.BiasOutput {
		n.BiasOutput[k] = uniform()
	}
	return n
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// Forward computes hidden and output activations. Inputs beyond InputSize are
// ignored; missing inputs count as zero.
func (n *Network) Forward(x []float64) (hidden, output []float64) {
	hidden = make([]float64, n.HiddenSize)
	for j := 0; j < n.HiddenSize; j++ {
		sum := n.BiasHidden[j]
		for i := 0; i < n.InputSize && i < len(x); i++ {
			if x[i] != 0 {
				sum += x[i] * n.WeightsInputHidden[i][j]
			}
		}
		hidden[j] = sigmoid(sum)
	}
	output = make([]float64, n.OutputSize)
	for k := 0; k < n.OutputSize; k++ {
		sum := n.BiasOutput[k]
		for j := 0; j < n.HiddenSize; j++ {
			sum += hidden[j] * n.WeightsHiddenOutput[j][k]
		}
		output[k] = sigmoid(sum)
	}
	return hidden, output
}

// Predict returns the first output activation.
func (n *Network) Predict(x []float64) float64 {
	_, out := n.Forward(x)
	return out[0]
}

// TrainOne applies one backpropagation step for a single example.
// All deltas are computed against the pre-update weights.
func (n *Network) TrainOne(x, target []float64) {
	hidden, output := n.Forward(x)

	outputDelta := make([]float64, n.OutputSize)
	for k := range outputDelta {
		outputDelta[k] = (target[k] - output[k]) * output[k] * (1 - output[k])
	}
	hiddenDelta := make([]float64, n.HiddenSize)
	for j := range hiddenDelta {
		var e float64
		for k := range outputDelta {
			e += outputDelta[k] * n.WeightsHiddenOutput[j][k]
		}
		hiddenDelta[j] = e * hidden[j] * (1 - hidden[j])
	}

	lr := n.LearningRate
	for j := 0; j < n.HiddenSize; j++ {
		for k := 0; k < n.OutputSize; k++ {
			n.WeightsHiddenOutput[j][k] += lr * outputDelta[k] * hidden[j]
		}
	}
	for k := range n.BiasOutput {
		n.BiasOutput[k] += lr * outputDelta[k]
	}
	for i := 0; i < n.InputSize && i < len(x); i++ {
		if x[i] == 0 {
			continue
		}
		for j := 0; j < n.HiddenSize; j++ {
			n.WeightsInputHidden[i][j] += lr * hiddenDelta[j] * x[i]
		}
	}
	for j := range n.BiasHidden {
		n.BiasHidden[j] += lr * hiddenDelta[j]
	}
}

// Clone returns a deep copy.
func (n *Network) Clone() *Network {
	c := *n
	c.WeightsInputHidden = cloneMatrix(n.WeightsInputHidden)
	c.WeightsHiddenOutput = cloneMatrix(n.WeightsHiddenOutput)
	c.BiasHidden = append([]float64(nil), n.BiasHidden...)
	c.BiasOutput = append([]float64(nil), n.BiasOutput...)
	return &c
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
