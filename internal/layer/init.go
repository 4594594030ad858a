package layer

import (
	"math"
	"math/rand"

	"github.com/born-ml/dense/internal/activation"
)

// InitializeRandomWeights redraws every weight from N(0, 1) scaled by
// 1/sqrt(numNodesIn). Biases are left untouched.
//
// Weights are filled row by row, so a given source always yields the same
// matrix.
func (l *Layer) InitializeRandomWeights(rng *rand.Rand) {
	scale := 1 / math.Sqrt(float64(l.numNodesIn))
	for i := 0; i < l.numNodesOut; i++ {
		for j := 0; j < l.numNodesIn; j++ {
			l.weights.Set(i, j, randomInNormalDistribution(rng, 0, 1)*scale)
		}
	}
}

// randomInNormalDistribution samples N(mean, stdDev²) with the Box–Muller
// transform. Uniforms are taken from (0, 1] so the logarithm stays finite.
func randomInNormalDistribution(rng *rand.Rand, mean, stdDev float64) float64 {
	x1 := 1 - rng.Float64()
	x2 := 1 - rng.Float64()

	y1 := math.Sqrt(-2*math.Log(x1)) * math.Cos(2*math.Pi*x2)
	return y1*stdDev + mean
}

// Activation returns the activation function in use.
func (l *Layer) Activation() activation.Activation { return l.activation }

// ActivationIndex returns the registry index of the activation, the durable
// identity stored in snapshots.
func (l *Layer) ActivationIndex() int { return l.activationIndex }

// SetActivation injects an activation and records its index.
// A nil activation leaves the layer unchanged.
func (l *Layer) SetActivation(act activation.Activation) {
	if act == nil {
		return
	}
	l.activationIndex = act.Index()
	l.activation = act
}

// SetActivationIndex selects the registered activation for index.
// On an unknown index the layer is left unchanged.
func (l *Layer) SetActivationIndex(index int) error {
	act, err := activation.FromIndex(index)
	if err != nil {
		return err
	}
	l.activationIndex = index
	l.activation = act
	return nil
}

// RestoreActivation re-resolves the activation from the stored index.
// Calling it repeatedly has no further effect.
func (l *Layer) RestoreActivation() error {
	act, err := activation.FromIndex(l.activationIndex)
	if err != nil {
		return err
	}
	l.activation = act
	return nil
}
