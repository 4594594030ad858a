package layer

import (
	"fmt"

	"github.com/born-ml/dense/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Snapshot is the durable state of a layer.
//
// Velocities and gradient accumulators are training state and are not part
// of it; a restored layer starts with both at zero.
type Snapshot struct {
	NumNodesIn      int       `json:"num_nodes_in"`
	NumNodesOut     int       `json:"num_nodes_out"`
	Weights         []float64 `json:"weights"` // row-major [out, in]
	Biases          []float64 `json:"biases"`
	ActivationIndex int       `json:"activation_index"`
}

// Snapshot returns a copy of the layer's durable state.
func (l *Layer) Snapshot() Snapshot {
	return Snapshot{
		NumNodesIn:      l.numNodesIn,
		NumNodesOut:     l.numNodesOut,
		Weights:         mat.DenseCopyOf(l.weights).RawMatrix().Data,
		Biases:          mat.DenseCopyOf(l.biases).RawMatrix().Data,
		ActivationIndex: l.activationIndex,
	}
}

// FromSnapshot rebuilds a layer from s.
//
// The activation is restored from s.ActivationIndex and an unknown index is
// an error, never a silent default. opts apply as in New; WithActivation is
// overridden by the snapshot.
func FromSnapshot(s Snapshot, opts ...Option) (*Layer, error) {
	l, err := New(s.NumNodesIn, s.NumNodesOut, opts...)
	if err != nil {
		return nil, fmt.Errorf("layer: restore: %w", err)
	}
	if len(s.Weights) != s.NumNodesOut*s.NumNodesIn {
		return nil, fmt.Errorf("layer: restore weights: %w",
			tensor.Mismatch("snapshot", tensor.Shape{s.NumNodesOut * s.NumNodesIn}, tensor.Shape{len(s.Weights)}))
	}
	if len(s.Biases) != s.NumNodesOut {
		return nil, fmt.Errorf("layer: restore biases: %w",
			tensor.Mismatch("snapshot", tensor.Shape{s.NumNodesOut}, tensor.Shape{len(s.Biases)}))
	}

	l.activationIndex = s.ActivationIndex
	if err := l.RestoreActivation(); err != nil {
		return nil, fmt.Errorf("layer: restore: %w", err)
	}

	l.weights = mat.NewDense(s.NumNodesOut, s.NumNodesIn, append([]float64(nil), s.Weights...))
	l.biases = mat.NewDense(s.NumNodesOut, 1, append([]float64(nil), s.Biases...))
	return l, nil
}
