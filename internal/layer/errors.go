package layer

import "errors"

var (
	// ErrInvalidSize is returned when a layer is created with fewer than one
	// input or output node.
	ErrInvalidSize = errors.New("layer: node counts must be at least 1")

	// ErrMissingForward is returned when a backward step needs values that only
	// a learning forward pass writes into LearnData.
	ErrMissingForward = errors.New("layer: learn data has no forward pass values")

	// ErrInvalidHyperparameter is returned by ApplyGradients for a learn rate
	// that is not positive, a negative regularization or a momentum outside [0, 1).
	ErrInvalidHyperparameter = errors.New("layer: invalid hyperparameter")
)
