package layer

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/dense/internal/backend"
	"gonum.org/v1/gonum/mat"
)

// StrategyKind identifies an execution path for layer math.
type StrategyKind int

const (
	// CPUSingle computes one example in process with gonum.
	CPUSingle StrategyKind = iota
	// CPUBatch runs batched kernels on the CPU backend.
	CPUBatch
	// GPUFull runs kernels on the GPU with full precision accumulation.
	GPUFull
	// GPUReduced runs kernels on the GPU in plain single precision.
	GPUReduced
)

// String returns a human-readable strategy name.
func (k StrategyKind) String() string {
	switch k {
	case CPUSingle:
		return "cpu-single"
	case CPUBatch:
		return "cpu-batch"
	case GPUFull:
		return "gpu-full"
	case GPUReduced:
		return "gpu-reduced"
	default:
		return fmt.Sprintf("StrategyKind(%d)", int(k))
	}
}

// DeviceClass describes the host the layer runs on.
type DeviceClass int

const (
	// Desktop hosts get full precision kernels.
	Desktop DeviceClass = iota
	// Constrained hosts (mobile, embedded) get reduced precision kernels.
	Constrained
)

// String returns a human-readable device class name.
func (c DeviceClass) String() string {
	switch c {
	case Desktop:
		return "desktop"
	case Constrained:
		return "constrained"
	default:
		return fmt.Sprintf("DeviceClass(%d)", int(c))
	}
}

// Precision returns the backend precision used for this device class.
func (c DeviceClass) Precision() backend.Precision {
	if c == Constrained {
		return backend.Reduced
	}
	return backend.Full
}

// SelectStrategy picks the single-example strategy.
// A ready GPU gets the precision matching the device class, otherwise the
// CPU path is used.
func SelectStrategy(gpuReady bool, class DeviceClass) StrategyKind {
	if !gpuReady {
		return CPUSingle
	}
	if class == Constrained {
		return GPUReduced
	}
	return GPUFull
}

// SelectBatchStrategy picks the batched strategy for b.
// Batched execution has no fallback: a nil or unavailable backend yields
// ErrBackendUnavailable.
func SelectBatchStrategy(b backend.Backend, class DeviceClass) (StrategyKind, error) {
	if b == nil || !b.Available() {
		return 0, backend.ErrBackendUnavailable
	}
	if b.Device() == backend.CPU {
		return CPUBatch, nil
	}
	return SelectStrategy(true, class), nil
}

// Dispatcher routes layer math to a backend.
//
// Single-example forward passes go to a GPU backend when one is available
// and fall back to the CPU transparently on any dispatch failure. Batched
// operations always go to the configured backend and propagate its errors.
//
// A Dispatcher is safe for concurrent use.
type Dispatcher struct {
	backend backend.Backend
	class   DeviceClass
	logger  *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithBackend sets the backend used for GPU and batched execution.
func WithBackend(b backend.Backend) DispatcherOption {
	return func(d *Dispatcher) {
		d.backend = b
	}
}

// WithDeviceClass sets the device class (Desktop by default).
func WithDeviceClass(class DeviceClass) DispatcherOption {
	return func(d *Dispatcher) {
		d.class = class
	}
}

// WithLogger sets the logger for strategy selection and fallbacks.
// The default logger discards everything.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a Dispatcher. Without WithBackend every
// single-example call runs on the CPU and every batched call fails with
// ErrBackendUnavailable.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		class:  Desktop,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Backend returns the configured backend, or nil.
func (d *Dispatcher) Backend() backend.Backend {
	return d.backend
}

// DeviceClass returns the configured device class.
func (d *Dispatcher) DeviceClass() DeviceClass {
	return d.class
}

// Strategy returns the strategy a single-example forward pass would use now.
func (d *Dispatcher) Strategy() StrategyKind {
	return SelectStrategy(d.gpuReady(), d.class)
}

func (d *Dispatcher) gpuReady() bool {
	return d.backend != nil && d.backend.Device() == backend.WebGPU && d.backend.Available()
}

// forward computes z and a for one example. p and x are already validated.
func (d *Dispatcher) forward(p backend.Params, x *mat.Dense) (z, a *mat.Dense) {
	strategy := d.Strategy()
	if strategy != CPUSingle {
		z, a, err := d.backend.Forward(p, x, d.class.Precision())
		if err == nil {
			return z, a
		}
		d.logger.Debug("gpu forward failed, falling back to cpu",
			"strategy", strategy.String(),
			"backend", d.backend.Name(),
			"error", err)
	}
	return forwardCPU(p, x)
}

// batch returns the backend and precision for a batched operation.
func (d *Dispatcher) batch(op string) (backend.Backend, backend.Precision, error) {
	strategy, err := SelectBatchStrategy(d.backend, d.class)
	if err != nil {
		return nil, 0, fmt.Errorf("layer: %s: %w", op, err)
	}
	d.logger.Debug("batched dispatch",
		"op", op,
		"strategy", strategy.String(),
		"backend", d.backend.Name())
	return d.backend, d.class.Precision(), nil
}

// forwardCPU computes z = W·x + b and a = activation(z) with gonum.
func forwardCPU(p backend.Params, x *mat.Dense) (*mat.Dense, *mat.Dense) {
	out, _ := p.Weights.Dims()
	z := mat.NewDense(out, 1, nil)
	z.Mul(p.Weights, x)
	z.Add(z, p.Biases)
	return z, p.Activation.Activate(z)
}
