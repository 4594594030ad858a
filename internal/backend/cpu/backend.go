// Package cpu implements the CPU batch backend for dense layers: gonum
// matrices, one goroutine chunk per slice of the batch.
package cpu

import (
	"github.com/born-ml/dense/internal/backend"
	"github.com/born-ml/dense/internal/parallel"
)

// Config configures the CPU backend.
type Config struct {
	Parallel parallel.Config // Fan-out across batch examples.
}

// DefaultConfig returns the default CPU backend configuration.
func DefaultConfig() Config {
	return Config{Parallel: parallel.DefaultConfig()}
}

// CPUBackend implements backend.Backend on the CPU.
//
// Full precision runs in float64 through gonum; Reduced precision rounds
// operands and intermediate results to float32, matching what a constrained
// device computes.
type CPUBackend struct {
	cfg Config
}

// Compile-time check that CPUBackend implements backend.Backend.
var _ backend.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend with the default configuration.
func New() *CPUBackend {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new CPU backend.
func NewWithConfig(cfg Config) *CPUBackend {
	return &CPUBackend{cfg: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() backend.Device {
	return backend.CPU
}

// Available always reports true: the CPU needs no initialization.
func (cpu *CPUBackend) Available() bool {
	return true
}
