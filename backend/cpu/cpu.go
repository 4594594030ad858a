// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/dense/internal/backend"
	internalcpu "github.com/born-ml/dense/internal/backend/cpu"
)

// Backend represents the CPU batch backend implementation.
//
// CPU backend runs the batched dense layer kernels in pure Go, fanning
// examples out over worker goroutines.
type Backend = internalcpu.CPUBackend

// Config configures the CPU backend.
type Config = internalcpu.Config

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// New creates a new CPU backend with the default configuration.
//
// Example:
//
//	import (
//	    "github.com/born-ml/dense/backend/cpu"
//	    "github.com/born-ml/dense/nn"
//	)
//
//	func main() {
//	    d := nn.NewDispatcher(nn.WithBackend(cpu.New()))
//	    l, _ := nn.NewLayer(784, 128, nn.WithDispatcher(d))
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with a custom configuration.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// DefaultConfig returns the default CPU backend configuration.
func DefaultConfig() Config {
	return internalcpu.DefaultConfig()
}
