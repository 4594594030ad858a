// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated dense layer
// kernels.
//
// The native library is wired on Windows. On other platforms New always
// fails with ErrBackendUnavailable and single-example forward passes stay
// on the CPU.
//
// Example:
//
//	import (
//	    "github.com/born-ml/dense/backend/webgpu"
//	    "github.com/born-ml/dense/nn"
//	)
//
//	func main() {
//	    opts := []nn.DispatcherOption{}
//	    if gpu, err := webgpu.New(); err == nil {
//	        defer gpu.Release()
//	        opts = append(opts, nn.WithBackend(gpu))
//	    }
//	    l, _ := nn.NewLayer(784, 128, nn.WithDispatcher(nn.NewDispatcher(opts...)))
//	}
package webgpu

import (
	"github.com/born-ml/dense/internal/backend"
	internalwebgpu "github.com/born-ml/dense/internal/backend/webgpu"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// New creates a new WebGPU backend.
//
// Call Release() when done to free GPU resources.
//
// Returns an error wrapping ErrBackendUnavailable if initialization fails
// (e.g., no compatible GPU).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
