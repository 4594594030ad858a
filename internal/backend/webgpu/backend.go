//go:build windows

// Package webgpu implements the WebGPU backend for dense layer kernels.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
package webgpu

import (
	"fmt"
	"strings"
	"sync"

	"github.com/born-ml/dense/internal/backend"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Backend runs dense layer kernels as WGSL compute shaders.
//
// Every dispatch uploads its operands, encodes all passes into a single
// command buffer, submits it and reads the results back before returning.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache, keyed by kernel name.
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	// Serializes submissions; each dispatch is one unit of work.
	submitMu sync.Mutex

	adapterInfo *wgpu.AdapterInfoGo
}

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// New creates a new WebGPU backend.
// Returns an error wrapping backend.ErrBackendUnavailable if WebGPU is not
// available or initialization fails.
func New() (gpu *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			gpu = nil
			err = fmt.Errorf("webgpu: native library not available: %v: %w", r, backend.ErrBackendUnavailable)
		}
	}()

	if initErr := wgpu.Init(); initErr != nil {
		return nil, fmt.Errorf("webgpu: init: %v: %w", initErr, backend.ErrBackendUnavailable)
	}

	instance, instErr := wgpu.CreateInstance(nil)
	if instErr != nil {
		return nil, fmt.Errorf("webgpu: create instance: %v: %w", instErr, backend.ErrBackendUnavailable)
	}

	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %v: %w", adapterErr, backend.ErrBackendUnavailable)
	}

	// Adapter info is only used for the backend name; a failed lookup is OK.
	adapterInfo, infoErr := adapter.GetInfo()
	if infoErr != nil {
		adapterInfo = nil
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %v: %w", deviceErr, backend.ErrBackendUnavailable)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue: %w", backend.ErrBackendUnavailable)
	}

	return &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: adapterInfo,
	}, nil
}

// Release releases all WebGPU resources.
// The backend reports unavailable afterwards.
func (b *Backend) Release() {
	if b == nil {
		return
	}
	b.submitMu.Lock()
	defer b.submitMu.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil

	for _, s := range b.shaders {
		s.Release()
	}
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	if b == nil {
		return "WebGPU"
	}
	return adapterName(b.adapterInfo)
}

// adapterName formats the backend name from adapter info, which may be nil
// or have empty fields.
func adapterName(info *wgpu.AdapterInfoGo) string {
	if info == nil {
		return "WebGPU"
	}
	desc := strings.TrimSpace(info.Device + " " + info.Vendor)
	if desc == "" {
		return "WebGPU"
	}
	return fmt.Sprintf("WebGPU (%s)", desc)
}

// Device returns the compute device.
func (b *Backend) Device() backend.Device {
	return backend.WebGPU
}

// Available reports whether the backend holds a live device.
func (b *Backend) Available() bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.device != nil && b.queue != nil
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	if err := wgpu.Init(); err != nil {
		return false
	}
	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}
