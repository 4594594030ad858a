//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/born-ml/dense/internal/backend"
	"github.com/go-webgpu/webgpu/wgpu"
)

// gpuBuffer is a GPU buffer together with its byte size.
type gpuBuffer struct {
	buf  *wgpu.Buffer
	size uint64
}

// pass is one compute pass: a kernel, its bindings in binding order and the
// workgroup grid.
type pass struct {
	kernel     string
	code       string
	bindings   []*gpuBuffer
	workgroups [3]uint32
}

// arena owns the buffers created for one dispatch and releases them together.
type arena struct {
	b    *Backend
	bufs []*gpuBuffer
}

func (b *Backend) newArena() *arena {
	return &arena{b: b}
}

func (a *arena) release() {
	for _, g := range a.bufs {
		g.buf.Release()
	}
	a.bufs = nil
}

// storage uploads data into a read-only storage buffer.
func (a *arena) storage(data []float32) *gpuBuffer {
	g := a.b.createBuffer(float32Bytes(data), wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	a.bufs = append(a.bufs, g)
	return g
}

// output allocates a read-write storage buffer for n float32 values.
func (a *arena) output(n int) *gpuBuffer {
	//nolint:gosec // G115: Safe conversion, element counts are non-negative
	size := uint64(n * 4)
	g := &gpuBuffer{
		buf: a.b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
			Size:  size,
		}),
		size: size,
	}
	a.bufs = append(a.bufs, g)
	return g
}

// uniform creates a 16-byte aligned uniform buffer holding u32 parameters.
func (a *arena) uniform(values ...uint32) *gpuBuffer {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], v)
	}
	g := a.b.createUniformBuffer(data)
	a.bufs = append(a.bufs, g)
	return g
}

// compileShader compiles WGSL shader code into a ShaderModule.
// Results are cached in the Backend's shaders map.
func (b *Backend) compileShader(name, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if shader, exists := b.shaders[name]; exists {
		b.mu.RUnlock()
		return shader
	}
	b.mu.RUnlock()

	shader := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[name] = shader
	b.mu.Unlock()

	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates a new one.
func (b *Backend) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[name]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	// Create compute pipeline with auto layout (nil layout)
	pipeline := b.device.CreateComputePipelineSimple(nil, shader, "main")

	b.mu.Lock()
	b.pipelines[name] = pipeline
	b.mu.Unlock()

	return pipeline
}

// createBuffer creates a GPU buffer and uploads initial data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *gpuBuffer {
	size := uint64(len(data))

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mappedSlice, data)
	buffer.Unmap()

	return &gpuBuffer{buf: buffer, size: size}
}

// createUniformBuffer creates a uniform buffer with proper alignment.
// Uniform buffers require 16-byte alignment for struct fields.
func (b *Backend) createUniformBuffer(data []byte) *gpuBuffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15 // Round up to 16-byte boundary

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mappedSlice, data)
	buffer.Unmap()

	return &gpuBuffer{buf: buffer, size: alignedSize}
}

// run encodes every pass into one command buffer and submits it. Passes
// execute in order, so later passes may read buffers written by earlier ones.
func (b *Backend) run(passes ...pass) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webgpu: dispatch failed: %v", r)
		}
	}()

	if !b.Available() {
		return fmt.Errorf("webgpu: %w", backend.ErrBackendUnavailable)
	}

	encoder := b.device.CreateCommandEncoder(nil)
	var bindGroups []*wgpu.BindGroup
	defer func() {
		for _, bg := range bindGroups {
			bg.Release()
		}
	}()

	for _, p := range passes {
		shader := b.compileShader(p.kernel, p.code)
		pipeline := b.getOrCreatePipeline(p.kernel, shader)

		entries := make([]wgpu.BindGroupEntry, len(p.bindings))
		for i, g := range p.bindings {
			//nolint:gosec // G115: Safe conversion, binding count is small
			entries[i] = wgpu.BufferBindingEntry(uint32(i), g.buf, 0, g.size)
		}
		bindGroup := b.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
		bindGroups = append(bindGroups, bindGroup)

		computePass := encoder.BeginComputePass(nil)
		computePass.SetPipeline(pipeline)
		computePass.SetBindGroup(0, bindGroup, nil)
		computePass.DispatchWorkgroups(p.workgroups[0], p.workgroups[1], p.workgroups[2])
		computePass.End()
	}

	cmdBuffer := encoder.Finish(nil)

	b.submitMu.Lock()
	defer b.submitMu.Unlock()
	b.queue.Submit(cmdBuffer)
	return nil
}

// read copies a GPU buffer back to CPU memory as float64 values.
// Uses a staging buffer since storage buffers can't be mapped directly.
func (b *Backend) read(src *gpuBuffer) (values []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webgpu: readback failed: %v", r)
		}
	}()

	stagingBuffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  src.size,
	})
	defer stagingBuffer.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src.buf, 0, stagingBuffer, 0, src.size)
	cmdBuffer := encoder.Finish(nil)

	b.submitMu.Lock()
	b.queue.Submit(cmdBuffer)
	mapErr := stagingBuffer.MapAsync(b.device, wgpu.MapModeRead, 0, src.size)
	b.submitMu.Unlock()
	if mapErr != nil {
		return nil, fmt.Errorf("failed to map staging buffer: %w", mapErr)
	}

	mappedPtr := stagingBuffer.GetMappedRange(0, src.size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mappedSlice := unsafe.Slice((*byte)(mappedPtr), src.size)
	values = make([]float64, src.size/4)
	for i := range values {
		values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(mappedSlice[4*i:])))
	}
	stagingBuffer.Unmap()

	return values, nil
}

// float32Bytes narrows values to little-endian float32 bytes.
func float32Bytes(values []float32) []byte {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return data
}

// narrow converts float64 values to float32.
func narrow(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

// groups returns ceil(n / size) as a workgroup count.
func groups(n, size int) uint32 {
	//nolint:gosec // G115: Safe conversion, workgroup count is non-negative
	return uint32((n + size - 1) / size)
}
