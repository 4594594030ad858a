//go:build windows

package webgpu

import (
	"fmt"

	"github.com/born-ml/dense/internal/activation"
	"github.com/born-ml/dense/internal/backend"
	"github.com/born-ml/dense/internal/cost"
)

// WGSL compute shaders for dense layer kernels.
//
// Tensors are flattened as [batch, rows] with the row index varying fastest.
// Every shader shares the same 16-byte Params uniform; the meaning of extra
// depends on the kernel.

// workgroupSize is the default number of threads per workgroup.
const workgroupSize = 256

const paramsStruct = `
struct Params {
    batch: u32,
    inputs: u32,
    outputs: u32,
    extra: u32,
}
`

const sigmoidFn = `
fn sigmoid(x: f32) -> f32 {
    return 1.0 / (1.0 + exp(-x));
}
`

// sum generates a loop accumulating term into the variable named acc.
// Full precision uses Kahan compensation since WGSL has no f64.
func sum(acc, loop, term string, prec backend.Precision) string {
	if prec == backend.Reduced {
		return fmt.Sprintf(`
    var %[1]s: f32 = 0.0;
    %[2]s {
        %[1]s = %[1]s + %[3]s;
    }`, acc, loop, term)
	}
	return fmt.Sprintf(`
    var %[1]s: f32 = 0.0;
    var %[1]s_c: f32 = 0.0;
    %[2]s {
        let y = %[3]s - %[1]s_c;
        let t = %[1]s + y;
        %[1]s_c = (t - %[1]s) - y;
        %[1]s = t;
    }`, acc, loop, term)
}

// activationFns returns WGSL activate and derivative functions reading the
// pre-activation array z. base is the first row of the example and n its
// row count.
func activationFns(act activation.Activation) (string, error) {
	var activate, derivative string
	switch act.Index() {
	case activation.KindSigmoid:
		activate = `return sigmoid(z[idx]);`
		derivative = `let s = sigmoid(z[idx]);
    return s * (1.0 - s);`
	case activation.KindTanH:
		activate = `return tanh(z[idx]);`
		derivative = `let t = tanh(z[idx]);
    return 1.0 - t * t;`
	case activation.KindReLU:
		activate = `return max(0.0, z[idx]);`
		derivative = `return select(0.0, 1.0, z[idx] > 0.0);`
	case activation.KindSiLU:
		activate = `let x = z[idx];
    return x * sigmoid(x);`
		derivative = `let x = z[idx];
    let s = sigmoid(x);
    return s + x * s * (1.0 - s);`
	case activation.KindSoftmax:
		activate = `var m = z[base];
    for (var k = 1u; k < n; k++) {
        m = max(m, z[base + k]);
    }
    var total: f32 = 0.0;
    for (var k = 0u; k < n; k++) {
        total += exp(z[base + k] - m);
    }
    return exp(z[idx] - m) / total;`
		derivative = `let s = activate(idx, base, n);
    return s * (1.0 - s);`
	default:
		return "", fmt.Errorf("webgpu: activation %q has no kernel: %w", act.Name(), backend.ErrBackendUnavailable)
	}

	return sigmoidFn + fmt.Sprintf(`
fn activate(idx: u32, base: u32, n: u32) -> f32 {
    %s
}

fn derivative(idx: u32, base: u32, n: u32) -> f32 {
    %s
}
`, activate, derivative), nil
}

// costFn returns a WGSL cost_derivative(actual, expected) function.
func costFn(c cost.Cost) (string, error) {
	switch c.Index() {
	case cost.KindMeanSquaredError:
		return `
fn cost_derivative(a: f32, y: f32) -> f32 {
    return a - y;
}
`, nil
	case cost.KindCrossEntropy:
		return `
fn cost_derivative(a: f32, y: f32) -> f32 {
    if (a == 0.0 || a == 1.0) {
        return 0.0;
    }
    return (-a + y) / (a * (a - 1.0));
}
`, nil
	default:
		return "", fmt.Errorf("webgpu: cost %q has no kernel: %w", c.Name(), backend.ErrBackendUnavailable)
	}
}

// forwardShader computes z = W·x + b for every (example, output) pair.
// Bindings: weights [outputs, inputs], biases [outputs], x [batch, inputs],
// z [batch, outputs].
func forwardShader(prec backend.Precision) string {
	return paramsStruct + `
@group(0) @binding(0) var<storage, read> weights: array<f32>;
@group(0) @binding(1) var<storage, read> biases: array<f32>;
@group(0) @binding(2) var<storage, read> x: array<f32>;
@group(0) @binding(3) var<storage, read_write> z: array<f32>;
@group(0) @binding(4) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.batch * params.outputs) {
        return;
    }
    let b = idx / params.outputs;
    let i = idx % params.outputs;
` + sum("acc", "for (var j = 0u; j < params.inputs; j++)", "weights[i * params.inputs + j] * x[b * params.inputs + j]", prec) + `
    z[idx] = acc + biases[i];
}
`
}

// activateShader applies the activation to z.
// Bindings: z [batch, outputs], a [batch, outputs].
func activateShader(act activation.Activation) (string, error) {
	fns, err := activationFns(act)
	if err != nil {
		return "", err
	}
	return paramsStruct + `
@group(0) @binding(0) var<storage, read> z: array<f32>;
@group(0) @binding(1) var<storage, read_write> a: array<f32>;
@group(0) @binding(2) var<uniform> params: Params;
` + fns + `
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.batch * params.outputs) {
        return;
    }
    let base = (idx / params.outputs) * params.outputs;
    a[idx] = activate(idx, base, params.outputs);
}
`, nil
}

// outputErrorsShader computes costDerivative(a, y) ⊙ activation'(z).
// Bindings: z, a, expected, result, all [batch, outputs].
func outputErrorsShader(act activation.Activation, c cost.Cost) (string, error) {
	fns, err := activationFns(act)
	if err != nil {
		return "", err
	}
	costCode, err := costFn(c)
	if err != nil {
		return "", err
	}
	return paramsStruct + `
@group(0) @binding(0) var<storage, read> z: array<f32>;
@group(0) @binding(1) var<storage, read> acts: array<f32>;
@group(0) @binding(2) var<storage, read> expected: array<f32>;
@group(0) @binding(3) var<storage, read_write> result: array<f32>;
@group(0) @binding(4) var<uniform> params: Params;
` + fns + costCode + `
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.batch * params.outputs) {
        return;
    }
    let base = (idx / params.outputs) * params.outputs;
    result[idx] = cost_derivative(acts[idx], expected[idx]) * derivative(idx, base, params.outputs);
}
`, nil
}

// hiddenErrorsShader computes (nextWeightsᵀ·nextNodeValues) ⊙ activation'(z).
// Bindings: next weights [extra, outputs], next node values [batch, extra],
// z [batch, outputs], result [batch, outputs]. extra is the next layer's
// output count.
func hiddenErrorsShader(act activation.Activation, prec backend.Precision) (string, error) {
	fns, err := activationFns(act)
	if err != nil {
		return "", err
	}
	return paramsStruct + `
@group(0) @binding(0) var<storage, read> next_weights: array<f32>;
@group(0) @binding(1) var<storage, read> next_values: array<f32>;
@group(0) @binding(2) var<storage, read> z: array<f32>;
@group(0) @binding(3) var<storage, read_write> result: array<f32>;
@group(0) @binding(4) var<uniform> params: Params;
` + fns + `
@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.batch * params.outputs) {
        return;
    }
    let b = idx / params.outputs;
    let i = idx % params.outputs;
` + sum("acc", "for (var k = 0u; k < params.extra; k++)", "next_weights[k * params.outputs + i] * next_values[b * params.extra + k]", prec) + `
    result[idx] = acc * derivative(idx, b * params.outputs, params.outputs);
}
`, nil
}

// weightGradShader computes Σ_b delta[b]·x[b]ᵀ.
// Bindings: delta [batch, outputs], x [batch, inputs], result [outputs, inputs].
func weightGradShader(prec backend.Precision) string {
	return paramsStruct + `
@group(0) @binding(0) var<storage, read> delta: array<f32>;
@group(0) @binding(1) var<storage, read> x: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.outputs * params.inputs) {
        return;
    }
    let i = idx / params.inputs;
    let j = idx % params.inputs;
` + sum("acc", "for (var b = 0u; b < params.batch; b++)", "delta[b * params.outputs + i] * x[b * params.inputs + j]", prec) + `
    result[idx] = acc;
}
`
}

// biasGradShader computes Σ_b delta[b].
// Bindings: delta [batch, outputs], result [outputs].
func biasGradShader(prec backend.Precision) string {
	return paramsStruct + `
@group(0) @binding(0) var<storage, read> delta: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let i = global_id.x;
    if (i >= params.outputs) {
        return;
    }
` + sum("acc", "for (var b = 0u; b < params.batch; b++)", "delta[b * params.outputs + i]", prec) + `
    result[i] = acc;
}
`
}

// kernelName builds a pipeline cache key.
func kernelName(parts ...any) string {
	name := ""
	for i, p := range parts {
		if i > 0 {
			name += "_"
		}
		name += fmt.Sprint(p)
	}
	return name
}
