// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/metann/pkg/core/shapes"
)

// Gradient operations: the first operand is always the incoming gradient, the second one is the
// forward snapshot the formula needs (the input for Relu, the output for the others).

var (
	sigmoidGradDispatcher = newBinaryDispatcher("SigmoidGrad", execSigmoidGradGeneric[float32], execSigmoidGradGeneric[float64])
	reluGradDispatcher    = newBinaryDispatcher("ReluGrad", execReluGradGeneric[float32], execReluGradGeneric[float64])
	tanhGradDispatcher    = newBinaryDispatcher("TanhGrad", execTanhGradGeneric[float32], execTanhGradGeneric[float64])
	softmaxGradDispatcher = newBinaryDispatcher("SoftmaxGrad", execSoftmaxGradGeneric[float32], execSoftmaxGradGeneric[float64])
)

// execSigmoidGradGeneric: grad * y * (1 - y), where y is the sigmoid output.
func execSigmoidGradGeneric[T PODFloatConstraints](_ shapes.Shape, grad, y, output []T) {
	for ii, g := range grad {
		output[ii] = g * y[ii] * (1 - y[ii])
	}
}

// execReluGradGeneric: grad where x > 0, 0 elsewhere.
func execReluGradGeneric[T PODFloatConstraints](_ shapes.Shape, grad, x, output []T) {
	for ii, g := range grad {
		if x[ii] > 0 {
			output[ii] = g
		} else {
			output[ii] = 0
		}
	}
}

// execTanhGradGeneric: grad * (1 - y^2), where y is the tanh output.
func execTanhGradGeneric[T PODFloatConstraints](_ shapes.Shape, grad, y, output []T) {
	for ii, g := range grad {
		output[ii] = g * (1 - y[ii]*y[ii])
	}
}

// execSoftmaxGradGeneric is the Jacobian-vector product of softmax: y_i * (g_i - sum_j g_j*y_j),
// per group of the last axis.
func execSoftmaxGradGeneric[T PODFloatConstraints](shape shapes.Shape, grad, y, output []T) {
	groupSize := softmaxGroupSize(shape)
	if groupSize == 0 {
		return
	}
	for start := 0; start < len(grad); start += groupSize {
		g, yg := grad[start:start+groupSize], y[start:start+groupSize]
		var dot T
		for ii := range g {
			dot += g[ii] * yg[ii]
		}
		out := output[start : start+groupSize]
		for ii := range g {
			out[ii] = yg[ii] * (g[ii] - dot)
		}
	}
}
