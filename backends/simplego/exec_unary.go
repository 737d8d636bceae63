// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"math"

	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/shapes"
	"golang.org/x/exp/constraints"
)

var (
	negDispatcher     = newUnaryDispatcher("Neg", execNegGeneric[float32], execNegGeneric[float64])
	sigmoidDispatcher = newUnaryDispatcher("Sigmoid", execSigmoidGeneric[float32], execSigmoidGeneric[float64])
	reluDispatcher    = newUnaryDispatcher("Relu", execReluGeneric[float32], execReluGeneric[float64])
	tanhDispatcher    = newUnaryDispatcher("Tanh", execTanhGeneric[float32], execTanhGeneric[float64])
	softmaxDispatcher = newUnaryDispatcher("Softmax", execSoftmaxGeneric[float32], execSoftmaxGeneric[float64])
)

func execNegGeneric[T PODFloatConstraints](_ shapes.Shape, _ backends.AuxParams, input, output []T) {
	for ii, x := range input {
		output[ii] = -x
	}
}

func sigmoid[T constraints.Float](x T) T {
	return T(1 / (1 + math.Exp(-float64(x))))
}

func execSigmoidGeneric[T PODFloatConstraints](_ shapes.Shape, _ backends.AuxParams, input, output []T) {
	for ii, x := range input {
		output[ii] = sigmoid(x)
	}
}

func execReluGeneric[T PODFloatConstraints](_ shapes.Shape, _ backends.AuxParams, input, output []T) {
	for ii, x := range input {
		if x > 0 {
			output[ii] = x
		} else {
			output[ii] = 0
		}
	}
}

func execTanhGeneric[T PODFloatConstraints](_ shapes.Shape, _ backends.AuxParams, input, output []T) {
	for ii, x := range input {
		output[ii] = T(math.Tanh(float64(x)))
	}
}

// softmaxGroupSize returns the number of consecutive elements normalized together: the last axis of the
// sample. Scalars (batched or not) are their own group.
func softmaxGroupSize(shape shapes.Shape) int {
	rank := shape.Rank()
	if rank == 0 || (shape.Batched && rank == 1) {
		return 1
	}
	return shape.Dim(-1)
}

// execSoftmaxGeneric normalizes over the last axis, subtracting the max for numerical stability.
func execSoftmaxGeneric[T PODFloatConstraints](shape shapes.Shape, _ backends.AuxParams, input, output []T) {
	groupSize := softmaxGroupSize(shape)
	if groupSize == 0 {
		return
	}
	for start := 0; start < len(input); start += groupSize {
		in, out := input[start:start+groupSize], output[start:start+groupSize]
		maxV := in[0]
		for _, x := range in[1:] {
			maxV = max(maxV, x)
		}
		var sum float64
		for ii, x := range in {
			e := math.Exp(float64(x - maxV))
			out[ii] = T(e)
			sum += e
		}
		for ii := range out {
			out[ii] = T(float64(out[ii]) / sum)
		}
	}
}
