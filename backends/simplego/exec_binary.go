// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/shapes"
)

// This file implements the elementwise binary operations.
// Operands always have the same shape: there is no implicit broadcasting.

var (
	addDispatcher = newBinaryDispatcher("Add", execAddGeneric[float32], execAddGeneric[float64])
	subDispatcher = newBinaryDispatcher("Sub", execSubGeneric[float32], execSubGeneric[float64])
	mulDispatcher = newBinaryDispatcher("Mul", execMulGeneric[float32], execMulGeneric[float64])

	subFromNumDispatcher = newUnaryDispatcher("SubFromNum", execSubFromNumGeneric[float32], execSubFromNumGeneric[float64])
)

func execAddGeneric[T PODFloatConstraints](_ shapes.Shape, lhs, rhs, output []T) {
	for ii, l := range lhs {
		output[ii] = l + rhs[ii]
	}
}

func execSubGeneric[T PODFloatConstraints](_ shapes.Shape, lhs, rhs, output []T) {
	for ii, l := range lhs {
		output[ii] = l - rhs[ii]
	}
}

func execMulGeneric[T PODFloatConstraints](_ shapes.Shape, lhs, rhs, output []T) {
	for ii, l := range lhs {
		output[ii] = l * rhs[ii]
	}
}

// execSubFromNumGeneric computes output = minuend - input, with the minuend given as a backends.ScalarParam.
func execSubFromNumGeneric[T PODFloatConstraints](_ shapes.Shape, params backends.AuxParams, input, output []T) {
	minuend := T(scalarParam(params))
	for ii, x := range input {
		output[ii] = minuend - x
	}
}

// scalarParam extracts the value of a backends.ScalarParam, or panics.
func scalarParam(params backends.AuxParams) float64 {
	p, ok := params.(backends.ScalarParam)
	if !ok {
		exceptions.Panicf("expected backends.ScalarParam, got %T", params)
	}
	return float64(p)
}
