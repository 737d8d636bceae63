// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
)

// FuncForDispatcher is type of functions that the DTypeDispatcher can handle.
type FuncForDispatcher func(inputs []*tensors.Tensor, params backends.AuxParams, output *tensors.Tensor)

// MaxDTypes is an upper bound on the number of dtypes: the dtype value indexes the dispatch tables.
const MaxDTypes = 32

// DTypeDispatcher calls the kernel instance registered for a dtype.
type DTypeDispatcher struct {
	Name  string
	fnMap [MaxDTypes]FuncForDispatcher
}

// NewDTypeDispatcher creates a new dispatcher for a class of functions.
func NewDTypeDispatcher(name string) *DTypeDispatcher {
	return &DTypeDispatcher{
		Name: name,
	}
}

// Dispatch call the function that matches the dtype.
func (d *DTypeDispatcher) Dispatch(dtype dtypes.DType, inputs []*tensors.Tensor, params backends.AuxParams, output *tensors.Tensor) {
	if !d.Has(dtype) {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	d.fnMap[dtype](inputs, params, output)
}

// Has returns whether there is a function registered for the dtype.
func (d *DTypeDispatcher) Has(dtype dtypes.DType) bool {
	return dtype >= 0 && dtype < MaxDTypes && d.fnMap[dtype] != nil
}

// Register a function to handle a specific dtype.
// This overwrites any previous setting for the same dtype.
func (d *DTypeDispatcher) Register(dtype dtypes.DType, fn FuncForDispatcher) {
	if dtype >= MaxDTypes {
		exceptions.Panicf("dtype %s not supported by %s", dtype, d.Name)
	}
	d.fnMap[dtype] = fn
}

// Calculate implements backends.CalculatorFunc: it allocates the output and dispatches on its dtype.
func (d *DTypeDispatcher) Calculate(inputs []*tensors.Tensor, params backends.AuxParams, outputShape shapes.Shape) (*tensors.Tensor, error) {
	output := tensors.FromShape(outputShape)
	d.Dispatch(outputShape.DType, inputs, params, output)
	return output, nil
}

// PODFloatConstraints are used for generics for the Golang pod (plain-old-data) types.
// Float16 and BFloat16 are not included because they are specialized types, not natively supported by Go.
type PODFloatConstraints interface {
	float32 | float64
}

// unaryKernel computes output from one input of the same shape.
type unaryKernel[T PODFloatConstraints] func(shape shapes.Shape, params backends.AuxParams, input, output []T)

// binaryKernel computes output from two inputs of the same shape.
type binaryKernel[T PODFloatConstraints] func(shape shapes.Shape, lhs, rhs, output []T)

func unaryFn[T PODFloatConstraints](kernel unaryKernel[T]) FuncForDispatcher {
	return func(inputs []*tensors.Tensor, params backends.AuxParams, output *tensors.Tensor) {
		tensors.ConstFlatData(inputs[0], func(input []T) {
			tensors.MutableFlatData(output, func(out []T) {
				kernel(output.Shape(), params, input, out)
			})
		})
	}
}

func binaryFn[T PODFloatConstraints](kernel binaryKernel[T]) FuncForDispatcher {
	return func(inputs []*tensors.Tensor, _ backends.AuxParams, output *tensors.Tensor) {
		tensors.ConstFlatData(inputs[0], func(lhs []T) {
			tensors.ConstFlatData(inputs[1], func(rhs []T) {
				tensors.MutableFlatData(output, func(out []T) {
					kernel(output.Shape(), lhs, rhs, out)
				})
			})
		})
	}
}

// newUnaryDispatcher registers the float32 and float64 instances of a unary kernel.
func newUnaryDispatcher(name string, k32 unaryKernel[float32], k64 unaryKernel[float64]) *DTypeDispatcher {
	d := NewDTypeDispatcher(name)
	d.Register(dtypes.Float32, unaryFn(k32))
	d.Register(dtypes.Float64, unaryFn(k64))
	return d
}

// newBinaryDispatcher registers the float32 and float64 instances of a binary kernel.
func newBinaryDispatcher(name string, k32 binaryKernel[float32], k64 binaryKernel[float64]) *DTypeDispatcher {
	d := NewDTypeDispatcher(name)
	d.Register(dtypes.Float32, binaryFn(k32))
	d.Register(dtypes.Float64, binaryFn(k64))
	return d
}
