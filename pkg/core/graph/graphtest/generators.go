// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphtest

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
)

// Float is the set of dtypes the generators produce.
type Float interface {
	float32 | float64
}

// Gen returns a tensor with the given shape, where the element at linear index i is start + step*i.
func Gen[T Float](shape shapes.Shape, start, step float64) *tensors.Tensor {
	t := tensors.FromShape(shape.WithDType(dtypes.FromGenericsType[T]()))
	tensors.MutableFlatData(t, func(flat []T) {
		for ii := range flat {
			flat[ii] = T(start + step*float64(ii))
		}
	})
	return t
}

// GenMatrix returns a rows x cols matrix filled with start + step*i.
func GenMatrix[T Float](rows, cols int, start, step float64) *tensors.Tensor {
	return Gen[T](shapes.Make(dtypes.FromGenericsType[T](), rows, cols), start, step)
}

// GenThreeDArray returns a pages x rows x cols array filled with start + step*i.
func GenThreeDArray[T Float](pages, rows, cols int, start, step float64) *tensors.Tensor {
	return Gen[T](shapes.Make(dtypes.FromGenericsType[T](), pages, rows, cols), start, step)
}

// GenBatchScalar returns a batch of scalars filled with start + step*i.
func GenBatchScalar[T Float](batchSize int, start, step float64) *tensors.Tensor {
	return Gen[T](shapes.MakeBatch(dtypes.FromGenericsType[T](), batchSize), start, step)
}

// GenBatchMatrix returns a batch of rows x cols matrices filled with start + step*i.
func GenBatchMatrix[T Float](batchSize, rows, cols int, start, step float64) *tensors.Tensor {
	return Gen[T](shapes.MakeBatch(dtypes.FromGenericsType[T](), batchSize, rows, cols), start, step)
}

// GenBatchThreeDArray returns a batch of pages x rows x cols arrays filled with start + step*i.
func GenBatchThreeDArray[T Float](batchSize, pages, rows, cols int, start, step float64) *tensors.Tensor {
	return Gen[T](shapes.MakeBatch(dtypes.FromGenericsType[T](), batchSize, pages, rows, cols), start, step)
}

// Map returns a new tensor with fn applied to every element of t, computed in float64.
// It is used to compute expected values.
func Map[T Float](t *tensors.Tensor, fn func(x float64) float64) *tensors.Tensor {
	out := tensors.FromShape(t.Shape())
	tensors.ConstFlatData(t, func(in []T) {
		tensors.MutableFlatData(out, func(flat []T) {
			for ii, x := range in {
				flat[ii] = T(fn(float64(x)))
			}
		})
	})
	return out
}
