// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and the operand categories derived from it.
//
// Shape represents the shape (DType, dimensions and whether the leading axis is a batch axis) of a
// concrete tensor or of the expected value of a lazy handle in a computation graph.
//
// Go float16 support uses github.com/x448/float16, and bfloat16 uses github.com/gomlx/gopjrt/dtypes/bfloat16.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a shape.
//   - Dimension: the size of one axis.
//   - Batch: a shape whose first axis enumerates independent samples. A batch of 10 matrices of
//     3x4 has dimensions [10 3 4] and Batched == true; a 3D array of 10 pages of 3x4 has the same
//     dimensions but Batched == false.
//   - Category: the data category of a shape (scalar, matrix, 3D array and their batched forms),
//     used by the calculators of a dispatch chain to decide whether they accept an operand.
//
// Example: `shapes.Make(dtypes.Float32, 10, 7)` is a 10x7 float32 matrix, with Size() == 70.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// Shape represents the shape of either a Tensor or the expected shape of the value of a Handle.
//
// Shapes are immutable once constructed: methods that need to change it return a new Shape.
// Use Make or MakeBatch to create a new shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int

	// Batched indicates the first axis is the batch axis.
	Batched bool
}

// Make returns a Shape structure filled with the values given.
//
// It panics if any of the dimensions is negative.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension < 0", s)
		}
	}
	return s
}

// MakeBatch returns a batched Shape: batchSize is prepended to the per-sample dimensions.
func MakeBatch(dtype dtypes.DType, batchSize int, sampleDimensions ...int) Shape {
	dims := make([]int, 0, len(sampleDimensions)+1)
	dims = append(dims, batchSize)
	dims = append(dims, sampleDimensions...)
	s := Make(dtype, dims...)
	s.Batched = true
	return s
}

// Scalar returns a scalar Shape for the given type.
func Scalar[T dtypes.Supported]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// BatchSize returns the dimension of the batch axis, or 0 if the shape is not batched.
func (s Shape) BatchSize() int {
	if !s.Batched || s.Rank() == 0 {
		return 0
	}
	return s.Dimensions[0]
}

// SampleShape returns the shape of one sample of a batched shape. For non-batched shapes it returns a copy
// of itself.
func (s Shape) SampleShape() Shape {
	if !s.Batched || s.Rank() == 0 {
		return s.Clone()
	}
	return Make(s.DType, s.Dimensions[1:]...)
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	if s.Batched {
		return fmt.Sprintf("(%s)batch[%d]%v", s.DType, s.Dimensions[0], s.Dimensions[1:])
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Size returns the number of elements of DType are needed for this shape. It's the product of all dimensions.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Count is an alias to Size: the number of elements described by the shape.
func (s Shape) Count() int { return s.Size() }

// Memory returns the memory used to store an array of the given shape, the same as the size in bytes.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// Equal compares two shapes for equality: dtype, batch flag and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType || s.Batched != s2.Batched {
		return false
	}
	return s.EqualDimensions(s2)
}

// EqualDimensions compares two shapes for equality of dimensions. DTypes and batch flag can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	if s.Rank() != s2.Rank() {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Batched = s.Batched
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// WithDType returns a copy of the shape with the DType changed.
func (s Shape) WithDType(dtype dtypes.DType) Shape {
	s2 := s.Clone()
	s2.DType = dtype
	return s2
}

// HasShape is an interface for objects that have an associated Shape.
// Shape itself, tensors and graph handles implement it.
type HasShape interface {
	Shape() Shape
}
