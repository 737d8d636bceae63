// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

// Category of the data described by a shape.
//
// Categories are what the calculators of a dispatch chain declare support for: a calculator may accept
// only matrices, or only non-batched data, etc.
type Category int

const (
	CategoryInvalid Category = iota
	CategoryScalar
	CategoryMatrix
	CategoryThreeDArray
	CategoryBatchScalar
	CategoryBatchMatrix
	CategoryBatchThreeDArray

	// CategoryTensor is any other rank (e.g. a rank-1 vector or rank > 3).
	CategoryTensor
)

var categoryNames = [...]string{
	CategoryInvalid:          "Invalid",
	CategoryScalar:           "Scalar",
	CategoryMatrix:           "Matrix",
	CategoryThreeDArray:      "ThreeDArray",
	CategoryBatchScalar:      "BatchScalar",
	CategoryBatchMatrix:      "BatchMatrix",
	CategoryBatchThreeDArray: "BatchThreeDArray",
	CategoryTensor:           "Tensor",
}

// String implements fmt.Stringer.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Category(?)"
	}
	return categoryNames[c]
}

// IsBatch returns whether the category is one of the batched ones.
func (c Category) IsBatch() bool {
	return c == CategoryBatchScalar || c == CategoryBatchMatrix || c == CategoryBatchThreeDArray
}

// Category returns the data category of the shape.
func (s Shape) Category() Category {
	if !s.Ok() {
		return CategoryInvalid
	}
	rank := s.Rank()
	if s.Batched {
		rank--
		switch rank {
		case 0:
			return CategoryBatchScalar
		case 2:
			return CategoryBatchMatrix
		case 3:
			return CategoryBatchThreeDArray
		}
		return CategoryTensor
	}
	switch rank {
	case 0:
		return CategoryScalar
	case 2:
		return CategoryMatrix
	case 3:
		return CategoryThreeDArray
	}
	return CategoryTensor
}
