// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	s0 := Make(dtypes.Float64)
	assert.True(t, s0.IsScalar())
	assert.Equal(t, 1, s0.Size())
	assert.Equal(t, CategoryScalar, s0.Category())

	s1 := Make(dtypes.Float32, 10, 7)
	assert.Equal(t, 70, s1.Count())
	assert.Equal(t, 7, s1.Dim(-1))
	assert.Equal(t, CategoryMatrix, s1.Category())
	assert.Equal(t, uintptr(70*4), s1.Memory())
	assert.Contains(t, s1.String(), "[10 7]")

	require.Panics(t, func() { _ = s1.Dim(2) })
	require.Panics(t, func() { _ = Make(dtypes.Float32, 3, -1) })

	// Zero-sized axes are valid.
	assert.Equal(t, 0, Make(dtypes.Float32, 0, 3).Size())
}

func TestEqual(t *testing.T) {
	a := Make(dtypes.Float32, 2, 10, 7)
	b := MakeBatch(dtypes.Float32, 2, 10, 7)
	assert.True(t, a.EqualDimensions(b))
	assert.False(t, a.Equal(b), "batch flag must be part of equality")
	assert.True(t, a.Equal(a.Clone()))
	assert.False(t, a.Equal(a.WithDType(dtypes.Float64)))
	assert.True(t, b.Equal(MakeBatch(dtypes.Float32, 2, 10, 7)))
	assert.False(t, b.Equal(MakeBatch(dtypes.Float32, 3, 10, 7)))
}

func TestCategory(t *testing.T) {
	assert.Equal(t, CategoryThreeDArray, Make(dtypes.Float32, 2, 10, 7).Category())
	assert.Equal(t, CategoryBatchScalar, MakeBatch(dtypes.Float32, 10).Category())
	assert.Equal(t, CategoryBatchMatrix, MakeBatch(dtypes.Float32, 2, 10, 7).Category())
	assert.Equal(t, CategoryBatchThreeDArray, MakeBatch(dtypes.Float32, 2, 3, 10, 7).Category())
	assert.Equal(t, CategoryTensor, Make(dtypes.Float32, 5).Category())
	assert.Equal(t, CategoryInvalid, Invalid().Category())
	assert.True(t, CategoryBatchMatrix.IsBatch())
	assert.False(t, CategoryMatrix.IsBatch())
	assert.Equal(t, "BatchThreeDArray", CategoryBatchThreeDArray.String())

	b := MakeBatch(dtypes.Float32, 2, 10, 7)
	assert.Equal(t, 2, b.BatchSize())
	assert.True(t, b.SampleShape().Equal(Make(dtypes.Float32, 10, 7)))
}
