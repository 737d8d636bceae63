// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"math"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/x448/float16"
)

// Value returns a multidimensional slice (except if shape is a scalar) containing a copy of the values stored
// in the tensor.
// This is expensive, and usually only used for smaller tensors in tests and to print results.
func (t *Tensor) Value() any {
	t.AssertValid()
	flatV := reflect.ValueOf(t.flat)
	if t.shape.IsScalar() {
		return flatV.Index(0).Interface()
	}
	flatCopyV := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(flatCopyV, flatV)
	if t.shape.Rank() == 1 {
		return flatCopyV.Interface()
	}
	return convertDataToSlices(flatCopyV, t.shape.Dimensions...).Interface()
}

// At returns the element at the given indices, converted to float64.
//
// It panics if the number of indices doesn't match the rank, if an index is out-of-bounds or if the
// DType is not a float.
func (t *Tensor) At(indices ...int) float64 {
	t.AssertValid()
	if len(indices) != t.Rank() {
		exceptions.Panicf("Tensor.At: expected %d indices for shape %s, got %d", t.Rank(), t.shape, len(indices))
	}
	offset := 0
	for axis, idx := range indices {
		dim := t.shape.Dimensions[axis]
		if idx < 0 || idx >= dim {
			exceptions.Panicf("Tensor.At: index %d out of bounds for axis %d (dimension %d)", idx, axis, dim)
		}
		offset = offset*dim + idx
	}
	return AsFloat64(t)[offset]
}

// AsFloat64 returns a copy of the data converted to float64.
//
// It panics if the tensor's DType is not one of the supported float types.
func AsFloat64(t *Tensor) []float64 {
	t.AssertValid()
	switch flat := t.flat.(type) {
	case []float64:
		out := make([]float64, len(flat))
		copy(out, flat)
		return out
	case []float32:
		return convertToFloat64(flat, func(v float32) float64 { return float64(v) })
	case []float16.Float16:
		return convertToFloat64(flat, func(v float16.Float16) float64 { return float64(v.Float32()) })
	case []bfloat16.BFloat16:
		return convertToFloat64(flat, func(v bfloat16.BFloat16) float64 { return float64(v.Float32()) })
	default:
		exceptions.Panicf("AsFloat64: tensor dtype %s is not a supported float type", t.shape.DType)
	}
	return nil
}

func convertToFloat64[T any](flat []T, convertFn func(T) float64) []float64 {
	out := make([]float64, len(flat))
	for ii, v := range flat {
		out[ii] = convertFn(v)
	}
	return out
}

// Equal checks weather t == otherTensor.
// If they are the same pointer they are considered equal.
// If the shapes or devices are different it returns false.
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) || t.device != otherTensor.device {
		return false
	}
	t0V := reflect.ValueOf(t.flat)
	t1V := reflect.ValueOf(otherTensor.flat)
	for ii := range t0V.Len() {
		if !t0V.Index(ii).Equal(t1V.Index(ii)) {
			return false
		}
	}
	return true
}

// InDelta checks weather Abs(t - otherTensor) <= delta for every element.
// If the shapes are different it returns false.
// It panics if the DType is not a float.
func (t *Tensor) InDelta(otherTensor *Tensor, delta float64) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	values0, values1 := AsFloat64(t), AsFloat64(otherTensor)
	for ii, v0 := range values0 {
		if math.Abs(v0-values1[ii]) > delta {
			return false
		}
	}
	return true
}

// convertDataToSlices takes data as a flat slice, and creates a multidimensional slices with the given dimensions that
// points to the given data.
func convertDataToSlices(dataV reflect.Value, dimensions ...int) reflect.Value {
	if len(dimensions) <= 1 {
		return dataV
	}
	resultT := dataV.Type().Elem()
	for range dimensions {
		resultT = reflect.SliceOf(resultT)
	}
	strides := make([]int, len(dimensions))
	currentStride := 1
	for dim := len(dimensions) - 1; dim >= 0; dim-- {
		strides[dim] = currentStride
		currentStride *= dimensions[dim]
	}
	return createSlicesRecursively(resultT, dataV, dimensions, strides)
}

// createSlicesRecursively creates the nested slices pointing into the flat data, one level per axis.
func createSlicesRecursively(resultT reflect.Type, data reflect.Value, dimensions []int, strides []int) reflect.Value {
	if len(strides) == 1 {
		return data
	}
	numElements := dimensions[0]
	slice := reflect.MakeSlice(resultT, numElements, numElements)
	for ii := range numElements {
		subData := data.Slice(ii*strides[0], (ii+1)*strides[0])
		slice.Index(ii).Set(createSlicesRecursively(resultT.Elem(), subData, dimensions[1:], strides[1:]))
	}
	return slice
}
