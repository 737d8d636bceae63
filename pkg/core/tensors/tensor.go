// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements the concrete data container produced by evaluating a lazy graph.
//
// A Tensor holds a shape, a device tag and the flat data, stored as a slice of the Go type
// corresponding to the shape's DType. Tensors bound into graph handles are never mutated after
// binding: use MutableFlatData only on tensors you just created.
package tensors

import (
	"fmt"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Device where the tensor data lives.
//
// Only CPU is executed by this engine. Other devices are tags that calculators can decline, so a
// dispatch chain can report an unsupported operand instead of silently reading foreign memory.
type Device int

const (
	CPU Device = iota
	GPU
)

// String implements fmt.Stringer.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	default:
		return fmt.Sprintf("Device(%d)", int(d))
	}
}

// Tensor is a concrete multi-dimensional array.
type Tensor struct {
	shape  shapes.Shape
	device Device

	// flat is always a slice of the underlying data type (shape.DType).
	flat any
}

// newTensor without any storage.
func newTensor(shape shapes.Shape) *Tensor {
	return &Tensor{shape: shape.Clone(), device: CPU}
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType returns the DType of the tensor's shape.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank returns the rank of the tensor's shape.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor represents a scalar value.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size returns the number of elements in the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the number of bytes used to store the tensor.
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// Device where the tensor lives.
func (t *Tensor) Device() Device { return t.device }

// Flat returns the flat slice holding the data. It must not be modified.
func (t *Tensor) Flat() any { return t.flat }

// Ok returns whether the tensor is valid: non-nil with a valid shape and storage.
func (t *Tensor) Ok() bool {
	return t != nil && t.shape.Ok() && t.flat != nil
}

// AssertValid panics if the tensor is nil or has no storage.
func (t *Tensor) AssertValid() {
	if t == nil {
		exceptions.Panicf("tensor is nil")
	}
	if !t.shape.Ok() {
		exceptions.Panicf("tensor has an invalid shape")
	}
	if t.flat == nil {
		exceptions.Panicf("tensor %s has no storage", t.shape)
	}
}

// FromShape returns a Tensor with the given shape, on CPU, with the data initialized with zeros.
func FromShape(shape shapes.Shape) (t *Tensor) {
	if !shape.Ok() {
		panic(errors.New("invalid shape"))
	}
	t = newTensor(shape)
	t.flat = reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), shape.Size(), shape.Size()).Interface()
	return
}

// FromShapeAndFlat creates a Tensor that takes ownership of flat (no copy is made).
//
// It returns an error if flat is not a slice of the shape's DType or if its length doesn't match the shape.
func FromShapeAndFlat(shape shapes.Shape, flat any) (*Tensor, error) {
	if !shape.Ok() {
		return nil, errors.New("FromShapeAndFlat: invalid shape")
	}
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice {
		return nil, errors.Errorf("FromShapeAndFlat: flat must be a slice, got %T", flat)
	}
	if flatV.Type().Elem() != shape.DType.GoType() {
		return nil, errors.Errorf("FromShapeAndFlat: flat is %T, but shape %s requires []%s",
			flat, shape, shape.DType.GoType())
	}
	if flatV.Len() != shape.Size() {
		return nil, errors.Errorf("FromShapeAndFlat: flat has %d elements, shape %s requires %d",
			flatV.Len(), shape, shape.Size())
	}
	t := newTensor(shape)
	t.flat = flat
	return t, nil
}

// FromScalar returns a scalar tensor with the given value.
func FromScalar[T dtypes.Supported](value T) (t *Tensor) {
	t = FromShape(shapes.Scalar[T]())
	t.flat.([]T)[0] = value
	return
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with a copy of data.
//
// It panics if len(data) doesn't match the dimensions.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) (t *Tensor) {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	return fromFlatDataAndShape(data, shape)
}

// FromBatchFlatData creates a batched tensor (see shapes.MakeBatch), filled with a copy of data.
func FromBatchFlatData[T dtypes.Supported](data []T, batchSize int, sampleDimensions ...int) (t *Tensor) {
	shape := shapes.MakeBatch(dtypes.FromGenericsType[T](), batchSize, sampleDimensions...)
	return fromFlatDataAndShape(data, shape)
}

func fromFlatDataAndShape[T dtypes.Supported](data []T, shape shapes.Shape) (t *Tensor) {
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatData(%s): data size is %d, but dimensions size is %d", shape, len(data), shape.Size())
	}
	t = FromShape(shape)
	copy(t.flat.([]T), data)
	return
}

// OnDevice returns a copy of the tensor tagged for the given device.
func (t *Tensor) OnDevice(device Device) *Tensor {
	clone := t.Clone()
	clone.device = device
	return clone
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// Even scalar values have a flattened data representation of one element.
//
// The data must not be changed.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	t.AssertValid()
	if t.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("ConstFlatData[%T] is incompatible with Tensor's dtype %s -- expected dtype %s",
			v, t.shape.DType, dtypes.FromGenericsType[T]())
	}
	accessFn(t.flat.([]T))
}

// MutableFlatData calls accessFn with a flat slice pointing to the Tensor data, which can be changed until
// accessFn returns.
//
// Only use it on tensors that are not yet bound to a graph handle.
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	t.AssertValid()
	if t.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("MutableFlatData[%T] is incompatible with Tensor's dtype %s", v, t.shape.DType)
	}
	accessFn(t.flat.([]T))
}

// CopyFlatData returns a copy of the flat data of the Tensor.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	var flatCopy []T
	ConstFlatData(t, func(flat []T) {
		flatCopy = make([]T, len(flat))
		copy(flatCopy, flat)
	})
	return flatCopy
}

// ToScalar returns the scalar value of the Tensor.
//
// It panics if the tensor doesn't hold exactly one element, or if T doesn't match the DType.
func ToScalar[T dtypes.Supported](t *Tensor) T {
	if t.Size() != 1 {
		exceptions.Panicf("ToScalar[%T] requires a tensor with one element, got shape %s", *new(T), t.shape)
	}
	var v T
	ConstFlatData(t, func(flat []T) { v = flat[0] })
	return v
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	t.AssertValid()
	clone := newTensor(t.shape)
	clone.device = t.device
	flatV := reflect.ValueOf(t.flat)
	cloneV := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(cloneV, flatV)
	clone.flat = cloneV.Interface()
	return clone
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	if t == nil {
		return "<nil tensor>"
	}
	if !t.Ok() {
		return fmt.Sprintf("%s: <no storage>", t.shape)
	}
	if t.device != CPU {
		return fmt.Sprintf("%s@%s: %v", t.shape, t.device, t.Value())
	}
	return fmt.Sprintf("%s: %v", t.shape, t.Value())
}
