// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"math"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

// calculate selects the calculator from the backend registry, and computes the op.
func calculate(t *testing.T, b *Backend, opType backends.OpType, params backends.AuxParams, inputs ...*tensors.Tensor) (string, *tensors.Tensor) {
	calc, err := b.Registry().Select(opType, backends.OperandsOf(inputs))
	require.NoError(t, err)
	output, err := calc.Calculate(inputs, params, inputs[0].Shape())
	require.NoError(t, err)
	return calc.Name(), output
}

func TestNew(t *testing.T) {
	b := must.M1(NewBackend(""))
	assert.Equal(t, "SimpleGo (go)", b.Name())
	assert.Contains(t, b.Description(), "gonum")
	assert.True(t, b.Capabilities().DTypes[dtypes.Float16])

	b = must.M1(NewBackend("nogonum, nohalf"))
	assert.NotContains(t, b.Description(), "gonum")
	assert.False(t, b.Capabilities().DTypes[dtypes.Float16])
	assert.True(t, Capabilities.DTypes[dtypes.Float16], "package Capabilities must not be changed")

	_, err := NewBackend("fast")
	require.Error(t, err)

	generic, err := backends.NewWithConfig("go:nohalf")
	require.NoError(t, err)
	assert.Equal(t, "SimpleGo (go)", generic.Name())
	assert.Contains(t, backends.List(), BackendName)
}

func TestSigmoid(t *testing.T) {
	b := must.M1(NewBackend(""))
	name, output := calculate(t, b, backends.OpTypeSigmoid, nil, tensors.FromScalar(0.9213))
	assert.Equal(t, TailCalculatorName, name)
	assert.InDelta(t, 0.7153, tensors.ToScalar[float64](output), 0.001)

	_, output = calculate(t, b, backends.OpTypeSigmoidGrad, nil, tensors.FromScalar(float32(3)), tensors.FromScalar(float32(9)))
	assert.Equal(t, float32(-216), tensors.ToScalar[float32](output))
}

func TestBinaryAndGonum(t *testing.T) {
	b := must.M1(NewBackend(""))
	lhs := tensors.FromFlatDataAndDimensions([]float64{1, 2, 3, 4}, 2, 2)
	rhs := tensors.FromFlatDataAndDimensions([]float64{0.5, -1, 10, 4}, 2, 2)

	name, output := calculate(t, b, backends.OpTypeSub, nil, lhs, rhs)
	assert.Equal(t, GonumCalculatorName, name)
	assert.Equal(t, []float64{0.5, 3, -7, 0}, tensors.CopyFlatData[float64](output))

	name, output = calculate(t, b, backends.OpTypeSubFromNum, backends.ScalarParam(2), lhs)
	assert.Equal(t, GonumCalculatorName, name)
	assert.Equal(t, []float64{1, 0, -1, -2}, tensors.CopyFlatData[float64](output))

	_, output = calculate(t, b, backends.OpTypeMul, nil, lhs, rhs)
	assert.Equal(t, []float64{0.5, -2, 30, 16}, tensors.CopyFlatData[float64](output))

	// Without gonum the tail must produce the same results.
	noGonum := must.M1(NewBackend("nogonum"))
	name, output = calculate(t, noGonum, backends.OpTypeSubFromNum, backends.ScalarParam(2), lhs)
	assert.Equal(t, TailCalculatorName, name)
	assert.Equal(t, []float64{1, 0, -1, -2}, tensors.CopyFlatData[float64](output))
	_, output = calculate(t, noGonum, backends.OpTypeAdd, nil, lhs, rhs)
	assert.Equal(t, []float64{1.5, 1, 13, 8}, tensors.CopyFlatData[float64](output))

	// Float32 always uses the tail.
	name, output = calculate(t, b, backends.OpTypeNeg, nil, tensors.FromFlatDataAndDimensions([]float32{1, -2}, 2))
	assert.Equal(t, TailCalculatorName, name)
	assert.Equal(t, []float32{-1, 2}, tensors.CopyFlatData[float32](output))
}

func TestRelu(t *testing.T) {
	b := must.M1(NewBackend(""))
	x := tensors.FromFlatDataAndDimensions([]float32{-1, 0, 2, 3}, 2, 2)
	grad := tensors.FromFlatDataAndDimensions([]float32{10, 20, 30, 40}, 2, 2)
	_, output := calculate(t, b, backends.OpTypeRelu, nil, x)
	assert.Equal(t, []float32{0, 0, 2, 3}, tensors.CopyFlatData[float32](output))
	_, output = calculate(t, b, backends.OpTypeReluGrad, nil, grad, x)
	assert.Equal(t, []float32{0, 0, 30, 40}, tensors.CopyFlatData[float32](output))
}

func TestTanh(t *testing.T) {
	b := must.M1(NewBackend(""))
	x := tensors.FromFlatDataAndDimensions([]float64{-0.5, 0, 0.5}, 3)
	_, y := calculate(t, b, backends.OpTypeTanh, nil, x)
	assert.InDeltaSlice(t, []float64{math.Tanh(-0.5), 0, math.Tanh(0.5)}, tensors.CopyFlatData[float64](y), 1e-9)
	_, g := calculate(t, b, backends.OpTypeTanhGrad, nil, tensors.FromFlatDataAndDimensions([]float64{1, 1, 2}, 3), y)
	yv := tensors.CopyFlatData[float64](y)
	assert.InDeltaSlice(t, []float64{1 - yv[0]*yv[0], 1, 2 * (1 - yv[2]*yv[2])}, tensors.CopyFlatData[float64](g), 1e-9)
}

func TestSoftmax(t *testing.T) {
	b := must.M1(NewBackend(""))
	x := tensors.FromFlatDataAndDimensions([]float64{1, 2, 3, 1000, 1000, 1000}, 2, 3)
	_, y := calculate(t, b, backends.OpTypeSoftmax, nil, x)
	yv := tensors.CopyFlatData[float64](y)
	assert.InDelta(t, 1.0, yv[0]+yv[1]+yv[2], 1e-9)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, yv[3:], 1e-9, "stable for large values")
	assert.Less(t, yv[0], yv[1])

	// A gradient equal for all elements of a row has no effect on softmax.
	grad := tensors.FromFlatDataAndDimensions([]float64{5, 5, 5, 1, 0, 0}, 2, 3)
	_, g := calculate(t, b, backends.OpTypeSoftmaxGrad, nil, grad, y)
	gv := tensors.CopyFlatData[float64](g)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, gv[:3], 1e-9)
	assert.InDeltaSlice(t, []float64{1.0/3 - 1.0/9, -1.0 / 9, -1.0 / 9}, gv[3:], 1e-9)

	// Batch of scalars: each element is its own group.
	_, y = calculate(t, b, backends.OpTypeSoftmax, nil, tensors.FromBatchFlatData([]float32{7, -3}, 2))
	assert.Equal(t, []float32{1, 1}, tensors.CopyFlatData[float32](y))
}

func TestHalfPrecision(t *testing.T) {
	b := must.M1(NewBackend(""))
	x := tensors.FromFlatDataAndDimensions([]float16.Float16{float16.Fromfloat32(0), float16.Fromfloat32(2)}, 2)
	name, y := calculate(t, b, backends.OpTypeSigmoid, nil, x)
	assert.Equal(t, HalfCalculatorName, name)
	assert.Equal(t, dtypes.Float16, y.DType())
	assert.InDeltaSlice(t, []float64{0.5, 1 / (1 + math.Exp(-2))}, tensors.AsFloat64(y), 1e-3)

	noHalf := must.M1(NewBackend("nohalf"))
	_, err := noHalf.Registry().Select(backends.OpTypeSigmoid, backends.OperandsOf([]*tensors.Tensor{x}))
	require.ErrorIs(t, err, backends.ErrUnsupportedOperand)
}

func TestUnsupportedOperand(t *testing.T) {
	b := must.M1(NewBackend(""))
	onGPU := tensors.FromFlatDataAndDimensions([]float64{1, 2}, 2).OnDevice(tensors.GPU)
	for _, opType := range []backends.OpType{backends.OpTypeSigmoid, backends.OpTypeSubFromNum, backends.OpTypeNeg} {
		_, err := b.Registry().Select(opType, backends.OperandsOf([]*tensors.Tensor{onGPU}))
		require.ErrorIs(t, err, backends.ErrUnsupportedOperand, "op %s", opType)
	}
	_, err := b.Registry().Select(backends.OpTypeAdd, []backends.Operand{backends.OperandOf(tensors.FromScalar(int32(1)))})
	require.ErrorIs(t, err, backends.ErrUnsupportedOperand)

	// Every capability has a chain ending in the tail.
	for opType := range Capabilities.Operations {
		names := b.Registry().Chain(opType).Names()
		assert.Equal(t, TailCalculatorName, names[len(names)-1], "op %s", opType)
	}
	assert.Equal(t, shapes.CategoryMatrix, backends.OperandOf(tensors.FromShape(shapes.Make(dtypes.Float32, 2, 2))).Category)
}
