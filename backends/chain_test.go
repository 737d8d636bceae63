// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedCalculator(name string, accepts Predicate) Calculator {
	return NewCalculator(name, accepts, func(inputs []*tensors.Tensor, _ AuxParams, outputShape shapes.Shape) (*tensors.Tensor, error) {
		return tensors.FromShape(outputShape), nil
	})
}

func TestChainSelect(t *testing.T) {
	cpuFloat32 := []Operand{{Category: shapes.CategoryMatrix, DType: dtypes.Float32, Device: tensors.CPU}}
	cpuFloat64 := []Operand{{Category: shapes.CategoryMatrix, DType: dtypes.Float64, Device: tensors.CPU}}
	gpuFloat32 := []Operand{{Category: shapes.CategoryMatrix, DType: dtypes.Float32, Device: tensors.GPU}}

	chain := NewChain(OpTypeSub)
	_, err := chain.Select(cpuFloat32)
	require.ErrorIs(t, err, ErrUnsupportedOperand, "chain without tail")

	chain.SetTail(namedCalculator("tail", OnDevices(tensors.CPU)))
	chain.Register(namedCalculator("f64", WithDTypes(dtypes.Float64)))
	chain.Register(namedCalculator("matrix", InCategories(shapes.CategoryMatrix)))

	calc, err := chain.Select(cpuFloat64)
	require.NoError(t, err)
	assert.Equal(t, "f64", calc.Name())
	calc, err = chain.Select(cpuFloat32)
	require.NoError(t, err)
	assert.Equal(t, "matrix", calc.Name())

	// Tail precondition fails for GPU, once the specialised ones are restricted to CPU.
	chain.Register(namedCalculator("matrix", All(OnDevices(tensors.CPU), InCategories(shapes.CategoryMatrix))))
	chain.Register(namedCalculator("f64", All(OnDevices(tensors.CPU), WithDTypes(dtypes.Float64))))
	_, err = chain.Select(gpuFloat32)
	require.ErrorIs(t, err, ErrUnsupportedOperand)
	assert.Contains(t, err.Error(), "tail")

	onlyTail := []Operand{{Category: shapes.CategoryScalar, DType: dtypes.Float32, Device: tensors.CPU}}
	calc, err = chain.Select(onlyTail)
	require.NoError(t, err)
	assert.Equal(t, "tail", calc.Name())
}

func TestChainReRegisterKeepsPriority(t *testing.T) {
	operands := []Operand{{Category: shapes.CategoryMatrix, DType: dtypes.Float64, Device: tensors.CPU}}
	chain := NewChain(OpTypeAdd)
	chain.SetTail(namedCalculator("tail", nil))
	chain.Register(namedCalculator("a", nil))
	chain.Register(namedCalculator("b", nil))
	assert.Equal(t, []string{"a", "b", "tail"}, chain.Names())

	for range 3 {
		chain.Register(namedCalculator("a", nil))
		chain.Register(namedCalculator("b", nil))
		assert.Equal(t, []string{"a", "b", "tail"}, chain.Names())
		calc, err := chain.Select(operands)
		require.NoError(t, err)
		assert.Equal(t, "a", calc.Name())
	}

	chain.RegisterFirst(namedCalculator("b", nil))
	assert.Equal(t, []string{"b", "a", "tail"}, chain.Names())
	require.True(t, chain.Unregister("b"))
	require.False(t, chain.Unregister("b"))
	assert.Equal(t, []string{"a", "tail"}, chain.Names())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	operands := []Operand{{Category: shapes.CategoryScalar, DType: dtypes.Float32, Device: tensors.CPU}}
	_, err := r.Select(OpTypeSigmoid, operands)
	require.ErrorIs(t, err, ErrUnsupportedOperand)

	r.SetTail(OpTypeSigmoid, namedCalculator("tail", nil))
	r2 := r.Clone()
	r2.Register(OpTypeSigmoid, namedCalculator("special", nil))

	calc, err := r.Select(OpTypeSigmoid, operands)
	require.NoError(t, err)
	assert.Equal(t, "tail", calc.Name(), "original registry must not see the clone's changes")
	calc, err = r2.Select(OpTypeSigmoid, operands)
	require.NoError(t, err)
	assert.Equal(t, "special", calc.Name())
}

func TestOpType(t *testing.T) {
	assert.Equal(t, "SubFromNum", OpTypeSubFromNum.String())
	op, err := OpTypeString("softmaxgrad")
	require.NoError(t, err)
	assert.Equal(t, OpTypeSoftmaxGrad, op)
	_, err = OpTypeString("Conv")
	require.Error(t, err)
	assert.Equal(t, 1, OpTypeSubFromNum.NumInputs())
	assert.Equal(t, 2, OpTypeSigmoidGrad.NumInputs())
	assert.Equal(t, 0, OpTypeSource.NumInputs())
}

func TestAuxParams(t *testing.T) {
	assert.True(t, AuxParamsEqual(nil, nil))
	assert.False(t, AuxParamsEqual(ScalarParam(1), nil))
	assert.True(t, AuxParamsEqual(ScalarParam(1), ScalarParam(1)))
	assert.False(t, AuxParamsEqual(ScalarParam(1), ScalarParam(2)))
}

func TestCapabilities(t *testing.T) {
	c := Capabilities{
		Operations: map[OpType]bool{OpTypeAdd: true},
		DTypes:     map[dtypes.DType]bool{dtypes.Float32: true},
		Devices:    map[tensors.Device]bool{tensors.CPU: true},
	}
	c2 := c.Clone()
	c2.Operations[OpTypeMul] = true
	assert.False(t, c.Operations[OpTypeMul])
	operand := Operand{Category: shapes.CategoryMatrix, DType: dtypes.Float32, Device: tensors.CPU}
	assert.True(t, c.Supports(OpTypeAdd, []Operand{operand, operand}))
	operand.Device = tensors.GPU
	assert.False(t, c.Supports(OpTypeAdd, []Operand{operand}))
	assert.False(t, c.Supports(OpTypeMul, nil))
	assert.True(t, c.SupportsDType(OpTypeAdd, dtypes.Float32))
	assert.False(t, c.SupportsDType(OpTypeAdd, dtypes.Float64))
	assert.False(t, c.SupportsDType(OpTypeMul, dtypes.Float32))
}
