// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"math"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	. "github.com/gomlx/metann/pkg/core/graph"
	"github.com/gomlx/metann/pkg/core/graph/graphtest"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func TestSub(t *testing.T) {
	graphtest.TestOfficialConfigs(t, func(t *testing.T, g *Graph) {
		a := graphtest.GenBatchMatrix[float32](3, 4, 5, -2, 0.1)
		b := graphtest.GenBatchMatrix[float32](3, 4, 5, 1, -0.03)
		got, err := Evaluate(Sub(g.Source(a), g.Source(b)))
		require.NoError(t, err)
		av, bv, gotV := tensors.AsFloat64(a), tensors.AsFloat64(b), tensors.AsFloat64(got)
		for ii := range av {
			require.InDelta(t, av[ii]-bv[ii], gotV[ii], 1e-5, "linear index %d", ii)
		}
	})
}

func TestSubFromNum(t *testing.T) {
	graphtest.TestOfficialConfigs(t, func(t *testing.T, g *Graph) {
		for _, c := range []float64{0, 1, -3.5, 100} {
			x := graphtest.GenThreeDArray[float64](2, 3, 4, -1, 0.25)
			got, err := Evaluate(SubFromNum(c, g.Source(x)))
			require.NoError(t, err)
			for ii, xv := range tensors.AsFloat64(x) {
				require.Equal(t, c-xv, tensors.AsFloat64(got)[ii])
			}
		}
	})
}

func TestShapeMismatch(t *testing.T) {
	g := graphtest.NewTestGraph()
	a := g.Source(graphtest.GenMatrix[float32](10, 7, 0, 1))
	b := g.Source(graphtest.GenMatrix[float32](7, 10, 0, 1))
	numNodes := g.NumNodes()
	err := exceptions.TryCatch[error](func() { _ = Sub(a, b) })
	require.ErrorIs(t, err, ErrShapeMismatch)
	assert.Equal(t, numNodes, g.NumNodes(), "no node should have been created")

	// Batch flag is part of the shape.
	c := g.Source(graphtest.GenBatchMatrix[float32](1, 10, 7, 0, 1))
	err = exceptions.TryCatch[error](func() { _ = Sub(a, c) })
	require.ErrorIs(t, err, ErrShapeMismatch)

	// Different dtypes.
	d := g.Source(graphtest.GenMatrix[float64](10, 7, 0, 1))
	err = exceptions.TryCatch[error](func() { _ = Sub(a, d) })
	require.ErrorIs(t, err, ErrShapeMismatch)

	// Non-float operands are rejected at construction.
	require.Panics(t, func() { _ = SubFromNum(1, Scalar(g, int32(3))) })
	require.Panics(t, func() { _ = SubFromNum(math.NaN(), a) })

	// Handles from another graph.
	other := graphtest.NewTestGraph().Source(graphtest.GenMatrix[float32](10, 7, 0, 1))
	require.Panics(t, func() { _ = Add(a, other) })
}

func TestSigmoidScalar(t *testing.T) {
	g := graphtest.NewTestGraph()
	got, err := Evaluate(Sigmoid(Scalar(g, 0.9213)))
	require.NoError(t, err)
	assert.InDelta(t, 0.7153, tensors.ToScalar[float64](got), 0.001)

	got, err = Evaluate(SigmoidGrad(Scalar(g, 3.0), Scalar(g, 9.0)))
	require.NoError(t, err)
	assert.Equal(t, -216.0, tensors.ToScalar[float64](got))
}

func TestSigmoidCategories(t *testing.T) {
	inputs := map[shapes.Category]*tensors.Tensor{
		shapes.CategoryScalar:           tensors.FromScalar(float32(0.9213)),
		shapes.CategoryMatrix:           graphtest.GenMatrix[float32](10, 7, -1, 0.01),
		shapes.CategoryThreeDArray:      graphtest.GenThreeDArray[float32](5, 10, 7, -1, 0.01),
		shapes.CategoryBatchScalar:      graphtest.GenBatchScalar[float32](10, -0.27, 0.01),
		shapes.CategoryBatchMatrix:      graphtest.GenBatchMatrix[float32](10, 8, 7, -1, 0.002),
		shapes.CategoryBatchThreeDArray: graphtest.GenBatchThreeDArray[float32](3, 5, 4, 7, -1, 0.003),
	}
	graphtest.TestOfficialConfigs(t, func(t *testing.T, g *Graph) {
		for category, input := range inputs {
			require.Equal(t, category, input.Shape().Category())
			got, err := Evaluate(Sigmoid(g.Source(input)))
			require.NoError(t, err, "category %s", category)
			graphtest.RequireInDelta(t, graphtest.Map[float32](input, sigmoid), got, 0.001, "category %s", category)

			// Gradient with the sigmoid output.
			grad := graphtest.Gen[float32](input.Shape(), 0.5, 0.001)
			gotGrad, err := Evaluate(SigmoidGrad(g.Source(grad), g.Source(got)))
			require.NoError(t, err)
			gv, yv, gotV := tensors.AsFloat64(grad), tensors.AsFloat64(got), tensors.AsFloat64(gotGrad)
			for ii := range gv {
				require.InDelta(t, gv[ii]*yv[ii]*(1-yv[ii]), gotV[ii], 1e-5)
			}
		}
	})
}

func TestSigmoidMatrix(t *testing.T) {
	graphtest.RunTestGraphFn(t, "Sigmoid(10x7)", func(g *Graph) (inputs, outputs []*Handle) {
		x := g.Source(graphtest.GenMatrix[float64](10, 7, -1, 0.01))
		return []*Handle{x}, []*Handle{Sigmoid(x)}
	}, []*tensors.Tensor{graphtest.Map[float64](graphtest.GenMatrix[float64](10, 7, -1, 0.01), sigmoid)}, 0.001)
}

func TestActivations(t *testing.T) {
	x := tensors.FromFlatDataAndDimensions([]float64{-2, -0.5, 0, 0.5, 2, 3}, 2, 3)
	grad := tensors.FromFlatDataAndDimensions([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	graphtest.RunTestGraphFn(t, "Relu/Tanh/Neg", func(g *Graph) (inputs, outputs []*Handle) {
		xH, gradH := g.Source(x), g.Source(grad)
		return []*Handle{xH, gradH}, []*Handle{Relu(xH), ReluGrad(gradH, xH), Tanh(xH), Neg(xH), Mul(xH, gradH), Add(xH, gradH)}
	}, []*tensors.Tensor{
		tensors.FromFlatDataAndDimensions([]float64{0, 0, 0, 0.5, 2, 3}, 2, 3),
		tensors.FromFlatDataAndDimensions([]float64{0, 0, 0, 4, 5, 6}, 2, 3),
		graphtest.Map[float64](x, math.Tanh),
		tensors.FromFlatDataAndDimensions([]float64{2, 0.5, 0, -0.5, -2, -3}, 2, 3),
		tensors.FromFlatDataAndDimensions([]float64{-2, -1, 0, 2, 10, 18}, 2, 3),
		tensors.FromFlatDataAndDimensions([]float64{-1, 1.5, 3, 4.5, 7, 9}, 2, 3),
	}, 1e-9)
}

func TestSoftmax(t *testing.T) {
	g := graphtest.NewTestGraph()
	x := g.Source(graphtest.GenBatchMatrix[float32](4, 3, 5, -1, 0.1))
	y, err := Evaluate(Softmax(x))
	require.NoError(t, err)
	values := tensors.AsFloat64(y)
	for row := 0; row < len(values); row += 5 {
		var sum float64
		for _, v := range values[row : row+5] {
			sum += v
		}
		require.InDelta(t, 1.0, sum, 1e-5)
	}
	// SoftmaxGrad of a gradient constant along the last axis is 0.
	ones := g.Source(graphtest.Gen[float32](x.Shape(), 1, 0))
	yH := Softmax(x) // De-duplicated: no recomputation.
	gotGrad, err := Evaluate(SoftmaxGrad(ones, yH))
	require.NoError(t, err)
	for _, v := range tensors.AsFloat64(gotGrad) {
		require.InDelta(t, 0.0, v, 1e-6)
	}
}

func TestHalfPrecision(t *testing.T) {
	g := graphtest.NewTestGraph()
	values := []float32{-1, -0.5, 0, 0.5, 1, 2}
	f16 := make([]float16.Float16, len(values))
	bf16 := make([]bfloat16.BFloat16, len(values))
	for ii, v := range values {
		f16[ii] = float16.Fromfloat32(v)
		bf16[ii] = bfloat16.FromFloat32(v)
	}
	want := make([]float64, len(values))
	for ii, v := range values {
		want[ii] = sigmoid(float64(v))
	}
	for _, x := range []*tensors.Tensor{
		tensors.FromFlatDataAndDimensions(f16, 2, 3),
		tensors.FromFlatDataAndDimensions(bf16, 2, 3),
	} {
		got, err := Evaluate(Sigmoid(g.Source(x)))
		require.NoError(t, err, "dtype %s", x.DType())
		assert.Equal(t, x.DType(), got.DType())
		assert.InDeltaSlice(t, want, tensors.AsFloat64(got), 0.01, "dtype %s", x.DType())
	}
	assert.Equal(t, dtypes.Float16, tensors.FromFlatDataAndDimensions(f16, 6).DType())
}
