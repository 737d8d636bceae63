// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Scalar returns a source handle with a scalar value.
func Scalar[T dtypes.Supported](g *Graph, value T) *Handle {
	return g.Source(tensors.FromScalar(value))
}

// FromFlat returns a source handle with the given data and dimensions.
func FromFlat[T dtypes.Supported](g *Graph, data []T, dimensions ...int) *Handle {
	return g.Source(tensors.FromFlatDataAndDimensions(data, dimensions...))
}

// elementwiseBinary creates a node whose operands must have exactly the same shape: there is no
// implicit broadcasting.
func elementwiseBinary(opType backends.OpType, lhs, rhs *Handle) *Handle {
	if lhs == nil || rhs == nil {
		exceptions.Panicf("%s: nil operand", opType)
	}
	g := lhs.graph
	g.checkHandles(opType, lhs, rhs)
	if !lhs.shape.Equal(rhs.shape) {
		panic(errors.Wrapf(ErrShapeMismatch, "%s: operands have different shapes %s and %s", opType, lhs.shape, rhs.shape))
	}
	checkFloat(opType, lhs)
	return g.newNode(opType, nil, lhs.shape, lhs, rhs)
}

func elementwiseUnary(opType backends.OpType, params backends.AuxParams, x *Handle) *Handle {
	if x == nil {
		exceptions.Panicf("%s: nil operand", opType)
	}
	checkFloat(opType, x)
	return x.graph.newNode(opType, params, x.shape, x)
}

// checkFloat panics if the handle is not of a float dtype: all calculators operate on floats.
func checkFloat(opType backends.OpType, x *Handle) {
	if !x.shape.DType.IsFloat() {
		exceptions.Panicf("%s: operand %s must be a float, got dtype %s", opType, x, x.shape.DType)
	}
}

// Add returns the elementwise lhs + rhs. Shapes must be equal.
func Add(lhs, rhs *Handle) *Handle {
	return elementwiseBinary(backends.OpTypeAdd, lhs, rhs)
}

// Sub returns the elementwise lhs - rhs. Shapes must be equal, or it panics with ErrShapeMismatch.
func Sub(lhs, rhs *Handle) *Handle {
	return elementwiseBinary(backends.OpTypeSub, lhs, rhs)
}

// Mul returns the elementwise lhs * rhs. Shapes must be equal.
func Mul(lhs, rhs *Handle) *Handle {
	return elementwiseBinary(backends.OpTypeMul, lhs, rhs)
}

// SubFromNum returns minuend - x, elementwise.
//
// The minuend is converted to the dtype of x, and it must be finite.
func SubFromNum(minuend float64, x *Handle) *Handle {
	if math.IsNaN(minuend) || math.IsInf(minuend, 0) {
		exceptions.Panicf("SubFromNum: minuend must be finite, got %g", minuend)
	}
	return elementwiseUnary(backends.OpTypeSubFromNum, backends.ScalarParam(minuend), x)
}

// Neg returns -x.
func Neg(x *Handle) *Handle {
	return elementwiseUnary(backends.OpTypeNeg, nil, x)
}

// Sigmoid returns 1/(1+exp(-x)), elementwise.
func Sigmoid(x *Handle) *Handle {
	return elementwiseUnary(backends.OpTypeSigmoid, nil, x)
}

// SigmoidGrad returns grad * y * (1-y), where y is the output of the Sigmoid.
func SigmoidGrad(grad, y *Handle) *Handle {
	return elementwiseBinary(backends.OpTypeSigmoidGrad, grad, y)
}

// Relu returns max(x, 0), elementwise.
func Relu(x *Handle) *Handle {
	return elementwiseUnary(backends.OpTypeRelu, nil, x)
}

// ReluGrad returns grad where x > 0, and 0 elsewhere. x is the input of the Relu.
func ReluGrad(grad, x *Handle) *Handle {
	return elementwiseBinary(backends.OpTypeReluGrad, grad, x)
}

// Tanh returns the hyperbolic tangent of x, elementwise.
func Tanh(x *Handle) *Handle {
	return elementwiseUnary(backends.OpTypeTanh, nil, x)
}

// TanhGrad returns grad * (1 - y^2), where y is the output of the Tanh.
func TanhGrad(grad, y *Handle) *Handle {
	return elementwiseBinary(backends.OpTypeTanhGrad, grad, y)
}

// Softmax normalizes x over its last axis. For batched shapes it is the last axis of each sample;
// scalars are normalized to 1.
func Softmax(x *Handle) *Handle {
	return elementwiseUnary(backends.OpTypeSoftmax, nil, x)
}

// SoftmaxGrad returns the Jacobian-vector product of the softmax: y_i * (grad_i - sum_j grad_j*y_j),
// over the last axis. y is the output of the Softmax.
func SoftmaxGrad(grad, y *Handle) *Handle {
	return elementwiseBinary(backends.OpTypeSoftmaxGrad, grad, y)
}
