// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
	"gonum.org/v1/gonum/floats"
)

// GonumCalculatorName is the name of the dense float64 calculators based on gonum/floats.
const GonumCalculatorName = "gonum"

// acceptsGonum: dense float64 on CPU, any category.
var acceptsGonum = backends.All(backends.OnDevices(tensors.CPU), backends.WithDTypes(dtypes.Float64))

// gonumBinary wraps one of the floats.XxxTo(dst, s, t) functions.
func gonumBinary(opFn func(dst, s, t []float64) []float64) backends.CalculatorFunc {
	return func(inputs []*tensors.Tensor, _ backends.AuxParams, outputShape shapes.Shape) (*tensors.Tensor, error) {
		output := tensors.FromShape(outputShape)
		tensors.ConstFlatData(inputs[0], func(lhs []float64) {
			tensors.ConstFlatData(inputs[1], func(rhs []float64) {
				tensors.MutableFlatData(output, func(out []float64) {
					opFn(out, lhs, rhs)
				})
			})
		})
		return output, nil
	}
}

// gonumNegate computes minuend - input, with minuend = 0 for Neg.
func gonumNegate(withParam bool) backends.CalculatorFunc {
	return func(inputs []*tensors.Tensor, params backends.AuxParams, outputShape shapes.Shape) (*tensors.Tensor, error) {
		output := tensors.FromShape(outputShape)
		tensors.ConstFlatData(inputs[0], func(input []float64) {
			tensors.MutableFlatData(output, func(out []float64) {
				copy(out, input)
				floats.Scale(-1, out)
				if withParam {
					floats.AddConst(scalarParam(params), out)
				}
			})
		})
		return output, nil
	}
}

// registerGonum registers the gonum calculators ahead of the tails.
func registerGonum(r *backends.Registry) {
	r.Register(backends.OpTypeAdd, backends.NewCalculator(GonumCalculatorName, acceptsGonum, gonumBinary(floats.AddTo)))
	r.Register(backends.OpTypeSub, backends.NewCalculator(GonumCalculatorName, acceptsGonum, gonumBinary(floats.SubTo)))
	r.Register(backends.OpTypeMul, backends.NewCalculator(GonumCalculatorName, acceptsGonum, gonumBinary(floats.MulTo)))
	r.Register(backends.OpTypeNeg, backends.NewCalculator(GonumCalculatorName, acceptsGonum, gonumNegate(false)))
	r.Register(backends.OpTypeSubFromNum, backends.NewCalculator(GonumCalculatorName, acceptsGonum, gonumNegate(true)))
}
