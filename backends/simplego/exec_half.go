// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// HalfCalculatorName is the name of the float16/bfloat16 calculators.
const HalfCalculatorName = "half"

// acceptsHalf: CPU operands, all float16 or all bfloat16.
var acceptsHalf = backends.All(backends.OnDevices(tensors.CPU), backends.WithDTypes(halfDTypes...))

// halfFn upcasts the inputs to float32, runs the float32 kernel of the dispatcher and converts
// the result back.
func halfFn(d *DTypeDispatcher) backends.CalculatorFunc {
	return func(inputs []*tensors.Tensor, params backends.AuxParams, outputShape shapes.Shape) (*tensors.Tensor, error) {
		inputs32 := make([]*tensors.Tensor, len(inputs))
		for ii, input := range inputs {
			inputs32[ii] = toFloat32(input)
		}
		output32 := tensors.FromShape(outputShape.WithDType(dtypes.Float32))
		d.Dispatch(dtypes.Float32, inputs32, params, output32)
		return fromFloat32(output32, outputShape)
	}
}

func toFloat32(t *tensors.Tensor) *tensors.Tensor {
	flat32 := make([]float32, t.Size())
	switch t.DType() {
	case dtypes.Float16:
		tensors.ConstFlatData(t, func(flat []float16.Float16) {
			for ii, v := range flat {
				flat32[ii] = v.Float32()
			}
		})
	case dtypes.BFloat16:
		tensors.ConstFlatData(t, func(flat []bfloat16.BFloat16) {
			for ii, v := range flat {
				flat32[ii] = v.Float32()
			}
		})
	default:
		exceptions.Panicf("half-precision calculator: unexpected dtype %s", t.DType())
	}
	t32, err := tensors.FromShapeAndFlat(t.Shape().WithDType(dtypes.Float32), flat32)
	if err != nil {
		panic(err)
	}
	return t32
}

func fromFloat32(t32 *tensors.Tensor, outputShape shapes.Shape) (*tensors.Tensor, error) {
	if outputShape.DType != dtypes.Float16 && outputShape.DType != dtypes.BFloat16 {
		return nil, errors.Errorf("half-precision calculator: unexpected output dtype %s", outputShape.DType)
	}
	output := tensors.FromShape(outputShape)
	tensors.ConstFlatData(t32, func(flat32 []float32) {
		switch outputShape.DType {
		case dtypes.Float16:
			tensors.MutableFlatData(output, func(flat []float16.Float16) {
				for ii, v := range flat32 {
					flat[ii] = float16.Fromfloat32(v)
				}
			})
		case dtypes.BFloat16:
			tensors.MutableFlatData(output, func(flat []bfloat16.BFloat16) {
				for ii, v := range flat32 {
					flat[ii] = bfloat16.FromFloat32(v)
				}
			})
		}
	})
	return output, nil
}

// registerHalf registers the half-precision calculator for every operation.
func registerHalf(r *backends.Registry) {
	for opType, d := range dispatchers {
		r.Register(opType, backends.NewCalculator(HalfCalculatorName, acceptsHalf, halfFn(d)))
	}
}
