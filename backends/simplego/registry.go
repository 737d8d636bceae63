// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/tensors"
)

// TailCalculatorName is the name of the generic calculators at the end of every chain.
const TailCalculatorName = "go"

// acceptsTail is the precondition of the tail calculators: CPU only, float32 or float64.
var acceptsTail = backends.All(backends.OnDevices(tensors.CPU), backends.WithDTypes(dtypes.Float32, dtypes.Float64))

// dispatchers holds the generic kernels per OpType.
var dispatchers = map[backends.OpType]*DTypeDispatcher{
	backends.OpTypeAdd:         addDispatcher,
	backends.OpTypeSub:         subDispatcher,
	backends.OpTypeSubFromNum:  subFromNumDispatcher,
	backends.OpTypeMul:         mulDispatcher,
	backends.OpTypeNeg:         negDispatcher,
	backends.OpTypeSigmoid:     sigmoidDispatcher,
	backends.OpTypeSigmoidGrad: sigmoidGradDispatcher,
	backends.OpTypeRelu:        reluDispatcher,
	backends.OpTypeReluGrad:    reluGradDispatcher,
	backends.OpTypeSoftmax:     softmaxDispatcher,
	backends.OpTypeSoftmaxGrad: softmaxGradDispatcher,
	backends.OpTypeTanh:        tanhDispatcher,
	backends.OpTypeTanhGrad:    tanhGradDispatcher,
}

// newRegistry creates the dispatch chains of the backend.
//
// Priority order: gonum (float64), half-precision, and finally the generic tail.
func newRegistry(useGonum, useHalf bool) *backends.Registry {
	r := backends.NewRegistry()
	for opType, d := range dispatchers {
		r.SetTail(opType, backends.NewCalculator(TailCalculatorName, acceptsTail, d.Calculate))
	}
	if useGonum {
		registerGonum(r)
	}
	if useHalf {
		registerHalf(r)
	}
	return r
}
