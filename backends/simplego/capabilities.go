// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/tensors"
)

// halfDTypes are handled by converting to float32.
var halfDTypes = []dtypes.DType{dtypes.Float16, dtypes.BFloat16}

// Capabilities of the SimpleGo backend.
var Capabilities = backends.Capabilities{
	Operations: map[backends.OpType]bool{
		backends.OpTypeAdd:         true,
		backends.OpTypeSub:         true,
		backends.OpTypeSubFromNum:  true,
		backends.OpTypeMul:         true,
		backends.OpTypeNeg:         true,
		backends.OpTypeSigmoid:     true,
		backends.OpTypeSigmoidGrad: true,
		backends.OpTypeRelu:        true,
		backends.OpTypeReluGrad:    true,
		backends.OpTypeSoftmax:     true,
		backends.OpTypeSoftmaxGrad: true,
		backends.OpTypeTanh:        true,
		backends.OpTypeTanhGrad:    true,
	},

	DTypes: map[dtypes.DType]bool{
		dtypes.Float32:  true,
		dtypes.Float64:  true,
		dtypes.Float16:  true,
		dtypes.BFloat16: true,
	},

	Devices: map[tensors.Device]bool{
		tensors.CPU: true,
	},
}
