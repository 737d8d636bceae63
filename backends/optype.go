// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

// OpType is an enum of all the operator kinds a lazy graph node can hold.
//
// Each OpType has its own dispatch Chain in a Registry: the kernels themselves are pluggable calculators
// registered by a Backend.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota

	// OpTypeSource marks a handle supplied externally: it has no producing node and no calculator.
	OpTypeSource

	OpTypeAdd
	OpTypeSub
	OpTypeSubFromNum
	OpTypeMul
	OpTypeNeg
	OpTypeSigmoid
	OpTypeSigmoidGrad
	OpTypeRelu
	OpTypeReluGrad
	OpTypeSoftmax
	OpTypeSoftmaxGrad
	OpTypeTanh
	OpTypeTanhGrad
)

// NumInputs returns the number of tensor inputs a node of this OpType takes.
// It returns -1 for OpTypeInvalid.
func (op OpType) NumInputs() int {
	switch op {
	case OpTypeSource:
		return 0
	case OpTypeSubFromNum, OpTypeNeg, OpTypeSigmoid, OpTypeRelu, OpTypeSoftmax, OpTypeTanh:
		return 1
	case OpTypeAdd, OpTypeSub, OpTypeMul, OpTypeSigmoidGrad, OpTypeReluGrad, OpTypeSoftmaxGrad, OpTypeTanhGrad:
		return 2
	default:
		return -1
	}
}
