// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"fmt"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
)

// Operand describes the category of one input of a node, as seen by the dispatch chain:
// the calculators decide whether they accept an operation based only on these descriptors.
type Operand struct {
	Category shapes.Category
	DType    dtypes.DType
	Device   tensors.Device
}

// OperandOf returns the Operand descriptor of a tensor.
func OperandOf(t *tensors.Tensor) Operand {
	return Operand{Category: t.Shape().Category(), DType: t.DType(), Device: t.Device()}
}

// OperandsOf returns the Operand descriptors of the given tensors.
func OperandsOf(inputs []*tensors.Tensor) []Operand {
	operands := make([]Operand, len(inputs))
	for ii, t := range inputs {
		operands[ii] = OperandOf(t)
	}
	return operands
}

// String implements fmt.Stringer. E.g.: "Matrix/Float32@CPU".
func (o Operand) String() string {
	return fmt.Sprintf("%s/%s@%s", o.Category, o.DType, o.Device)
}

// OperandsString formats a list of operands.
func OperandsString(operands []Operand) string {
	parts := make([]string, len(operands))
	for ii, o := range operands {
		parts[ii] = o.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// AuxParams holds the non-tensor parameters of a node (e.g.: the minuend of SubFromNum).
//
// Two nodes with the same OpType and inputs are only deduplicated if their AuxParams are Equal.
type AuxParams interface {
	Equal(other AuxParams) bool
	String() string
}

// ScalarParam is an AuxParams holding one scalar value.
//
// It is stored as float64 and converted to the element type of the operand by the calculator.
type ScalarParam float64

// Equal implements AuxParams.
func (p ScalarParam) Equal(other AuxParams) bool {
	o, ok := other.(ScalarParam)
	return ok && o == p
}

// String implements AuxParams.
func (p ScalarParam) String() string { return fmt.Sprintf("%g", float64(p)) }

// AuxParamsEqual compares two possibly nil AuxParams.
func AuxParamsEqual(a, b AuxParams) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
