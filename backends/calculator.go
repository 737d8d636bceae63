// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
)

// Calculator is one concrete kernel for one OpType: a capability predicate plus the computation.
type Calculator interface {
	// Name identifies the calculator within its Chain. Registering another calculator with the same name
	// replaces it in place.
	Name() string

	// Accepts returns whether the calculator can compute the operation on the given operands.
	Accepts(operands []Operand) bool

	// Calculate the output of the operation. The inputs must not be modified.
	// outputShape was inferred at graph construction time, and the returned tensor must match it.
	Calculate(inputs []*tensors.Tensor, params AuxParams, outputShape shapes.Shape) (*tensors.Tensor, error)
}

// CalculatorFunc is the signature of the computation part of a Calculator.
type CalculatorFunc func(inputs []*tensors.Tensor, params AuxParams, outputShape shapes.Shape) (*tensors.Tensor, error)

// Predicate over a set of operands, used to declare what a calculator accepts.
type Predicate func(operands []Operand) bool

type funcCalculator struct {
	name    string
	accepts Predicate
	fn      CalculatorFunc
}

// NewCalculator creates a Calculator from a predicate and a function.
// If accepts is nil, the calculator accepts everything.
func NewCalculator(name string, accepts Predicate, fn CalculatorFunc) Calculator {
	return &funcCalculator{name: name, accepts: accepts, fn: fn}
}

func (c *funcCalculator) Name() string { return c.name }

func (c *funcCalculator) Accepts(operands []Operand) bool {
	return c.accepts == nil || c.accepts(operands)
}

func (c *funcCalculator) Calculate(inputs []*tensors.Tensor, params AuxParams, outputShape shapes.Shape) (*tensors.Tensor, error) {
	return c.fn(inputs, params, outputShape)
}

// OnDevices accepts operands that all live in one of the given devices.
func OnDevices(devices ...tensors.Device) Predicate {
	return func(operands []Operand) bool {
		for _, o := range operands {
			if !slices.Contains(devices, o.Device) {
				return false
			}
		}
		return true
	}
}

// WithDTypes accepts operands whose dtypes are all the same and one of the given ones.
func WithDTypes(dtypesAllowed ...dtypes.DType) Predicate {
	return func(operands []Operand) bool {
		for _, o := range operands {
			if o.DType != operands[0].DType || !slices.Contains(dtypesAllowed, o.DType) {
				return false
			}
		}
		return true
	}
}

// InCategories accepts operands that all belong to one of the given categories.
func InCategories(categories ...shapes.Category) Predicate {
	return func(operands []Operand) bool {
		for _, o := range operands {
			if !slices.Contains(categories, o.Category) {
				return false
			}
		}
		return true
	}
}

// All combines predicates: it accepts only if all of them accept.
func All(predicates ...Predicate) Predicate {
	return func(operands []Operand) bool {
		for _, p := range predicates {
			if !p(operands) {
				return false
			}
		}
		return true
	}
}
