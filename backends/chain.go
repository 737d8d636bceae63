// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrUnsupportedOperand is returned when no calculator of a Chain, including its tail, accepts the operands.
// It indicates a missing capability, and it is never transient.
var ErrUnsupportedOperand = errors.New("unsupported operand")

// Chain is the ordered list of calculators of one OpType.
//
// Select returns the first registered calculator whose predicate accepts the operands, in registration
// order. The tail is always tried last: it covers the generic case and asserts its own precondition.
//
// It is safe for concurrent use.
type Chain struct {
	opType OpType

	mu          sync.RWMutex
	calculators []Calculator
	tail        Calculator
}

// NewChain creates an empty Chain for the given OpType.
func NewChain(opType OpType) *Chain {
	return &Chain{opType: opType}
}

// OpType this chain dispatches.
func (c *Chain) OpType() OpType { return c.opType }

// Register appends the calculator at the lowest priority (but still ahead of the tail).
//
// If a calculator with the same name is already registered it is replaced in place, keeping its priority.
func (c *Chain) Register(calc Calculator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexLocked(calc.Name()); idx >= 0 {
		klog.Warningf("%s: calculator %q re-registered, replacing it in place", c.opType, calc.Name())
		c.calculators[idx] = calc
		return
	}
	c.calculators = append(c.calculators, calc)
}

// RegisterFirst inserts the calculator at the highest priority, shadowing all the ones registered so far.
// If a calculator with the same name already exists, it is removed first.
func (c *Chain) RegisterFirst(calc Calculator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexLocked(calc.Name()); idx >= 0 {
		c.calculators = slices.Delete(c.calculators, idx, idx+1)
	}
	c.calculators = slices.Insert(c.calculators, 0, calc)
}

// Unregister removes the calculator with the given name. It returns false if it wasn't registered.
func (c *Chain) Unregister(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexLocked(name)
	if idx < 0 {
		return false
	}
	c.calculators = slices.Delete(c.calculators, idx, idx+1)
	return true
}

// SetTail sets the terminal calculator of the chain.
func (c *Chain) SetTail(calc Calculator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tail = calc
}

func (c *Chain) indexLocked(name string) int {
	return slices.IndexFunc(c.calculators, func(calc Calculator) bool { return calc.Name() == name })
}

// Names returns the calculator names in priority order. The tail, if set, is the last one.
func (c *Chain) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.calculators)+1)
	for _, calc := range c.calculators {
		names = append(names, calc.Name())
	}
	if c.tail != nil {
		names = append(names, c.tail.Name())
	}
	return names
}

// Select returns the calculator to use for the given operands.
//
// It returns an error wrapping ErrUnsupportedOperand if no calculator accepts them.
func (c *Chain) Select(operands []Operand) (Calculator, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, calc := range c.calculators {
		if calc.Accepts(operands) {
			return calc, nil
		}
	}
	if c.tail == nil {
		return nil, errors.Wrapf(ErrUnsupportedOperand, "%s has no tail calculator for operands %s",
			c.opType, OperandsString(operands))
	}
	if !c.tail.Accepts(operands) {
		return nil, errors.Wrapf(ErrUnsupportedOperand, "%s: tail calculator %q doesn't support operands %s",
			c.opType, c.tail.Name(), OperandsString(operands))
	}
	return c.tail, nil
}

// Clone returns a copy of the chain that can be modified independently. Calculators are shared.
func (c *Chain) Clone() *Chain {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Chain{opType: c.opType, calculators: slices.Clone(c.calculators), tail: c.tail}
}
