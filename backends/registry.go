// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"sync"

	"github.com/pkg/errors"
)

// Registry holds one dispatch Chain per OpType.
//
// It is safe for concurrent use, but registration is expected to happen during setup, before graphs are
// executed.
type Registry struct {
	mu     sync.Mutex
	chains map[OpType]*Chain
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{chains: make(map[OpType]*Chain)}
}

// Chain returns the chain for the OpType, creating an empty one if needed.
func (r *Registry) Chain(opType OpType) *Chain {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain, found := r.chains[opType]
	if !found {
		chain = NewChain(opType)
		r.chains[opType] = chain
	}
	return chain
}

// Register a calculator for the OpType. See Chain.Register.
func (r *Registry) Register(opType OpType, calc Calculator) {
	r.Chain(opType).Register(calc)
}

// SetTail sets the tail calculator for the OpType. See Chain.SetTail.
func (r *Registry) SetTail(opType OpType, calc Calculator) {
	r.Chain(opType).SetTail(calc)
}

// Select the calculator for the OpType and operands. See Chain.Select.
func (r *Registry) Select(opType OpType, operands []Operand) (Calculator, error) {
	r.mu.Lock()
	chain, found := r.chains[opType]
	r.mu.Unlock()
	if !found {
		return nil, errors.Wrapf(ErrUnsupportedOperand, "no calculators registered for %s", opType)
	}
	return chain.Select(operands)
}

// Clone returns a deep copy of the registry: chains can be changed without affecting the original.
func (r *Registry) Clone() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r2 := NewRegistry()
	for opType, chain := range r.chains {
		r2.chains[opType] = chain.Clone()
	}
	return r2
}
