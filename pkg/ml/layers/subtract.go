// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layers

import (
	"github.com/gomlx/metann/pkg/core/graph"
	"github.com/gomlx/metann/pkg/core/shapes"
)

// Subtract is a two-input layer computing LeftOperand - RightOperand.
//
// Its backward pass returns the gradient unchanged for LeftOperand and negated for RightOperand.
type Subtract struct {
	name   string
	config Config
	stack  *Stack
}

var _ Layer = (*Subtract)(nil)

// NewSubtract returns a new Subtract layer.
func NewSubtract(name string, config Config) *Subtract {
	return &Subtract{name: name, config: config, stack: NewStack(name)}
}

// Name implements Layer.
func (l *Subtract) Name() string { return l.name }

// Pending returns the number of forward calls not yet matched by a backward call.
func (l *Subtract) Pending() int { return l.stack.Len() }

// FeedForward implements Layer.
func (l *Subtract) FeedForward(input Bundle) (Bundle, error) {
	lhs, err := input.Require(l.name, LeftOperand)
	if err != nil {
		return nil, err
	}
	rhs, err := input.Require(l.name, RightOperand)
	if err != nil {
		return nil, err
	}
	y, err := evaluate(l.name, "FeedForward", func() *graph.Handle { return graph.Sub(lhs, rhs) })
	if err != nil {
		return nil, err
	}
	if l.config.FeedbackOutput {
		// Nothing to snapshot: the gradient doesn't depend on the operands.
		l.stack.Push(Entry{
			InputShapes: []shapes.Shape{lhs.Shape(), rhs.Shape()},
			OutputShape: y.Shape(),
		})
	}
	return Bundle{LayerOutput: y}, nil
}

// FeedBackward implements Layer.
func (l *Subtract) FeedBackward(grad Bundle) (Bundle, error) {
	if !l.config.FeedbackOutput {
		return Bundle{}, nil
	}
	g := grad.Get(LayerOutput)
	if g == nil {
		return nullGradient(l.name, l.config, l.stack)
	}
	entry, err := l.stack.Peek(g.Shape())
	if err != nil {
		return nil, err
	}
	negGrad, err := evaluate(l.name, "FeedBackward", func() *graph.Handle { return graph.Neg(g) })
	if err != nil {
		return nil, err
	}
	if err = checkInputShape(l.name, entry, 0, g); err != nil {
		return nil, err
	}
	if err = checkInputShape(l.name, entry, 1, negGrad); err != nil {
		return nil, err
	}
	if err = l.stack.Discard(); err != nil {
		return nil, err
	}
	return Bundle{LeftOperand: g, RightOperand: negGrad}, nil
}

func (l *Subtract) rollbackForward() error {
	if !l.config.FeedbackOutput {
		return nil
	}
	return l.stack.Discard()
}

// AssertIdle implements Layer.
func (l *Subtract) AssertIdle() error {
	return l.stack.AssertEmpty()
}
