// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layers

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/metann/pkg/core/graph"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/pkg/errors"
)

// snapshotKind is what an activation caches for its gradient formula.
type snapshotKind int

const (
	snapshotInput snapshotKind = iota
	snapshotOutput
)

// Activation is a single-input elementwise (or per-row, for Softmax) layer.
//
// Its input is LayerInput, its output is LayerOutput, and FeedBackward takes the gradient in
// LayerOutput and returns the input gradient in LayerInput.
type Activation struct {
	name     string
	config   Config
	stack    *Stack
	snapshot snapshotKind
	forward  func(x *graph.Handle) *graph.Handle
	backward func(grad, snapshot *graph.Handle) *graph.Handle
}

var _ Layer = (*Activation)(nil)

// NewReLU returns a ReLU layer. It caches its input, since the gradient passes where the input was positive.
func NewReLU(name string, config Config) *Activation {
	return newActivation(name, config, snapshotInput, graph.Relu, graph.ReluGrad)
}

// NewSigmoid returns a Sigmoid layer. It caches its output.
func NewSigmoid(name string, config Config) *Activation {
	return newActivation(name, config, snapshotOutput, graph.Sigmoid, graph.SigmoidGrad)
}

// NewTanh returns a Tanh layer. It caches its output.
func NewTanh(name string, config Config) *Activation {
	return newActivation(name, config, snapshotOutput, graph.Tanh, graph.TanhGrad)
}

// NewSoftmax returns a Softmax layer, normalizing over the last axis. It caches its output, used in the
// Jacobian-vector product of the backward pass.
func NewSoftmax(name string, config Config) *Activation {
	return newActivation(name, config, snapshotOutput, graph.Softmax, graph.SoftmaxGrad)
}

func newActivation(name string, config Config, snapshot snapshotKind,
	forward func(x *graph.Handle) *graph.Handle,
	backward func(grad, snapshot *graph.Handle) *graph.Handle) *Activation {
	return &Activation{
		name:     name,
		config:   config,
		stack:    NewStack(name),
		snapshot: snapshot,
		forward:  forward,
		backward: backward,
	}
}

// Name implements Layer.
func (l *Activation) Name() string { return l.name }

// Config returns the configuration the layer was created with.
func (l *Activation) Config() Config { return l.config }

// Pending returns the number of forward calls not yet matched by a backward call.
func (l *Activation) Pending() int { return l.stack.Len() }

// FeedForward implements Layer.
func (l *Activation) FeedForward(input Bundle) (Bundle, error) {
	x, err := input.Require(l.name, LayerInput)
	if err != nil {
		return nil, err
	}
	y, err := evaluate(l.name, "FeedForward", func() *graph.Handle { return l.forward(x) })
	if err != nil {
		return nil, err
	}
	if l.config.FeedbackOutput {
		snapshot := x
		if l.snapshot == snapshotOutput {
			snapshot = y
		}
		l.stack.Push(Entry{
			InputShapes: []shapes.Shape{x.Shape()},
			OutputShape: y.Shape(),
			Snapshot:    []*graph.Handle{snapshot},
		})
	}
	return Bundle{LayerOutput: y}, nil
}

// FeedBackward implements Layer.
func (l *Activation) FeedBackward(grad Bundle) (Bundle, error) {
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
	inputGrad, err := evaluate(l.name, "FeedBackward", func() *graph.Handle { return l.backward(g, entry.Snapshot[0]) })
	if err != nil {
		return nil, err
	}
	if err = checkInputShape(l.name, entry, 0, inputGrad); err != nil {
		return nil, err
	}
	if err = l.stack.Discard(); err != nil {
		return nil, err
	}
	return Bundle{LayerInput: inputGrad}, nil
}

func (l *Activation) rollbackForward() error {
	if !l.config.FeedbackOutput {
		return nil
	}
	return l.stack.Discard()
}

// AssertIdle implements Layer.
func (l *Activation) AssertIdle() error {
	return l.stack.AssertEmpty()
}

// nullGradient handles a FeedBackward without a gradient.
func nullGradient(name string, config Config, stack *Stack) (Bundle, error) {
	if !config.AllowNullGradient {
		return nil, errors.Wrapf(ErrProtocolViolation, "layer %q: FeedBackward without a gradient in %s", name, LayerOutput)
	}
	if err := stack.Discard(); err != nil {
		return nil, err
	}
	return Bundle{}, nil
}

// evaluate builds the expression with buildFn and evaluates it, converting panics raised while building
// the expression (e.g. a shape mismatch) into errors.
func evaluate(name, method string, buildFn func() *graph.Handle) (*graph.Handle, error) {
	var h *graph.Handle
	err := exceptions.TryCatch[error](func() { h = buildFn() })
	if err == nil {
		_, err = graph.Evaluate(h)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "layer %q: %s", name, method)
	}
	return h, nil
}
