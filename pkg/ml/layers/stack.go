// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layers

import (
	"github.com/gomlx/metann/pkg/core/graph"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Entry is what a forward call records for the matching backward call.
type Entry struct {
	// InputShapes are the fingerprints of the forward inputs, in the order of the layer's input keys.
	InputShapes []shapes.Shape

	// OutputShape is the fingerprint of the forward output: the incoming gradient must match it.
	OutputShape shapes.Shape

	// Snapshot holds the bound handles the gradient formula needs (the input for ReLU, the output
	// for Softmax, nothing for Subtract).
	Snapshot []*graph.Handle
}

// Stack is the LIFO feedback cache of a layer.
// The zero value is an empty stack ready to use.
type Stack struct {
	owner   string
	entries []Entry
}

// NewStack returns an empty stack for the named layer, used in error messages and logs.
func NewStack(owner string) *Stack {
	return &Stack{owner: owner}
}

// Len returns the number of pending entries.
func (s *Stack) Len() int { return len(s.entries) }

// Push records a forward call.
func (s *Stack) Push(e Entry) {
	s.entries = append(s.entries, e)
	if klog.V(3).Enabled() {
		klog.Infof("layer %q: push entry #%d (inputs=%v, output=%s)", s.owner, len(s.entries), e.InputShapes, e.OutputShape)
	}
}

// Peek returns the most recent entry, after checking that gradShape matches its output fingerprint.
// The entry is not removed: the caller calls Discard once the backward step succeeded, so that a failed
// backward leaves the stack unchanged.
//
// It returns an ErrProtocolViolation if the stack is empty, and a graph.ErrShapeMismatch if the shapes
// differ.
func (s *Stack) Peek(gradShape shapes.Shape) (Entry, error) {
	top, err := s.top()
	if err != nil {
		return Entry{}, err
	}
	if !top.OutputShape.Equal(gradShape) {
		return Entry{}, errors.Wrapf(graph.ErrShapeMismatch, "layer %q: gradient shape %s doesn't match forward output shape %s",
			s.owner, gradShape, top.OutputShape)
	}
	return *top, nil
}

// Discard removes the most recent entry without any shape check.
// It is used after a successful backward step, for null gradients and to roll back a forward call.
func (s *Stack) Discard() error {
	if _, err := s.top(); err != nil {
		return err
	}
	s.pop()
	return nil
}

func (s *Stack) top() (*Entry, error) {
	if len(s.entries) == 0 {
		return nil, errors.Wrapf(ErrProtocolViolation, "layer %q: backward called without a matching forward", s.owner)
	}
	return &s.entries[len(s.entries)-1], nil
}

func (s *Stack) pop() Entry {
	last := len(s.entries) - 1
	e := s.entries[last]
	s.entries[last] = Entry{} // Release snapshot references.
	s.entries = s.entries[:last]
	klog.V(3).Infof("layer %q: pop entry, %d left", s.owner, len(s.entries))
	return e
}

// AssertEmpty returns an ErrProtocolViolation if there are pending entries.
func (s *Stack) AssertEmpty() error {
	if len(s.entries) > 0 {
		return errors.Wrapf(ErrProtocolViolation, "layer %q: %d forward call(s) without matching backward", s.owner, len(s.entries))
	}
	return nil
}

// checkInputShape verifies a computed input gradient against the recorded input fingerprint.
func checkInputShape(owner string, e Entry, idx int, grad *graph.Handle) error {
	if idx >= len(e.InputShapes) {
		return errors.Wrapf(ErrProtocolViolation, "layer %q: entry has no input #%d", owner, idx)
	}
	if !e.InputShapes[idx].Equal(grad.Shape()) {
		return errors.Wrapf(graph.ErrShapeMismatch, "layer %q: input gradient #%d has shape %s, forward input had shape %s",
			owner, idx, grad.Shape(), e.InputShapes[idx])
	}
	return nil
}
