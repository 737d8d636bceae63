// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Handle references a tensor in a Graph, plus the identity token used for dependency and aliasing analysis.
//
// A Handle goes from unbound to bound exactly once: by the executor, for handles produced by a Node, or by
// Feed for placeholders. Sources are created bound. Once bound it is readable forever.
type Handle struct {
	graph    *Graph
	id       uuid.UUID
	seq      int
	shape    shapes.Shape
	producer *Node

	mu    sync.Mutex
	value *tensors.Tensor
}

func (g *Graph) newHandle(shape shapes.Shape, producer *Node) *Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lockedNewHandle(shape, producer)
}

// lockedNewHandle must be called with Graph.mu locked.
func (g *Graph) lockedNewHandle(shape shapes.Shape, producer *Node) *Handle {
	h := &Handle{graph: g, id: uuid.New(), seq: g.numHandles, shape: shape, producer: producer}
	g.numHandles++
	return h
}

// Placeholder returns an unbound handle with the given shape, to be bound later with Feed.
func (g *Graph) Placeholder(shape shapes.Shape) *Handle {
	if !shape.Ok() {
		exceptions.Panicf("Placeholder: invalid shape")
	}
	return g.newHandle(shape.Clone(), nil)
}

// Graph the handle belongs to.
func (h *Handle) Graph() *Graph { return h.graph }

// ID is the identity token of the handle: two handles are the same data iff their IDs are the same.
func (h *Handle) ID() uuid.UUID { return h.id }

// Shape of the tensor the handle references.
func (h *Handle) Shape() shapes.Shape { return h.shape }

// Producer returns the node that produces the handle, or nil for sources and placeholders.
func (h *Handle) Producer() *Node { return h.producer }

// IsBound returns whether the handle has a value.
func (h *Handle) IsBound() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value != nil
}

// Value returns the bound tensor, or an error wrapping ErrUnbound.
func (h *Handle) Value() (*tensors.Tensor, error) {
	v := h.boundValue()
	if v == nil {
		return nil, errors.Wrapf(ErrUnbound, "%s", h)
	}
	return v, nil
}

func (h *Handle) boundValue() *tensors.Tensor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value
}

// bind the handle to t. It panics with ErrDoubleBind if the handle is already bound, and with
// ErrShapeMismatch if t doesn't have the handle's shape.
func (h *Handle) bind(t *tensors.Tensor) {
	t.AssertValid()
	if !t.Shape().Equal(h.shape) {
		panic(errors.Wrapf(ErrShapeMismatch, "binding %s to a tensor shaped %s", h, t.Shape()))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.value != nil {
		panic(errors.Wrapf(ErrDoubleBind, "%s", h))
	}
	h.value = t
}

// Feed binds a placeholder to the given tensor.
//
// It returns an error if the handle is produced by a node, if it is already bound (ErrDoubleBind) or if
// the tensor shape doesn't match (ErrShapeMismatch).
func (h *Handle) Feed(t *tensors.Tensor) error {
	if h.producer != nil {
		return errors.Errorf("Feed: %s is produced by %s, only placeholders can be fed", h, h.producer)
	}
	return exceptions.TryCatch[error](func() { h.bind(t) })
}

// String implements fmt.Stringer.
func (h *Handle) String() string {
	return fmt.Sprintf("h%d%s", h.seq, h.shape)
}
