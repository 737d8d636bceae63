// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph is the lazy evaluation engine: operations on Handle values build a graph of deferred
// Node's, and Evaluate builds a Plan with the nodes needed for the requested outputs, orders them and
// executes each one exactly once.
//
// The main elements in the package are:
//
//   - Graph owns the nodes, the de-duplication index, the backend used to select calculators and the
//     pool of workers used by parallel executions.
//
//   - Handle is a reference to a tensor that is either supplied externally (Source, Placeholder) or
//     produced by one Node. It is bound exactly once, and immutable afterward.
//
//   - Node is one deferred operation: an OpType, input handles, auxiliary parameters and the output handle.
//
//   - Plan is the ordered set of nodes needed to compute a set of handles.
//
// # Error Handling
//
// Building operations (Sub, Sigmoid, etc.) "throw" errors with panic(), like shape mismatches.
// Use exceptions.TryCatch[error] to convert them, if needed. Evaluation and plan execution return errors.
package graph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/internal/workerspool"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Graph holds the lazy nodes built over handles, and the resources to execute them.
//
// It is safe for concurrent use.
type Graph struct {
	id           uuid.UUID
	backend      backends.Backend
	capabilities backends.Capabilities
	config       Config
	workers      *workerspool.Pool

	mu sync.Mutex
	// numNodes and numHandles are used to give each node and handle a sequential id, used in printing.
	numNodes, numHandles int
	nodeDedup            map[nodeDedupKey][]*Node

	numLiveExecutions atomic.Int32
}

// New creates a new Graph that selects calculators from the given backend.
func New(backend backends.Backend, config Config) *Graph {
	if backend == nil {
		exceptions.Panicf("graph.New: nil backend")
	}
	g := &Graph{
		id:           uuid.New(),
		backend:      backend,
		capabilities: backend.Capabilities(),
		config:       config,
		workers:      workerspool.NewWithParallelism(config.Workers),
	}
	if !config.NoDedup {
		g.nodeDedup = make(map[nodeDedupKey][]*Node)
	}
	return g
}

// NewDefault creates a new Graph using the default backend (backends.New) and the configuration from the
// environment (ConfigFromEnv).
func NewDefault() (*Graph, error) {
	backend, err := backends.New()
	if err != nil {
		return nil, err
	}
	config, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(backend, config), nil
}

// Backend used by the graph.
func (g *Graph) Backend() backends.Backend { return g.backend }

// Config used by the graph.
func (g *Graph) Config() Config { return g.config }

// NumNodes returns the number of nodes created in the graph so far (de-duplicated nodes are not counted).
func (g *Graph) NumNodes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.numNodes
}

// Reset drops the de-duplication index, so nodes no longer referenced can be garbage collected.
// Existing handles remain valid, but new operations will not be de-duplicated against older ones.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.nodeDedup != nil {
		g.nodeDedup = make(map[nodeDedupKey][]*Node)
	}
}

// String implements fmt.Stringer.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph(%s, %s, %d nodes)", g.id.String()[:8], g.backend.Name(), g.NumNodes())
}

// Source returns a handle bound to the given tensor.
//
// The tensor must not be modified afterward.
func (g *Graph) Source(t *tensors.Tensor) *Handle {
	t.AssertValid()
	h := g.newHandle(t.Shape(), nil)
	h.value = t
	return h
}

// checkSupported panics with backends.ErrUnsupportedOperand if the backend can't compute opType for the
// handles. Handles not bound yet (placeholders and node outputs) are only checked for their dtype: the
// device of a placeholder is only known once it is fed, and is checked again when a calculator is selected.
func (g *Graph) checkSupported(opType backends.OpType, handles ...*Handle) {
	for ii, h := range handles {
		var ok bool
		if value := h.boundValue(); value != nil {
			ok = g.capabilities.Supports(opType, []backends.Operand{backends.OperandOf(value)})
		} else {
			ok = g.capabilities.SupportsDType(opType, h.shape.DType)
		}
		if !ok {
			panic(errors.Wrapf(backends.ErrUnsupportedOperand, "%s: input #%d (%s) not supported by backend %s",
				opType, ii, h, g.backend.Name()))
		}
	}
}

// checkHandles panics if any of the handles is nil or belongs to another graph.
func (g *Graph) checkHandles(opType backends.OpType, handles ...*Handle) {
	for ii, h := range handles {
		if h == nil {
			exceptions.Panicf("%s: input #%d is nil", opType, ii)
		}
		if h.graph != g {
			exceptions.Panicf("%s: input #%d (%s) belongs to a different graph", opType, ii, h)
		}
	}
}
