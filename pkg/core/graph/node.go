// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/shapes"
)

// Node is one deferred operation: the OpType, the input handles it depends on, auxiliary
// (non-tensor) parameters, and the output handle it populates.
type Node struct {
	graph  *Graph
	idx    int
	opType backends.OpType
	inputs []*Handle
	params backends.AuxParams
	output *Handle

	// execMu serializes executions of the node by concurrent plans.
	execMu sync.Mutex
	// calculator is the name of the calculator used the last time the node was executed.
	calculator string
}

// newNode creates the node, or returns the output of an existing node with the same OpType, inputs and
// params (unless de-duplication is disabled).
func (g *Graph) newNode(opType backends.OpType, params backends.AuxParams, outputShape shapes.Shape, inputs ...*Handle) *Handle {
	if numInputs := opType.NumInputs(); numInputs != len(inputs) {
		exceptions.Panicf("%s: takes %d input(s), got %d", opType, numInputs, len(inputs))
	}
	g.checkHandles(opType, inputs...)
	g.checkSupported(opType, inputs...)
	g.mu.Lock()
	defer g.mu.Unlock()
	if found := g.lockedFindDuplicateNode(opType, inputs, params); found != nil {
		return found.output
	}
	node := &Node{
		graph:  g,
		idx:    g.numNodes,
		opType: opType,
		inputs: inputs,
		params: params,
	}
	g.numNodes++
	node.output = g.lockedNewHandle(outputShape.Clone(), node)
	g.lockedRegisterForDeduplication(node)
	return node.output
}

// OpType of the node.
func (n *Node) OpType() backends.OpType { return n.opType }

// Inputs of the node. It must not be changed.
func (n *Node) Inputs() []*Handle { return n.inputs }

// Output handle of the node.
func (n *Node) Output() *Handle { return n.output }

// Params are the auxiliary parameters of the node, or nil.
func (n *Node) Params() backends.AuxParams { return n.params }

// Calculator returns the name of the calculator selected the last time the node was executed, or "" if it
// was never executed.
func (n *Node) Calculator() string {
	n.execMu.Lock()
	defer n.execMu.Unlock()
	return n.calculator
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s(", n.idx, n.opType)
	for ii, input := range n.inputs {
		if ii > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(input.String())
	}
	if n.params != nil {
		if len(n.inputs) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(n.params.String())
	}
	sb.WriteString(")")
	return sb.String()
}
