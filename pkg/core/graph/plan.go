// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Plan is the ordered set of nodes needed to compute a set of handles.
//
// The order is a depth-first post-order from the roots, visiting inputs left to right, so it is
// deterministic for a given set of roots. Handles already bound when the plan is built are treated as
// sources: their producers are not included.
type Plan struct {
	graph *Graph
	roots []*Handle
	nodes []*Node

	// dependents lists, for each node (plan index), the plan indices of the nodes that use its output.
	dependents [][]int
	// numDeps is the number of distinct producers in the plan each node depends on.
	numDeps []int
}

type visitState int8

const (
	unvisited visitState = iota
	visiting
	visited
)

// BuildPlan collects the nodes needed to compute the given handles, and orders them topologically.
//
// It returns ErrCycle if a cycle is found, ErrUnbound if a needed placeholder was not fed and
// ErrDoubleBind if two nodes would write the same handle.
func (g *Graph) BuildPlan(roots ...*Handle) (*Plan, error) {
	p := &Plan{graph: g, roots: roots}
	state := make(map[*Node]visitState)
	writers := make(map[uuid.UUID]*Node)
	planIdx := make(map[*Node]int)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		switch state[node] {
		case visited:
			return nil
		case visiting:
			return errors.Wrapf(ErrCycle, "node %s depends on itself", node)
		}
		state[node] = visiting
		if node.output == nil || node.output.producer != node {
			return errors.Wrapf(ErrDoubleBind, "node %s writes a handle produced by another node", node)
		}
		if other, found := writers[node.output.id]; found && other != node {
			return errors.Wrapf(ErrDoubleBind, "nodes %s and %s write the same handle %s", other, node, node.output)
		}
		writers[node.output.id] = node
		for _, input := range node.inputs {
			if err := p.visitHandle(input, visit); err != nil {
				return err
			}
		}
		state[node] = visited
		planIdx[node] = len(p.nodes)
		p.nodes = append(p.nodes, node)
		return nil
	}

	for ii, root := range roots {
		if root == nil {
			return nil, errors.Errorf("BuildPlan: root #%d is nil", ii)
		}
		if root.graph != g {
			return nil, errors.Errorf("BuildPlan: root #%d (%s) belongs to a different graph", ii, root)
		}
		if err := p.visitHandle(root, visit); err != nil {
			return nil, err
		}
	}

	p.dependents = make([][]int, len(p.nodes))
	p.numDeps = make([]int, len(p.nodes))
	for idx, node := range p.nodes {
		seen := make(map[int]bool, len(node.inputs))
		for _, input := range node.inputs {
			producerIdx, found := planIdx[input.producer]
			if input.producer == nil || !found || seen[producerIdx] {
				continue
			}
			seen[producerIdx] = true
			p.numDeps[idx]++
			p.dependents[producerIdx] = append(p.dependents[producerIdx], idx)
		}
	}
	if klog.V(1).Enabled() {
		klog.Infof("graph: plan with %d nodes for %d roots, %s of intermediate and output data",
			len(p.nodes), len(roots), humanize.Bytes(uint64(p.Memory())))
	}
	return p, nil
}

// visitHandle checks that the handle is computable, and visits its producer if it is not bound yet.
func (p *Plan) visitHandle(h *Handle, visit func(*Node) error) error {
	if h.IsBound() {
		return nil
	}
	if h.producer == nil {
		return errors.Wrapf(ErrUnbound, "placeholder %s was not fed", h)
	}
	return visit(h.producer)
}

// Graph the plan belongs to.
func (p *Plan) Graph() *Graph { return p.graph }

// Nodes in execution order. It must not be changed.
func (p *Plan) Nodes() []*Node { return p.nodes }

// NumNodes in the plan.
func (p *Plan) NumNodes() int { return len(p.nodes) }

// Roots the plan was built for.
func (p *Plan) Roots() []*Handle { return p.roots }

// Memory returns the number of bytes the outputs of the nodes of the plan will use.
func (p *Plan) Memory() uintptr {
	var total uintptr
	for _, node := range p.nodes {
		total += node.output.shape.Memory()
	}
	return total
}

// Step describes one node of the plan, for printing.
type Step struct {
	Index      int
	Node       string
	Output     string
	Shape      shapes.Shape
	Calculator string
	NumDeps    int
}

// Steps describes the nodes of the plan, in order.
func (p *Plan) Steps() []Step {
	steps := make([]Step, len(p.nodes))
	for ii, node := range p.nodes {
		steps[ii] = Step{
			Index:      ii,
			Node:       node.String(),
			Output:     node.output.String(),
			Shape:      node.output.shape,
			Calculator: node.Calculator(),
			NumDeps:    p.numDeps[ii],
		}
	}
	return steps
}

// String implements fmt.Stringer.
func (p *Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan: %d nodes\n", len(p.nodes))
	for _, step := range p.Steps() {
		fmt.Fprintf(&sb, "\t%3d: %s -> %s", step.Index, step.Node, step.Output)
		if step.Calculator != "" {
			fmt.Fprintf(&sb, " [%s]", step.Calculator)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
