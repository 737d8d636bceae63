// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/metann/backends"
)

// Dedup implementation: remove duplicated expressions, also known as "common subexpression elimination".

// nodeDedupKey is used to index into the de-duplication map.
// It provides fast lookup for candidate nodes with the same operation type
// and input structure.
type nodeDedupKey struct {
	opType     backends.OpType
	inputCount int
	firstInput *Handle // nil if there are no inputs.
}

// makeNodeDedupKey creates a de-duplication key for a node with the given opType and inputs.
func makeNodeDedupKey(opType backends.OpType, inputs []*Handle) nodeDedupKey {
	key := nodeDedupKey{
		opType:     opType,
		inputCount: len(inputs),
	}
	if len(inputs) > 0 {
		key.firstInput = inputs[0]
	}
	return key
}

// lockedFindDuplicateNode searches for an existing node that matches the given parameters.
// Returns nil if no duplicate is found.
//
// The search process:
//  1. Look up candidates by (opType, input count, first input pointer)
//  2. For each candidate, verify all inputs match exactly
//  3. Compare the AuxParams with backends.AuxParamsEqual.
//
// It must be called with Graph.mu locked.
func (g *Graph) lockedFindDuplicateNode(opType backends.OpType, inputs []*Handle, params backends.AuxParams) *Node {
	if g.nodeDedup == nil {
		return nil
	}
	key := makeNodeDedupKey(opType, inputs)
	for _, candidate := range g.nodeDedup[key] {
		if !handlesEqual(candidate.inputs, inputs) {
			continue
		}
		if backends.AuxParamsEqual(candidate.params, params) {
			return candidate
		}
	}
	return nil
}

// lockedRegisterForDeduplication adds a node to the de-duplication index.
//
// It must be called with Graph.mu locked.
func (g *Graph) lockedRegisterForDeduplication(node *Node) {
	if g.nodeDedup == nil {
		return
	}
	key := makeNodeDedupKey(node.opType, node.inputs)
	g.nodeDedup[key] = append(g.nodeDedup[key], node)
}

// handlesEqual checks if two slices of handles are equal (same identities).
func handlesEqual(a, b []*Handle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
