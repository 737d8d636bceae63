// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import "github.com/pkg/errors"

var (
	// ErrShapeMismatch is raised when operand shapes disagree where an exact match is required.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrDoubleBind is raised when a handle is bound more than once, or when two nodes of a plan would
	// write the same handle.
	ErrDoubleBind = errors.New("handle bound more than once")

	// ErrCycle is returned by BuildPlan if the nodes reachable from the requested handles form a cycle.
	ErrCycle = errors.New("cycle in graph")

	// ErrUnbound is returned when a value is requested from a handle that has not been bound, or when a
	// plan depends on a placeholder that was never fed.
	ErrUnbound = errors.New("handle not bound")
)
