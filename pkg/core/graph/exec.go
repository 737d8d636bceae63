// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Execute the plan: every node is executed once, and its result bound to its output handle.
//
// Nodes whose outputs were bound in the meantime (e.g. by a concurrent plan sharing nodes) are skipped.
// Cancelling ctx prevents nodes that haven't started from running, while nodes already running complete.
//
// On error, handles bound by nodes that completed remain bound: they hold correct values.
func (p *Plan) Execute(ctx context.Context) error {
	g := p.graph
	// Keep the live executions count.
	g.numLiveExecutions.Add(1)
	defer g.numLiveExecutions.Add(-1)

	if len(p.nodes) == 0 {
		return nil
	}

	// Decide if we are going to execute nodes in parallel or sequentially:
	mode := g.config.Mode
	if mode == ExecutionDynamic {
		if g.numLiveExecutions.Load() == 1 && len(p.nodes) > 1 {
			// Current plan execution is the only one, so execute nodes in parallel.
			mode = ExecutionParallel
		} else {
			// Executing multiple plans at the same time: leave one worker per plan.
			mode = ExecutionSequential
		}
	}
	if !g.workers.IsEnabled() {
		mode = ExecutionSequential
	}
	klog.V(2).Infof("graph: executing plan with %d nodes, %s (max parallelism %d)", len(p.nodes), mode,
		g.workers.MaxParallelism())
	if mode == ExecutionSequential {
		return p.executeSequentially(ctx)
	}
	return p.executeParallel(ctx)
}

// executeSequentially executes the nodes one after another, in plan order.
func (p *Plan) executeSequentially(ctx context.Context) error {
	for _, node := range p.nodes {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "plan execution interrupted before node %s", node)
		}
		if err := p.executeNode(node); err != nil {
			return err
		}
	}
	return nil
}

// executeParallel executes nodes as soon as all their dependencies are computed.
func (p *Plan) executeParallel(ctx context.Context) error {
	var (
		readyToExecute chan int // protected by execMu
		collectErrors  []error  // protected by execMu
		execMu         sync.Mutex
		inFlight       sync.WaitGroup
	)
	numNodes := len(p.nodes)
	readyToExecute = make(chan int, numNodes+10)
	stopExecutionFn := sync.OnceFunc(func() { close(readyToExecute) }) // Must be called with execMu locked.

	// completed is the number of nodes that have been executed.
	completed := 0
	remainingDeps := make([]int, numNodes)
	copy(remainingDeps, p.numDeps)
	for nodeIdx, deps := range remainingDeps {
		if deps == 0 {
			readyToExecute <- nodeIdx
		}
	}

	// appendErrorFn is a closure to report an error and interrupt execution.
	appendErrorFn := func(err error) {
		execMu.Lock()
		defer execMu.Unlock()
		collectErrors = append(collectErrors, err)
		stopExecutionFn()
	}
	isStoppedFn := func() bool {
		execMu.Lock()
		defer execMu.Unlock()
		return len(collectErrors) > 0
	}

	for nodeIdx := range readyToExecute {
		node := p.nodes[nodeIdx]
		if isStoppedFn() {
			continue
		}
		if err := ctx.Err(); err != nil {
			appendErrorFn(errors.Wrapf(err, "plan execution interrupted before node %s", node))
			continue
		}
		nodeExecFn := func() {
			defer inFlight.Done()
			if err := p.executeNode(node); err != nil {
				appendErrorFn(err)
				return
			}

			// Update dependencies and schedule ready nodes.
			execMu.Lock()
			defer execMu.Unlock()
			if len(collectErrors) > 0 {
				// Interrupted anyway.
				return
			}
			completed++
			if completed == numNodes {
				stopExecutionFn()
				return
			}
			for _, depIdx := range p.dependents[nodeIdx] {
				remainingDeps[depIdx]--
				if remainingDeps[depIdx] == 0 {
					readyToExecute <- depIdx
				}
			}
		}

		// Start the node in a worker, or execute it inline if all workers are busy.
		inFlight.Add(1)
		if !p.graph.workers.StartIfAvailable(nodeExecFn) {
			nodeExecFn()
		}
	}
	inFlight.Wait()
	klog.V(2).Infof("graph: %d tasks started in workers so far", p.graph.workers.NumStarted())

	// If there were errors, return the first.
	if len(collectErrors) > 0 {
		return collectErrors[0]
	}
	return nil
}

// executeNode selects the calculator for the node, computes it and binds its output.
func (p *Plan) executeNode(node *Node) error {
	node.execMu.Lock()
	defer node.execMu.Unlock()
	if node.output.IsBound() {
		// Computed by another plan.
		return nil
	}

	inputs := make([]*tensors.Tensor, len(node.inputs))
	for ii, input := range node.inputs {
		inputs[ii] = input.boundValue()
		if inputs[ii] == nil {
			return errors.Wrapf(ErrUnbound, "input #%d (%s) of node %s", ii, input, node)
		}
	}

	calc, err := p.graph.backend.Registry().Select(node.opType, backends.OperandsOf(inputs))
	if err != nil {
		return errors.WithMessagef(err, "node %s", node)
	}
	var output *tensors.Tensor
	err = exceptions.TryCatch[error](func() {
		var calcErr error
		output, calcErr = calc.Calculate(inputs, node.params, node.output.shape)
		if calcErr != nil {
			panic(calcErr)
		}
	})
	if err != nil {
		return errors.WithMessagef(err, "node %s, calculator %q", node, calc.Name())
	}
	if !output.Ok() {
		return errors.Errorf("node %s: calculator %q returned an invalid tensor", node, calc.Name())
	}
	if !output.Shape().Equal(node.output.shape) {
		return errors.Wrapf(ErrShapeMismatch, "node %s: calculator %q returned shape %s, expected %s",
			node, calc.Name(), output.Shape(), node.output.shape)
	}
	if err = exceptions.TryCatch[error](func() { node.output.bind(output) }); err != nil {
		return errors.WithMessagef(err, "node %s", node)
	}
	node.calculator = calc.Name()
	klog.V(2).Infof("graph: executed %s -> %s using %q", node, node.output, calc.Name())
	return nil
}
