// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"

	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Evaluate computes the handle and returns its value.
func Evaluate(h *Handle) (*tensors.Tensor, error) {
	if h == nil {
		return nil, errors.New("Evaluate: nil handle")
	}
	values, err := h.graph.EvaluateAll(context.Background(), h)
	if err != nil {
		return nil, err
	}
	return values[0], nil
}

// MustEvaluate is like Evaluate, but panics on error.
func MustEvaluate(h *Handle) *tensors.Tensor {
	v, err := Evaluate(h)
	if err != nil {
		panic(err)
	}
	return v
}

// EvaluateAll builds one plan for all the handles, executes it and returns their values, in order.
func (g *Graph) EvaluateAll(ctx context.Context, handles ...*Handle) ([]*tensors.Tensor, error) {
	plan, err := g.BuildPlan(handles...)
	if err != nil {
		return nil, err
	}
	if err = plan.Execute(ctx); err != nil {
		return nil, err
	}
	values := make([]*tensors.Tensor, len(handles))
	for ii, h := range handles {
		values[ii], err = h.Value()
		if err != nil {
			return nil, errors.WithMessagef(err, "EvaluateAll: handle #%d not computed", ii)
		}
	}
	return values, nil
}
