// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layers

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Sequential chains single-input layers: the LayerOutput of each layer is the LayerInput of the next.
// FeedBackward runs the layers in reverse order.
type Sequential struct {
	name   string
	layers []Layer
}

var _ Layer = (*Sequential)(nil)

// NewSequential returns a layer that chains the given layers.
func NewSequential(name string, layers ...Layer) *Sequential {
	return &Sequential{name: name, layers: layers}
}

// Name implements Layer.
func (s *Sequential) Name() string { return s.name }

// Layers returns the chained layers, in forward order.
func (s *Sequential) Layers() []Layer { return s.layers }

// FeedForward implements Layer.
//
// If one of the layers fails, the layers before it are rolled back, so the network is left as it was
// before the call.
func (s *Sequential) FeedForward(input Bundle) (Bundle, error) {
	x, err := input.Require(s.name, LayerInput)
	if err != nil {
		return nil, err
	}
	for ii, layer := range s.layers {
		out, err := layer.FeedForward(Bundle{LayerInput: x})
		if err != nil {
			s.rollback(ii)
			return nil, errors.WithMessagef(err, "sequential %q", s.name)
		}
		if x, err = out.Require(layer.Name(), LayerOutput); err != nil {
			s.rollback(ii + 1)
			return nil, errors.WithMessagef(err, "sequential %q", s.name)
		}
	}
	return Bundle{LayerOutput: x}, nil
}

func (s *Sequential) rollbackForward() error {
	s.rollback(len(s.layers))
	return nil
}

// rollback undoes the forward call of the first n layers, in reverse order.
func (s *Sequential) rollback(n int) {
	for ii := n - 1; ii >= 0; ii-- {
		layer := s.layers[ii]
		r, ok := layer.(rollbacker)
		if !ok {
			klog.Warningf("sequential %q: layer %q can't roll back its forward call", s.name, layer.Name())
			continue
		}
		if err := r.rollbackForward(); err != nil {
			klog.Warningf("sequential %q: failed to roll back layer %q: %v", s.name, layer.Name(), err)
		}
	}
}

// FeedBackward implements Layer.
//
// If a layer returns an empty bundle (feedback disabled, or a null gradient) the layers before it receive
// an absent gradient.
func (s *Sequential) FeedBackward(grad Bundle) (Bundle, error) {
	g := grad.Get(LayerOutput)
	for ii := len(s.layers) - 1; ii >= 0; ii-- {
		layer := s.layers[ii]
		in, err := layer.FeedBackward(Bundle{LayerOutput: g})
		if err != nil {
			return nil, errors.WithMessagef(err, "sequential %q", s.name)
		}
		g = in.Get(LayerInput)
	}
	if g == nil {
		return Bundle{}, nil
	}
	return Bundle{LayerInput: g}, nil
}

// AssertIdle implements Layer. It checks every chained layer.
func (s *Sequential) AssertIdle() error {
	for _, layer := range s.layers {
		if err := layer.AssertIdle(); err != nil {
			return errors.WithMessagef(err, "sequential %q", s.name)
		}
	}
	return nil
}
