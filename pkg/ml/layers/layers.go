// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package layers implements layers that evaluate their forward pass eagerly on a lazy graph, and cache
// what they need to replay gradients in a backward pass.
//
// Each layer owns a Stack of feedback entries: every FeedForward (with feedback enabled) pushes one entry,
// and every FeedBackward pops the most recent one. Backward calls must be issued in the exact reverse
// order of the forward calls. AssertIdle checks that all forward calls were matched.
//
// Layer instances are not safe for concurrent use: use one instance per execution context.
package layers

import (
	"fmt"
	"slices"

	"github.com/gomlx/metann/pkg/core/graph"
	"github.com/pkg/errors"
)

// ErrProtocolViolation is returned when a layer is misused by its caller: a backward call without a
// matching forward call, a missing bundle entry, or an idle check with pending entries.
var ErrProtocolViolation = errors.New("layer protocol violation")

// Key identifies an entry of a Bundle.
type Key int

const (
	// LayerInput is the input of single-input layers, both in the forward input bundle and in the
	// backward result.
	LayerInput Key = iota

	// LayerOutput is the output of layers, both in the forward result and in the gradient bundle
	// given to FeedBackward.
	LayerOutput

	// LeftOperand and RightOperand are the inputs of two-input layers like Subtract.
	LeftOperand
	RightOperand
)

var keyNames = [...]string{
	LayerInput:   "LayerInput",
	LayerOutput:  "LayerOutput",
	LeftOperand:  "LeftOperand",
	RightOperand: "RightOperand",
}

// String implements fmt.Stringer.
func (k Key) String() string {
	if k < 0 || int(k) >= len(keyNames) {
		return fmt.Sprintf("Key(%d)", int(k))
	}
	return keyNames[k]
}

// Bundle maps keys to handles: it's what layers take as input and return.
//
// An empty Bundle (or nil) is a valid result: FeedBackward returns it when feedback is disabled.
type Bundle map[Key]*graph.Handle

// Get returns the handle for the key, or nil if it is absent.
func (b Bundle) Get(key Key) *graph.Handle {
	if b == nil {
		return nil
	}
	return b[key]
}

// Require returns the handle for key, or an ErrProtocolViolation if it is absent.
func (b Bundle) Require(layerName string, key Key) (*graph.Handle, error) {
	h := b.Get(key)
	if h == nil {
		return nil, errors.Wrapf(ErrProtocolViolation, "layer %q: missing %s in bundle", layerName, key)
	}
	return h, nil
}

// Keys returns the keys present in the bundle, sorted.
func (b Bundle) Keys() []Key {
	keys := make([]Key, 0, len(b))
	for k, h := range b {
		if h != nil {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Layer is the contract every layer exposes to the surrounding network or training driver.
type Layer interface {
	// Name of the layer instance.
	Name() string

	// FeedForward evaluates the layer on the input bundle and returns the output bundle, with the
	// output handles already bound.
	FeedForward(input Bundle) (Bundle, error)

	// FeedBackward takes the gradient of the layer's output and returns the gradient of its inputs.
	FeedBackward(grad Bundle) (Bundle, error)

	// AssertIdle returns an ErrProtocolViolation if there are forward calls not yet matched by a
	// backward call.
	AssertIdle() error
}

// rollbacker is implemented by the layers of this package: rollbackForward removes what the most recent
// successful FeedForward recorded, when a later step of the same forward pass fails.
type rollbacker interface {
	rollbackForward() error
}
