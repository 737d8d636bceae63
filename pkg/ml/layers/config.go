// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layers

import (
	"strings"

	"github.com/pkg/errors"
)

// Config of a layer instance. It's read once, at construction.
type Config struct {
	// FeedbackOutput enables the backward pass: forward calls push feedback entries and backward calls
	// compute gradients. If false, FeedBackward is a no-op returning an empty bundle.
	FeedbackOutput bool

	// AllowNullGradient makes a FeedBackward with an absent gradient valid: the matching entry is popped
	// and an empty bundle is returned. If false an absent gradient is an ErrProtocolViolation.
	AllowNullGradient bool
}

// ParseConfig parses a comma-separated list of options: "feedback" and "nullgrad".
// An empty string returns the zero Config (feedback disabled).
func ParseConfig(config string) (Config, error) {
	var c Config
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
		case "feedback":
			c.FeedbackOutput = true
		case "nullgrad":
			c.AllowNullGradient = true
		default:
			return Config{}, errors.Errorf("layers.ParseConfig(%q): unknown option %q, valid options are \"feedback\" and \"nullgrad\"",
				config, part)
		}
	}
	return c, nil
}

// Policies is a lookup of the configuration of layer instances by name.
type Policies struct {
	// Default is used for layers not listed in PerLayer.
	Default Config

	// PerLayer overrides Default for specific layer names.
	PerLayer map[string]Config
}

// For returns the configuration for the layer with the given name.
func (p Policies) For(name string) Config {
	if c, found := p.PerLayer[name]; found {
		return c
	}
	return p.Default
}
