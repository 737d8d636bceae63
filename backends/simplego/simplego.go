// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package simplego implements a simple, and not very fast, but very portable CPU backend.
//
// Every OpType gets a generic tail calculator for float32 and float64. On top of that it registers
// specialised dense float64 calculators (using gonum) and half-precision calculators (float16 and
// bfloat16, computed in float32), which can be disabled with the configuration options "nogonum" and
// "nohalf".
package simplego

import (
	"fmt"
	"strings"

	"github.com/gomlx/metann/backends"
	"github.com/pkg/errors"
	"golang.org/x/sys/cpu"
)

// BackendName to be used in METANN_BACKEND to specify this backend.
const BackendName = "go"

// Registers New() as the default constructor for "go" backend.
func init() {
	backends.Register(BackendName, New)
}

// Backend implements the backends.Backend interface.
type Backend struct {
	config   string
	useGonum bool
	useHalf  bool

	registry *backends.Registry
}

// Compile-time check that simplego.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// New constructs a new SimpleGo Backend.
//
// The config string is a comma-separated list of options:
//   - "nogonum": don't register the gonum float64 calculators.
//   - "nohalf": don't register the float16/bfloat16 calculators.
func New(config string) (backends.Backend, error) {
	return NewBackend(config)
}

// NewBackend is like New, but returns the concrete type.
func NewBackend(config string) (*Backend, error) {
	b := &Backend{config: config, useGonum: true, useHalf: true}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "nogonum":
			b.useGonum = false
		case "nohalf":
			b.useHalf = false
		default:
			return nil, errors.Errorf("unknown configuration option %q for SimpleGo (go) backend -- valid options are \"nogonum\" and \"nohalf\"", part)
		}
	}
	b.registry = newRegistry(b.useGonum, b.useHalf)
	return b, nil
}

// Name returns the short name of the backend.
func (b *Backend) Name() string {
	return "SimpleGo (go)"
}

// String implements fmt.Stringer.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	var parts []string
	if b.useGonum {
		parts = append(parts, "gonum")
	}
	if b.useHalf {
		parts = append(parts, "half-precision")
	}
	if ext := cpuExtensions(); len(ext) > 0 {
		parts = append(parts, "cpu:"+strings.Join(ext, "+"))
	}
	if len(parts) == 0 {
		return "Simple Go Portable Backend"
	}
	return fmt.Sprintf("Simple Go Portable Backend [%s]", strings.Join(parts, ", "))
}

// Registry implements backends.Backend.
func (b *Backend) Registry() *backends.Registry { return b.registry }

// Capabilities returns information about what is supported by this backend.
func (b *Backend) Capabilities() backends.Capabilities {
	if b.useHalf {
		return Capabilities
	}
	c := Capabilities.Clone()
	for _, dtype := range halfDTypes {
		delete(c.DTypes, dtype)
	}
	return c
}

// Finalize releases all the associated resources immediately, and makes the backend invalid.
func (b *Backend) Finalize() {}

// cpuExtensions lists the vector extensions reported by the CPU.
// The kernels are plain Go, this is informative only.
func cpuExtensions() []string {
	var ext []string
	if cpu.X86.HasAVX2 {
		ext = append(ext, "avx2")
	}
	if cpu.X86.HasAVX512F {
		ext = append(ext, "avx512")
	}
	if cpu.ARM64.HasASIMD {
		ext = append(ext, "neon")
	}
	if cpu.ARM64.HasSVE {
		ext = append(ext, "sve")
	}
	return ext
}
