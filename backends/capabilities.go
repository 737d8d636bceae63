// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"maps"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/pkg/core/tensors"
)

// Capabilities holds mappings of what is supported by a backend.
type Capabilities struct {
	// Operations supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	Operations map[OpType]bool

	// DTypes list the data types supported by a backend.
	// If not listed, it's assumed to be false, hence not supported.
	DTypes map[dtypes.DType]bool

	// Devices the backend can execute on.
	Devices map[tensors.Device]bool
}

// Clone makes a deep copy of the Capabilities.
func (c Capabilities) Clone() Capabilities {
	var c2 Capabilities
	c2.Operations = maps.Clone(c.Operations)
	c2.DTypes = maps.Clone(c.DTypes)
	c2.Devices = maps.Clone(c.Devices)
	return c2
}

// Supports returns whether the operation is supported for all the given operands.
func (c Capabilities) Supports(opType OpType, operands []Operand) bool {
	if !c.Operations[opType] {
		return false
	}
	for _, o := range operands {
		if !c.DTypes[o.DType] || !c.Devices[o.Device] {
			return false
		}
	}
	return true
}

// SupportsDType returns whether the operation is supported for operands of the given dtype, on any device.
// It is used for operands whose device is not known yet.
func (c Capabilities) SupportsDType(opType OpType, dtype dtypes.DType) bool {
	return c.Operations[opType] && c.DTypes[dtype]
}
