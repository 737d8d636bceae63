// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graphtest

import (
	"testing"

	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
)

func TestMessageFromMsgAndArgs(t *testing.T) {
	assert.Equal(t, "", messageFromMsgAndArgs())
	assert.Equal(t, "plain", messageFromMsgAndArgs("plain"))
	assert.Equal(t, "sigmoid: output #1", messageFromMsgAndArgs("%s: output #%d", "sigmoid", 1))
	assert.Equal(t, "42", messageFromMsgAndArgs(42))
}

func TestRequireInDelta(t *testing.T) {
	want := tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2)
	RequireInDelta(t, want, tensors.FromFlatDataAndDimensions([]float32{1.001, 2}, 2), 0.01, "%s: output #%d", "test", 0)
	RequireInDelta(t, want, tensors.FromFlatDataAndDimensions([]float32{1, 2}, 2), 0)
}
