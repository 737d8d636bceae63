// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphtest holds test utilities for packages that depend on the graph package.
package graphtest

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/gomlx/metann/backends"
	_ "github.com/gomlx/metann/backends/simplego"
	"github.com/gomlx/metann/pkg/core/graph"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

// TestGraphFn should build its own inputs, and return both inputs and outputs
type TestGraphFn func(g *graph.Graph) (inputs, outputs []*graph.Handle)

var (
	backendOnce   sync.Once
	cachedBackend backends.Backend
)

// BuildTestBackend returns the SimpleGo backend, or the one configured with $METANN_BACKEND.
// It is created only once.
func BuildTestBackend() backends.Backend {
	backendOnce.Do(func() {
		backends.DefaultConfig = "go"
		var err error
		cachedBackend, err = backends.New()
		if err != nil {
			klog.Fatalf("Failed to create test backend: %+v", err)
		}
	})
	return cachedBackend
}

var officialTestConfigs = []string{"sequential", "parallel,workers=4", "parallel,workers=-1,nodedup"}

func init() {
	if config := os.Getenv(graph.ConfigEnvVar); config != "" {
		officialTestConfigs = []string{config}
	}
}

// TestOfficialConfigs iterates over the graph configurations that tests should pass with (sequential and
// parallel execution, with and without de-duplication), and calls testFn with a new graph for each.
// If $METANN_GRAPH is set, only that configuration is used.
func TestOfficialConfigs(t *testing.T, testFn func(t *testing.T, g *graph.Graph)) {
	backend := BuildTestBackend()
	for _, configStr := range officialTestConfigs {
		config, err := graph.ParseConfig(configStr)
		require.NoError(t, err)
		t.Run(configStr, func(t *testing.T) {
			testFn(t, graph.New(backend, config))
		})
	}
}

// NewTestGraph returns a new graph using the test backend and the default configuration.
func NewTestGraph() *graph.Graph {
	return graph.New(BuildTestBackend(), graph.DefaultConfig())
}

// RunTestGraphFn tests a graph building function graphFn by evaluating its outputs and comparing
// them to the values in want, reporting back any errors in t. It runs for all the official configurations.
//
// delta is the margin of value on the difference of output and want values that are acceptable.
// Values of delta <= 0 means only exact equality is accepted.
func RunTestGraphFn(t *testing.T, testName string, graphFn TestGraphFn, want []*tensors.Tensor, delta float64) {
	t.Run(testName, func(t *testing.T) {
		TestOfficialConfigs(t, func(t *testing.T, g *graph.Graph) {
			inputs, outputs := graphFn(g)
			require.Equalf(t, len(want), len(outputs), "%s: number of wanted results different from number of outputs", testName)
			values, err := g.EvaluateAll(t.Context(), outputs...)
			require.NoErrorf(t, err, "%s: failed to evaluate graph", testName)

			if testing.Verbose() {
				fmt.Printf("\n%s:\n", testName)
				for ii, input := range inputs {
					fmt.Printf("\tInput %d: %s\n", ii, must.M1(input.Value()))
				}
				for ii, output := range values {
					fmt.Printf("\tOutput %d: %s\n", ii, output)
				}
			}
			for ii, output := range values {
				RequireInDelta(t, want[ii], output, delta, "%s: output #%d", testName, ii)
			}
		})
	})
}

// RequireInDelta requires that got has the same shape as want, and all values within delta.
// Values of delta <= 0 means only exact equality is accepted.
//
// msgAndArgs are handled as in testify: an optional format string followed by its arguments.
func RequireInDelta(t *testing.T, want, got *tensors.Tensor, delta float64, msgAndArgs ...any) {
	t.Helper()
	require.NotNil(t, got, msgAndArgs...)
	msg := messageFromMsgAndArgs(msgAndArgs...)
	require.Truef(t, want.Shape().Equal(got.Shape()), "wanted shape %s, got %s: %s", want.Shape(), got.Shape(), msg)
	if delta <= 0 {
		require.Truef(t, want.Equal(got), "wanted %s, got %s: %s", want, got, msg)
		return
	}
	require.InDeltaSlice(t, tensors.AsFloat64(want), tensors.AsFloat64(got), delta, msgAndArgs...)
}

func messageFromMsgAndArgs(msgAndArgs ...any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if format, ok := msgAndArgs[0].(string); ok {
		if len(msgAndArgs) == 1 {
			return format
		}
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("%+v", msgAndArgs[0])
}
