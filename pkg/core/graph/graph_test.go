// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"context"
	"sync"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/backends"
	"github.com/gomlx/metann/backends/simplego"
	. "github.com/gomlx/metann/pkg/core/graph"
	"github.com/gomlx/metann/pkg/core/graph/graphtest"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)

	c, err = ParseConfig("parallel, workers=3,nodedup")
	require.NoError(t, err)
	assert.Equal(t, ExecutionParallel, c.Mode)
	assert.Equal(t, 3, c.Workers)
	assert.True(t, c.NoDedup)

	for _, bad := range []string{"fast", "workers", "workers=x", "workers=-2", "sequential=1"} {
		_, err = ParseConfig(bad)
		require.Error(t, err, "config %q", bad)
	}

	t.Setenv(ConfigEnvVar, "sequential")
	c, err = ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ExecutionSequential, c.Mode)
	t.Setenv(ConfigEnvVar, "bogus")
	_, err = ConfigFromEnv()
	require.ErrorContains(t, err, ConfigEnvVar)
}

func TestDedup(t *testing.T) {
	g := graphtest.NewTestGraph()
	x := g.Source(graphtest.GenMatrix[float32](3, 3, 0, 1))
	y := g.Source(graphtest.GenMatrix[float32](3, 3, 1, 1))
	s1 := Sigmoid(Sub(x, y))
	numNodes := g.NumNodes()
	s2 := Sigmoid(Sub(x, y))
	assert.Same(t, s1, s2)
	assert.Equal(t, numNodes, g.NumNodes())
	assert.NotSame(t, Sub(y, x), Sub(x, y), "operand order matters")

	// Aux params are part of the identity.
	assert.Same(t, SubFromNum(2, x), SubFromNum(2, x))
	assert.NotSame(t, SubFromNum(2, x), SubFromNum(3, x))

	// Evaluating again the same expression reuses the bound value.
	v1 := must.M1(Evaluate(s1))
	plan := must.M1(g.BuildPlan(Sigmoid(Sub(x, y))))
	assert.Equal(t, 0, plan.NumNodes())
	assert.Same(t, v1, must.M1(Evaluate(s2)))

	noDedup := newGraph(t, "nodedup")
	x = noDedup.Source(graphtest.GenMatrix[float32](3, 3, 0, 1))
	assert.NotSame(t, Neg(x), Neg(x))
}

// newGraph creates a graph with the test backend and the given configuration.
func newGraph(t *testing.T, config string) *Graph {
	c, err := ParseConfig(config)
	require.NoError(t, err)
	return New(graphtest.BuildTestBackend(), c)
}

func TestPlanOrder(t *testing.T) {
	g := graphtest.NewTestGraph()
	x := g.Source(tensors.FromScalar(1.0))
	a := Neg(x)
	b := Sigmoid(x)
	c := Sub(a, b)
	d := Mul(c, a)
	plan := must.M1(g.BuildPlan(d))
	var ops []backends.OpType
	for _, node := range plan.Nodes() {
		ops = append(ops, node.OpType())
	}
	assert.Equal(t, []backends.OpType{backends.OpTypeNeg, backends.OpTypeSigmoid, backends.OpTypeSub, backends.OpTypeMul}, ops)
	// Deterministic: building it again gives the same order.
	assert.Equal(t, plan.String(), must.M1(g.BuildPlan(d)).String())

	require.NoError(t, plan.Execute(context.Background()))
	assert.Contains(t, plan.String(), "["+simplego.GonumCalculatorName+"]")
	assert.Contains(t, plan.String(), "["+simplego.TailCalculatorName+"]")
	assert.Equal(t, d.Shape().Memory()*4, plan.Memory())
	v := must.M1(d.Value())
	assert.InDelta(t, (-1-sigmoid(1))*-1, tensors.ToScalar[float64](v), 1e-9)
}

func TestParallel(t *testing.T) {
	g := newGraph(t, "parallel,workers=8")
	const numBranches = 32
	x := g.Source(graphtest.GenBatchMatrix[float64](4, 16, 16, -1, 0.001))
	var branches []*Handle
	for ii := range numBranches {
		branches = append(branches, Sigmoid(SubFromNum(float64(ii), x)))
	}
	sum := branches[0]
	for _, b := range branches[1:] {
		sum = Add(sum, b)
	}
	got := must.M1(Evaluate(sum))

	// Same graph built sequentially.
	gSeq := newGraph(t, "sequential")
	xSeq := gSeq.Source(graphtest.GenBatchMatrix[float64](4, 16, 16, -1, 0.001))
	sumSeq := Sigmoid(SubFromNum(0, xSeq))
	for ii := 1; ii < numBranches; ii++ {
		sumSeq = Add(sumSeq, Sigmoid(SubFromNum(float64(ii), xSeq)))
	}
	graphtest.RequireInDelta(t, must.M1(Evaluate(sumSeq)), got, 1e-9)
}

func TestConcurrentEvaluations(t *testing.T) {
	g := graphtest.NewTestGraph()
	x := g.Source(graphtest.GenMatrix[float32](20, 20, -1, 0.01))
	shared := Tanh(x)
	var wg sync.WaitGroup
	results := make([]*tensors.Tensor, 8)
	errs := make([]error, 8)
	for ii := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// All goroutines share the Tanh node: it must be computed (and bound) only once.
			results[ii], errs[ii] = Evaluate(Add(shared, SubFromNum(float64(ii), x)))
		}()
	}
	wg.Wait()
	for ii := range results {
		require.NoError(t, errs[ii])
	}
	require.True(t, shared.IsBound())
}

func TestPlaceholder(t *testing.T) {
	g := graphtest.NewTestGraph()
	p := g.Placeholder(shapes.Make(dtypes.Float32, 2))
	y := Sigmoid(p)
	_, err := Evaluate(y)
	require.ErrorIs(t, err, ErrUnbound)
	_, err = y.Value()
	require.ErrorIs(t, err, ErrUnbound)

	require.ErrorIs(t, p.Feed(tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 3)), ErrShapeMismatch)
	require.NoError(t, p.Feed(tensors.FromFlatDataAndDimensions([]float32{0, 0}, 2)))
	require.ErrorIs(t, p.Feed(tensors.FromFlatDataAndDimensions([]float32{0, 0}, 2)), ErrDoubleBind)
	got := must.M1(Evaluate(y))
	assert.Equal(t, []float32{0.5, 0.5}, tensors.CopyFlatData[float32](got))
	require.Error(t, y.Feed(got), "only placeholders can be fed")
}

func TestUnsupportedOperand(t *testing.T) {
	g := graphtest.NewTestGraph()
	onGPU := graphtest.GenMatrix[float32](2, 2, 0, 1).OnDevice(tensors.GPU)
	err := exceptions.TryCatch[error](func() { Sigmoid(g.Source(onGPU)) })
	require.ErrorIs(t, err, backends.ErrUnsupportedOperand, "bound operands are checked when the node is built")

	// The device of a placeholder is only known once it is fed: it fails when the node is executed.
	p := g.Placeholder(onGPU.Shape())
	y := Sigmoid(p)
	require.NoError(t, p.Feed(onGPU))
	_, err = Evaluate(y)
	require.ErrorIs(t, err, backends.ErrUnsupportedOperand)
	assert.False(t, y.IsBound())

	// Other plans are not affected.
	z := g.Source(graphtest.GenMatrix[float32](2, 2, 0, 1))
	_, err = Evaluate(Sigmoid(z))
	require.NoError(t, err)

	// Half precision disabled in the backend.
	noHalf := New(must.M1(simplego.NewBackend("nohalf")), DefaultConfig())
	err = exceptions.TryCatch[error](func() { Sigmoid(noHalf.Placeholder(shapes.Make(dtypes.Float16, 2))) })
	require.ErrorIs(t, err, backends.ErrUnsupportedOperand)
}

// TestParallelFailure checks that a failing node interrupts a parallel execution, with the error of the
// node returned.
func TestParallelFailure(t *testing.T) {
	errFailed := errors.New("calculator failed")
	for _, config := range []string{"parallel,workers=2", "parallel,workers=-1"} {
		backend := must.M1(simplego.NewBackend(""))
		g := New(backend, must.M1(ParseConfig(config)))
		x := g.Source(graphtest.GenMatrix[float32](4, 4, 0, 0.1))
		onGPU := g.Placeholder(x.Shape())
		sum := Sigmoid(onGPU)
		for ii := range 20 {
			sum = Add(sum, Tanh(SubFromNum(float64(ii), x)))
		}
		require.NoError(t, onGPU.Feed(graphtest.GenMatrix[float32](4, 4, 0, 0.1).OnDevice(tensors.GPU)))
		for range 5 {
			_, err := Evaluate(sum)
			require.ErrorIs(t, err, backends.ErrUnsupportedOperand, "config %q", config)
			assert.False(t, sum.IsBound())
		}

		// A calculator returning an error, in one of many branches.
		backend.Registry().Chain(backends.OpTypeMul).RegisterFirst(backends.NewCalculator("fails", nil,
			func([]*tensors.Tensor, backends.AuxParams, shapes.Shape) (*tensors.Tensor, error) {
				return nil, errFailed
			}))
		branches := Neg(x)
		for ii := range 20 {
			if ii == 10 {
				branches = Add(branches, Mul(x, x))
				continue
			}
			branches = Add(branches, Relu(SubFromNum(float64(ii), x)))
		}
		_, err := Evaluate(branches)
		require.ErrorIs(t, err, errFailed, "config %q", config)
		assert.False(t, branches.IsBound())
	}
}

func TestCancellation(t *testing.T) {
	for _, config := range []string{"sequential", "parallel,workers=2"} {
		g := newGraph(t, config)
		x := g.Source(graphtest.GenMatrix[float32](2, 2, 0, 1))
		y := Relu(Neg(x))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := g.EvaluateAll(ctx, y)
		require.ErrorIs(t, err, context.Canceled, "config %q", config)
		assert.False(t, y.IsBound())
		// Evaluating again with a live context works.
		_, err = g.EvaluateAll(context.Background(), y)
		require.NoError(t, err)
	}
}

// TestDispatchPriority checks that re-registering calculators keeps priority, and that the first
// matching calculator is used across repeated evaluations.
func TestDispatchPriority(t *testing.T) {
	backend := must.M1(simplego.NewBackend("nogonum,nohalf"))
	g := New(backend, DefaultConfig())
	var calls [2]int
	for range 3 {
		for ii, name := range []string{"first", "second"} {
			backend.Registry().Register(backends.OpTypeNeg, backends.NewCalculator(name,
				backends.WithDTypes(dtypes.Float64),
				func(inputs []*tensors.Tensor, _ backends.AuxParams, outputShape shapes.Shape) (*tensors.Tensor, error) {
					calls[ii]++
					return tensors.FromShape(outputShape), nil
				}))
		}
		x := g.Source(tensors.FromScalar(1.0))
		plan := must.M1(g.BuildPlan(Neg(x)))
		require.NoError(t, plan.Execute(context.Background()))
		assert.Equal(t, "first", plan.Nodes()[0].Calculator())
	}
	assert.Equal(t, [2]int{3, 0}, calls)
	assert.Equal(t, []string{"first", "second", simplego.TailCalculatorName}, backend.Registry().Chain(backends.OpTypeNeg).Names())
}

func TestBadCalculator(t *testing.T) {
	backend := must.M1(simplego.NewBackend(""))
	g := New(backend, must.M1(ParseConfig("sequential")))
	backend.Registry().Chain(backends.OpTypeTanh).RegisterFirst(backends.NewCalculator("wrong-shape", nil,
		func(inputs []*tensors.Tensor, _ backends.AuxParams, _ shapes.Shape) (*tensors.Tensor, error) {
			return tensors.FromScalar(float32(0)), nil
		}))
	backend.Registry().Chain(backends.OpTypeSigmoid).RegisterFirst(backends.NewCalculator("panics", nil,
		func([]*tensors.Tensor, backends.AuxParams, shapes.Shape) (*tensors.Tensor, error) {
			panic("not an error")
		}))
	x := g.Source(graphtest.GenMatrix[float32](2, 2, 0, 1))
	_, err := Evaluate(Tanh(x))
	require.ErrorIs(t, err, ErrShapeMismatch)
	require.Panics(t, func() { _, _ = Evaluate(Sigmoid(x)) }, "non-error panics are not caught")
}
