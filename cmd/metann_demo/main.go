// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// metann_demo runs forward/backward steps through a small chain of layers and prints the evaluation
// plan of the network, with the calculator chosen for each node.
//
// Usage:
//
//	metann_demo -steps=100 -batch=8 -features=5 -graph="parallel,workers=4" -backend="go:nogonum"
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/metann/backends"
	_ "github.com/gomlx/metann/backends/simplego"
	"github.com/gomlx/metann/pkg/core/graph"
	"github.com/gomlx/metann/pkg/core/shapes"
	"github.com/gomlx/metann/pkg/core/tensors"
	"github.com/gomlx/metann/pkg/ml/layers"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagSteps    = flag.Int("steps", 100, "Number of forward/backward steps to run.")
	flagBatch    = flag.Int("batch", 8, "Batch size of the random inputs.")
	flagFeatures = flag.Int("features", 5, "Number of features (softmax classes) per example.")
	flagUnroll   = flag.Int("unroll", 2, "Number of forward calls per step, before the matching backward calls.")
	flagBackend  = flag.String("backend", "", fmt.Sprintf("Backend configuration, e.g. \"go:nohalf\". "+
		"If empty, $%s is used, else the default backend.", backends.ConfigEnvVar))
	flagGraph = flag.String("graph", "", fmt.Sprintf("Graph configuration, e.g. \"parallel,workers=4\". "+
		"If empty, $%s is used.", graph.ConfigEnvVar))
	flagLayers  = flag.String("layers", "feedback", "Layers configuration: comma-separated \"feedback\" and \"nullgrad\".")
	flagFrozen  = flag.String("frozen", "", "Name of a layer (relu, tanh or softmax) to run without feedback. "+
		"Layers before it then receive no gradient, which requires \"nullgrad\" in -layers.")
	flagPlan    = flag.Bool("plan", true, "Print the evaluation plan of the network at the end.")
	flagNoColor = flag.Bool("no_color", false, "Disable colors in the output.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	} else {
		lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).ColorProfile())
	}
	if *flagSteps <= 0 || *flagBatch <= 0 || *flagFeatures <= 0 || *flagUnroll <= 0 {
		klog.Fatalf("-steps, -batch, -features and -unroll must be positive")
	}

	backend := must.M1(newBackend())
	defer backend.Finalize()
	g := graph.New(backend, must.M1(graphConfig()))
	klog.V(1).Infof("Using %s with backend %s", g, backend.Name())

	net := newNetwork(must.M1(layers.ParseConfig(*flagLayers)))
	if err := train(g, net); err != nil {
		klog.Fatalf("Training failed: %+v", err)
	}
	if *flagPlan {
		must.M(printPlan(g))
	}
}

func newBackend() (backends.Backend, error) {
	if *flagBackend == "" {
		return backends.New()
	}
	return backends.NewWithConfig(*flagBackend)
}

func graphConfig() (graph.Config, error) {
	if *flagGraph == "" {
		return graph.ConfigFromEnv()
	}
	return graph.ParseConfig(*flagGraph)
}

func newNetwork(config layers.Config) *layers.Sequential {
	policies := layers.Policies{Default: config}
	if *flagFrozen != "" {
		policies.PerLayer = map[string]layers.Config{*flagFrozen: {AllowNullGradient: config.AllowNullGradient}}
	}
	return layers.NewSequential("net",
		layers.NewReLU("relu", policies.For("relu")),
		layers.NewTanh("tanh", policies.For("tanh")),
		layers.NewSoftmax("softmax", policies.For("softmax")),
	)
}

// randomBatch returns a batch of random inputs and one-hot targets.
func randomBatch(g *graph.Graph, rng *rand.Rand) (input, target *graph.Handle) {
	batch, features := *flagBatch, *flagFeatures
	x := make([]float32, batch*features)
	for ii := range x {
		x[ii] = float32(rng.NormFloat64())
	}
	y := make([]float32, batch*features)
	for ii := range batch {
		y[ii*features+rng.IntN(features)] = 1
	}
	input = g.Source(tensors.FromBatchFlatData(x, batch, features))
	target = g.Source(tensors.FromBatchFlatData(y, batch, features))
	return
}

// train runs the forward/backward steps. Each step does -unroll forward calls, and then the matching
// backward calls in reverse order, using the gradient of the squared error against a random target.
func train(g *graph.Graph, net *layers.Sequential) error {
	rng := rand.New(rand.NewPCG(42, uint64(*flagSteps)))
	bar := progressbar.NewOptions(*flagSteps,
		progressbar.OptionSetDescription("Steps"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("steps"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
	)
	var lastLoss float64
	for step := range *flagSteps {
		targets := make([]*graph.Handle, *flagUnroll)
		outputs := make([]*graph.Handle, *flagUnroll)
		for ii := range *flagUnroll {
			var input *graph.Handle
			input, targets[ii] = randomBatch(g, rng)
			out, err := net.FeedForward(layers.Bundle{layers.LayerInput: input})
			if err != nil {
				return errors.WithMessagef(err, "step %d", step)
			}
			outputs[ii] = out.Get(layers.LayerOutput)
		}
		for ii := *flagUnroll - 1; ii >= 0; ii-- {
			grad := graph.Sub(outputs[ii], targets[ii])
			gradValue, err := graph.Evaluate(grad)
			if err != nil {
				return errors.WithMessagef(err, "step %d", step)
			}
			if ii == 0 {
				lastLoss = squaredSum(gradValue) / 2
			}
			if _, err := net.FeedBackward(layers.Bundle{layers.LayerOutput: grad}); err != nil {
				return errors.WithMessagef(err, "step %d", step)
			}
		}
		if err := net.AssertIdle(); err != nil {
			return errors.WithMessagef(err, "step %d", step)
		}
		// Nothing from this step is reused, so it can be garbage collected.
		g.Reset()
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Printf("\nRan %s steps (%s forward calls), last loss %.4f\n",
		humanize.Comma(int64(*flagSteps)), humanize.Comma(int64(*flagSteps)*int64(*flagUnroll)), lastLoss)
	return nil
}

func squaredSum(t *tensors.Tensor) float64 {
	var sum float64
	for _, v := range tensors.AsFloat64(t) {
		sum += v * v
	}
	return sum
}

// printPlan builds and executes the forward expression of the network on a fed placeholder, and prints its
// plan with the calculators used.
func printPlan(g *graph.Graph) error {
	x := g.Placeholder(shapes.MakeBatch(dtypes.Float32, *flagBatch, *flagFeatures))
	y := graph.Softmax(graph.Tanh(graph.Relu(x)))
	input, _ := randomBatch(g, rand.New(rand.NewPCG(1, 2)))
	if err := x.Feed(must.M1(input.Value())); err != nil {
		return err
	}
	plan, err := g.BuildPlan(y)
	if err != nil {
		return err
	}
	if err = plan.Execute(context.Background()); err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Evaluation plan: %d nodes, %s", plan.NumNodes(), humanize.Bytes(uint64(plan.Memory())))))
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Headers("#", "Node", "Output", "Shape", "Calculator", "Deps")
	for _, step := range plan.Steps() {
		table.Row(strconv.Itoa(step.Index), step.Node, step.Output, step.Shape.String(), step.Calculator,
			strconv.Itoa(step.NumDeps))
	}
	fmt.Println(table.Render())
	return nil
}
