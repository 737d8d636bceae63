// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ExecutionMode defines how the nodes of a Plan are executed.
type ExecutionMode int

const (
	// ExecutionDynamic executes in parallel if there is only one live plan execution in the graph, and
	// sequentially otherwise.
	ExecutionDynamic ExecutionMode = iota

	// ExecutionSequential executes nodes one at a time, in the plan order.
	ExecutionSequential

	// ExecutionParallel executes independent nodes concurrently, bounded by the graph workers.
	ExecutionParallel
)

func (m ExecutionMode) String() string {
	switch m {
	case ExecutionDynamic:
		return "dynamic"
	case ExecutionSequential:
		return "sequential"
	case ExecutionParallel:
		return "parallel"
	default:
		return "ExecutionMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ConfigEnvVar is the environment variable read by ConfigFromEnv.
const ConfigEnvVar = "METANN_GRAPH"

// Config of a Graph.
type Config struct {
	Mode ExecutionMode

	// Workers is the maximum number of nodes executing concurrently in parallel mode.
	// 0 disables parallelism, and -1 means unlimited.
	Workers int

	// NoDedup disables the de-duplication of structurally identical nodes.
	NoDedup bool
}

// DefaultConfig returns the default configuration: dynamic execution with runtime.NumCPU() workers.
func DefaultConfig() Config {
	return Config{Mode: ExecutionDynamic, Workers: runtime.NumCPU()}
}

// ParseConfig parses a comma-separated list of options, applied over DefaultConfig:
//
//   - "sequential", "parallel", "dynamic": the ExecutionMode.
//   - "workers=N": maximum number of parallel workers (0 disables, -1 is unlimited).
//   - "nodedup": disables node de-duplication.
func ParseConfig(config string) (Config, error) {
	c := DefaultConfig()
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		key, value, hasValue := strings.Cut(part, "=")
		switch key {
		case "":
			continue
		case "sequential":
			c.Mode = ExecutionSequential
		case "parallel":
			c.Mode = ExecutionParallel
		case "dynamic":
			c.Mode = ExecutionDynamic
		case "nodedup":
			c.NoDedup = true
		case "workers":
			if !hasValue {
				return c, errors.Errorf("graph configuration option %q requires a value, e.g. \"workers=4\"", part)
			}
			workers, err := strconv.Atoi(value)
			if err != nil || workers < -1 {
				return c, errors.Errorf("graph configuration option %q: invalid number of workers", part)
			}
			c.Workers = workers
		default:
			return c, errors.Errorf("unknown graph configuration option %q", part)
		}
		if hasValue && key != "workers" {
			return c, errors.Errorf("graph configuration option %q takes no value", key)
		}
	}
	return c, nil
}

// ConfigFromEnv parses the configuration in $METANN_GRAPH, or returns DefaultConfig if it is not set.
func ConfigFromEnv() (Config, error) {
	config, err := ParseConfig(os.Getenv(ConfigEnvVar))
	if err != nil {
		return config, errors.WithMessagef(err, "parsing $%s", ConfigEnvVar)
	}
	return config, nil
}
