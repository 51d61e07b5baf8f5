package planner

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
)

const (
	// MaxWorkers caps the collection pool in normal mode.
	MaxWorkers = 64
	// MaxFastWorkers caps the collection pool in fast mode.
	MaxFastWorkers = 48

	fallbackCPUs = 4
)

// cpuCount reports available parallelism. Replaced in tests.
var cpuCount = runtime.NumCPU

// Plan returns the worker budget for targetCount targets. The result is in
// [1, MaxWorkers], or [1, MaxFastWorkers] when fast is set.
func Plan(targetCount int, fast bool) int {
	var base int
	switch {
	case targetCount <= 50:
		base = 16
	case targetCount <= 200:
		base = 24
	case targetCount <= 1000:
		base = 32
	default:
		base = 48
	}

	base = max(base, 4*availableCPUs())

	limit := MaxWorkers
	if fast {
		limit = MaxFastWorkers
	}
	return max(1, min(base, limit))
}

func availableCPUs() (n int) {
	defer func() {
		if recover() != nil {
			n = fallbackCPUs
		}
	}()
	n = cpuCount()
	if n < 1 {
		return fallbackCPUs
	}
	return n
}

// ParseWorkers resolves the --workers value. "auto" (or autotune) plans
// from the target count; an integer is used as given with a floor of 1; any
// other value falls back to defaults.Workers.
func ParseWorkers(value string, targetCount int, fast, autotune bool) int {
	value = strings.TrimSpace(value)
	if autotune || strings.EqualFold(value, "auto") {
		return Plan(targetCount, fast)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaults.Workers
	}
	return max(1, n)
}
