package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withCPUs(t *testing.T, fn func() int) {
	t.Helper()
	prev := cpuCount
	cpuCount = fn
	t.Cleanup(func() { cpuCount = prev })
}

func TestPlanTiers(t *testing.T) {
	withCPUs(t, func() int { return 1 })

	tests := []struct {
		count int
		fast  bool
		want  int
	}{
		{0, false, 16},
		{50, false, 16},
		{51, false, 24},
		{200, false, 24},
		{201, false, 32},
		{1000, false, 32},
		{1001, false, 48},
		{100000, false, 48},
		{1001, true, 48},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Plan(tt.count, tt.fast), "count=%d fast=%v", tt.count, tt.fast)
	}
}

func TestPlanRaisesToCPUMultiple(t *testing.T) {
	withCPUs(t, func() int { return 8 })
	assert.Equal(t, 32, Plan(10, false))

	withCPUs(t, func() int { return 32 })
	assert.Equal(t, MaxWorkers, Plan(10, false))
	assert.Equal(t, MaxFastWorkers, Plan(10, true))
}

func TestPlanBounds(t *testing.T) {
	for _, cpus := range []int{1, 2, 4, 16, 64, 256} {
		withCPUs(t, func() int { return cpus })
		for _, n := range []int{-5, 0, 1, 50, 51, 999, 1001, 1 << 20} {
			normal := Plan(n, false)
			fast := Plan(n, true)
			assert.GreaterOrEqual(t, normal, 1)
			assert.LessOrEqual(t, normal, MaxWorkers)
			assert.GreaterOrEqual(t, fast, 1)
			assert.LessOrEqual(t, fast, MaxFastWorkers)
		}
	}
}

func TestPlanCPUFallback(t *testing.T) {
	withCPUs(t, func() int { panic("no cpu info") })
	assert.Equal(t, 16, Plan(10, false))

	withCPUs(t, func() int { return 0 })
	assert.Equal(t, 16, Plan(10, false))

	withCPUs(t, func() int { return 5 })
	assert.Equal(t, 20, Plan(10, false))
}

func TestParseWorkers(t *testing.T) {
	withCPUs(t, func() int { return 1 })

	tests := []struct {
		name     string
		value    string
		count    int
		fast     bool
		autotune bool
		want     int
	}{
		{"integer", "12", 500, false, false, 12},
		{"auto", "auto", 500, false, false, 32},
		{"auto uppercase", "AUTO", 10, false, false, 16},
		{"autotune wins over integer", "3", 2000, true, true, 48},
		{"garbage", "lots", 10, false, false, 8},
		{"empty", "", 10, false, false, 8},
		{"zero floors to one", "0", 10, false, false, 1},
		{"negative floors to one", "-4", 10, false, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseWorkers(tt.value, tt.count, tt.fast, tt.autotune))
		})
	}
}
