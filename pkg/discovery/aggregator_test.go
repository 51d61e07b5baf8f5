package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

func static(targets ...inventory.Target) func(context.Context) ([]inventory.Target, error) {
	return func(context.Context) ([]inventory.Target, error) { return targets, nil }
}

type recorder struct {
	events []string
	counts int
}

func (r *recorder) StepStarted(name string) { r.events = append(r.events, "start:"+name) }
func (r *recorder) StepFinished(name string, count int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.events = append(r.events, "finish:"+name+":"+status)
	r.counts += count
}

func TestDedupe(t *testing.T) {
	in := []inventory.Target{
		{Host: "WEB01", Source: "azure"},
		{Host: ""},
		{Host: "web01", Source: "manual"},
		{Host: "db01"},
	}
	got := Dedupe(in)
	require.Len(t, got, 2)
	assert.Equal(t, "WEB01", got[0].Host)
	assert.Equal(t, "azure", got[0].Source)
	assert.Equal(t, "db01", got[1].Host)
}

func TestAggregateFirstSeenWins(t *testing.T) {
	steps := []Step{
		{Name: "one", Discover: static(inventory.Target{Host: "A", Source: "one"})},
		{Name: "two", Discover: static(inventory.Target{Host: "a", Source: "two"}, inventory.Target{Host: "B", Source: "two"})},
	}
	got := Aggregate(context.Background(), steps, []inventory.Target{{Host: "b", Source: "ext"}, {Host: "C", Source: "ext"}})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{got[0].Host, got[1].Host, got[2].Host})
	assert.Equal(t, "one", got[0].Source)
	assert.Equal(t, "two", got[1].Source)
}

func TestAggregateFailuresContributeNothing(t *testing.T) {
	rec := &recorder{}
	a := &Aggregator{Observer: rec}
	steps := []Step{
		{Name: "err", Discover: func(context.Context) ([]inventory.Target, error) {
			return []inventory.Target{{Host: "partial"}}, errors.New("boom")
		}},
		{Name: "panic", Discover: func(context.Context) ([]inventory.Target, error) { panic("bad") }},
		{Name: "nil"},
		{Name: "ok", Discover: static(inventory.Target{Host: "x"})},
	}
	got := a.Aggregate(context.Background(), steps, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Host)
	assert.Equal(t, []string{
		"start:err", "finish:err:error",
		"start:panic", "finish:panic:error",
		"start:nil", "finish:nil:error",
		"start:ok", "finish:ok:ok",
	}, rec.events)
	assert.Equal(t, 1, rec.counts)
}

func TestAggregateStepTimeout(t *testing.T) {
	a := &Aggregator{StepTimeout: 20 * time.Millisecond}
	steps := []Step{{Name: "slow", Discover: func(ctx context.Context) ([]inventory.Target, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}}
	assert.Empty(t, a.Aggregate(context.Background(), steps, nil))
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate(context.Background(), nil, nil))
}
