package windows

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakabjo/cmdb-inventory/pkg/collector"
	"github.com/jakabjo/cmdb-inventory/pkg/config"
)

const sampleJSON = `{"hostname":"WIN01.corp.example.com","os_name":"Microsoft Windows Server 2022 Standard","os_version":"10.0.20348","manufacturer":"Microsoft Corporation","model":"Virtual Machine","serial_number":" ","cpu_count":4,"memory_bytes":17179869184,"uptime_seconds":3600,"domain":"corp.example.com","software":["7-Zip 23.01","Microsoft Edge 120.0"]}`

type fakeRunner struct {
	out    string
	err    error
	script string
}

func (f *fakeRunner) RunPowerShell(_ context.Context, _ string, script string) (string, error) {
	f.script = script
	return f.out, f.err
}

func TestParse(t *testing.T) {
	res, err := Parse(sampleJSON, collector.Settings{Software: true, SoftwareFilters: []string{"edge"}})
	require.NoError(t, err)

	assert.Equal(t, Backend, res[collector.KeyCollector])
	assert.Equal(t, "WIN01.corp.example.com", res[collector.KeyHostname])
	assert.Equal(t, "10.0.20348", res[collector.KeyOSVersion])
	assert.Equal(t, int64(4), res[collector.KeyCPUCount])
	assert.Equal(t, int64(17179869184), res[collector.KeyMemoryBytes])
	assert.Equal(t, "corp.example.com", res["domain"])
	assert.NotContains(t, res, collector.KeySerial)
	assert.Equal(t, []string{"Microsoft Edge 120.0"}, res[collector.KeySoftware])
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("  ", collector.Settings{})
	assert.Error(t, err)
	_, err = Parse("not json", collector.Settings{})
	assert.Error(t, err)
}

func TestCollect(t *testing.T) {
	runner := &fakeRunner{out: sampleJSON}
	res := (&Collector{Runner: runner}).Collect(context.Background(), "win01", collector.Settings{})
	assert.False(t, collector.IsFailed(res))
	assert.NotContains(t, res, collector.KeySoftware)
	assert.NotContains(t, runner.script, "Uninstall")
	assert.Contains(t, runner.script, "ConvertTo-Json")
}

func TestCollectFailures(t *testing.T) {
	res := (&Collector{Runner: &fakeRunner{err: errors.New("401")}}).Collect(context.Background(), "win01", collector.Settings{})
	assert.True(t, collector.IsFailed(res))

	res = (&Collector{Runner: &fakeRunner{out: "garbage"}}).Collect(context.Background(), "win01", collector.Settings{})
	assert.True(t, collector.IsFailed(res))
}

func TestNewWinRMRunnerPorts(t *testing.T) {
	assert.Equal(t, defaultHTTPPort, NewWinRMRunner(config.Windows{}).cfg.Port)
	assert.Equal(t, defaultHTTPSPort, NewWinRMRunner(config.Windows{HTTPS: true}).cfg.Port)
	assert.Equal(t, 15985, NewWinRMRunner(config.Windows{Port: 15985}).cfg.Port)
}
