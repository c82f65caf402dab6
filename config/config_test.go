package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spektr-org/quanta/engine"
)

const reportYAML = `
rename_defaults: false
fill_value: 0
inputs:
  - key: out
    quantity: data/out.csv
  - key: cat_tec
    table: data/cat_tec.csv
steps:
  - key: out:category
    op: broadcast_map
    inputs: [out, cat_tec]
  - key: total
    op: aggregate
    inputs: [out:category]
    aggregation: sum
server:
  addr: ":9090"
logging:
  level: debug
`

func writeReport(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	files := map[string]string{
		"report.yaml":      reportYAML,
		"data/out.csv":     "technology,value\ncoal,5\ngas,3\nwind,2\n",
		"data/cat_tec.csv": "technology,category\ncoal,fossil\ngas,fossil\nwind,renewable\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return filepath.Join(dir, "report.yaml")
}

func TestLoadAndBuildReporter(t *testing.T) {
	cfg, err := Load(writeReport(t))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Concurrency, "unset fields keep their defaults")
	assert.Empty(t, cfg.Renames())

	r, err := cfg.NewReporter(zap.NewNop())
	require.NoError(t, err)

	q, err := r.Get(context.Background(), "out:category")
	require.NoError(t, err)
	v, ok := q.At("fossil")
	require.True(t, ok)
	assert.Equal(t, 8.0, v)

	total, err := r.Get(context.Background(), "total")
	require.NoError(t, err)
	v, _ = total.At()
	assert.Equal(t, 10.0, v)
}

func TestDefaultRenamesBroadcast(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"report.yaml": `
inputs:
  - {key: out, quantity: out.csv}
  - {key: cat_tec, table: cat.csv}
steps:
  - {key: "out:category", op: broadcast_map, inputs: [out, cat_tec], rename: {category: technology}}
`,
		"out.csv": "technology,value\ncoal,5\ngas,3\nwind,2\n",
		"cat.csv": "technology,category\ncoal,fossil\ngas,fossil\nwind,renewable\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	cfg, err := Load(filepath.Join(dir, "report.yaml"))
	require.NoError(t, err)
	r, err := cfg.NewReporter(zap.NewNop())
	require.NoError(t, err)

	q, err := r.Get(context.Background(), "out:category")
	require.NoError(t, err)

	assert.Equal(t, []string{"t"}, q.Dims())
	assert.Equal(t, 2, q.Len())
	v, ok := q.At("fossil")
	require.True(t, ok)
	assert.Equal(t, 8.0, v)
	v, ok = q.At("renewable")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUANTA_ADDR", "127.0.0.1:7000")
	cfg, err := Load(writeReport(t))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "duplicate key",
			cfg: Config{Inputs: []Input{
				{Key: "a", Quantity: "a.csv"},
				{Key: "a", Table: "a.csv"},
			}},
			want: `key "a" defined twice`,
		},
		{
			name: "quantity and table",
			cfg:  Config{Inputs: []Input{{Key: "a", Quantity: "a.csv", Table: "b.csv"}}},
			want: "exactly one",
		},
		{
			name: "unknown input",
			cfg:  Config{Steps: []engine.Step{{Key: "s", Op: "sum", Inputs: []string{"ghost"}}}},
			want: `unknown input "ghost"`,
		},
		{
			name: "bad op",
			cfg:  Config{Steps: []engine.Step{{Key: "s", Op: "pivot", Inputs: []string{"a"}}}},
			want: "unknown op",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestRenames(t *testing.T) {
	cfg := Default()
	cfg.RenameDims = map[string]string{"sector": "s"}
	lookup := cfg.Renames()
	assert.Equal(t, "t", lookup.Canonical("technology"))
	assert.Equal(t, "s", lookup.Canonical("sector"))
}

func TestNewLogger(t *testing.T) {
	for _, l := range []LoggingConfig{{}, {Level: "warn", Format: "json"}} {
		logger, err := l.NewLogger(false)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}

	logger, err := LoggingConfig{Level: "error"}.NewLogger(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = LoggingConfig{Level: "loud"}.NewLogger(false)
	assert.Error(t, err)
	_, err = LoggingConfig{Format: "xml"}.NewLogger(false)
	assert.Error(t, err)
}
