package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
cells:
  - id: player.name
    type: string
queues:
  - id: pending
    length: 8
    type: integer
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, BackendMemory, cfg.Storage.Backend)
	require.Equal(t, "player.name", cfg.Cells[0].Key)
	require.Equal(t, "pending", cfg.Queues[0].Prefix)
}

func TestLoadFullDocument(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: file
  path: /tmp/settings.yaml
cells:
  - id: volume
    key: audio.volume
    type: double
    default: 0.8
queues:
  - id: replays
    prefix: replay.queue
    length: 16
    type: string
logging:
  level: debug
  format: text
telemetry:
  enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, BackendFile, cfg.Storage.Backend)
	require.Equal(t, "/tmp/settings.yaml", cfg.Storage.Path)
	require.Equal(t, "audio.volume", cfg.Cells[0].Key)
	require.Equal(t, ValueKindDouble, cfg.Cells[0].Type)
	require.Equal(t, "replay.queue", cfg.Queues[0].Prefix)
	require.Equal(t, 16, cfg.Queues[0].Length)
	require.True(t, cfg.Telemetry.Enabled)
	require.Equal(t, "debug", cfg.Logging.Level)

	def, err := cfg.Cells[0].DefaultValue()
	require.NoError(t, err)
	require.Equal(t, 0.8, def)
}

func TestValidateRejectsBrokenDocuments(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "duplicate cell id",
			content: `
cells:
  - id: a
    type: string
  - id: a
    type: string
`,
		},
		{
			name: "unknown cell kind",
			content: `
cells:
  - id: a
    type: quaternion
`,
		},
		{
			name: "non-positive queue length",
			content: `
queues:
  - id: q
    length: 0
    type: string
`,
		},
		{
			name: "duplicate queue prefix",
			content: `
queues:
  - id: a
    prefix: shared
    length: 2
    type: string
  - id: b
    prefix: shared
    length: 2
    type: string
`,
		},
		{
			name: "duplicate cell key",
			content: `
cells:
  - id: a
    key: shared.key
    type: string
  - id: b
    key: shared.key
    type: integer
`,
		},
		{
			name: "queue prefix equals cell key",
			content: `
cells:
  - id: a
    key: jobs
    type: string
queues:
  - id: jobs
    length: 2
    type: string
`,
		},
		{
			name: "cell key inside queue namespace",
			content: `
cells:
  - id: a
    key: jobs:insertIndex
    type: integer
queues:
  - id: jobs
    length: 2
    type: string
`,
		},
		{
			name: "file backend without path",
			content: `
storage:
  backend: file
`,
		},
		{
			name: "unknown backend",
			content: `
storage:
  backend: cloud
`,
		},
		{
			name: "default incompatible with kind",
			content: `
cells:
  - id: a
    type: integer
    default: not-a-number
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestParseValueKind(t *testing.T) {
	kind, err := ParseValueKind(" Integer ")
	require.NoError(t, err)
	require.Equal(t, ValueKindInteger, kind)

	_, err = ParseValueKind("vector")
	require.Error(t, err)
}

func TestCellDefaultValuePerKind(t *testing.T) {
	path := writeConfig(t, `
cells:
  - id: s
    type: string
    default: hello
  - id: i
    type: integer
    default: 12
  - id: f
    type: float
    default: 1.5
  - id: b
    type: bool
    default: true
  - id: d
    type: decimal
    default: "19.99"
  - id: unset
    type: integer
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	byID := make(map[string]CellConfig)
	for _, cc := range cfg.Cells {
		byID[cc.ID] = cc
	}

	v, err := byID["s"].DefaultValue()
	require.NoError(t, err)
	require.Equal(t, "hello", v)

	v, err = byID["i"].DefaultValue()
	require.NoError(t, err)
	require.Equal(t, int64(12), v)

	v, err = byID["f"].DefaultValue()
	require.NoError(t, err)
	require.Equal(t, 1.5, v)

	v, err = byID["b"].DefaultValue()
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = byID["d"].DefaultValue()
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("19.99").Equal(v.(decimal.Decimal)))

	v, err = byID["unset"].DefaultValue()
	require.NoError(t, err)
	require.Equal(t, int64(0), v)
}
