package main

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/prefstore/config"
	"github.com/timzifer/prefstore/service"
)

func TestPrintStatus(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendMemory},
		Cells: []config.CellConfig{
			{ID: "player.name", Key: "player.name", Type: config.ValueKindString},
		},
		Queues: []config.QueueConfig{
			{ID: "pending", Prefix: "pending", Length: 3, Type: config.ValueKindInteger},
		},
	}
	svc, err := service.New(cfg, zerolog.Nop(), nil)
	require.NoError(t, err)

	handle, err := svc.Cell("player.name")
	require.NoError(t, err)
	require.NoError(t, handle.Set("one"))
	q, err := svc.Queue("pending")
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(7))

	var buf bytes.Buffer
	printStatus(&buf, svc)
	out := buf.String()

	require.Contains(t, out, "Backend: memory")
	require.Contains(t, out, "player.name (string) key=player.name set")
	require.Contains(t, out, "pending (integer) prefix=pending 1/3")
}
