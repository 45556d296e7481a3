package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/corax/nail/internal/config"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachable() config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:  true,
		Host:     "127.0.0.1",
		Port:     "1",
		Protocol: "http",
		Org:      "nail-telemetry",
		Bucket:   "flights",
	}
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, "", slog.New(slog.DiscardHandler))

	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.IsValid())
	assert.NoError(t, m.Close())
}

func TestConnect_UnreachableUsesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(unreachable(), path, slog.New(slog.DiscardHandler))

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid())

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p1 := influxdb2_write.NewPoint("flight_tick", map[string]string{"phase": "guiding"}, map[string]interface{}{"distance": 12.5}, ts)
	p2 := influxdb2_write.NewPoint("flight_tick", map[string]string{"phase": "guiding"}, map[string]interface{}{"distance": 10.0}, ts.Add(time.Second))
	require.NoError(t, m.WritePoint(p1))
	require.NoError(t, m.WritePoint(p2))
	require.NoError(t, m.Close())

	lines := readBackup(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "flight_tick,phase=guiding distance=12.5 1772366400000000000", lines[0])
	assert.Contains(t, lines[1], "distance=10")
}

func TestConnect_UnreachableWithoutBackupPath(t *testing.T) {
	m := NewManager(unreachable(), "", nil)

	assert.Error(t, m.Connect(context.Background()))
	assert.NoError(t, m.Close())
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(unreachable(), "", nil)

	err := m.WritePoint(influxdb2_write.NewPoint("x", nil, map[string]interface{}{"v": 1}, time.Now()))
	assert.Error(t, err)
}
