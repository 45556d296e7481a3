package postgres

import (
	"log/slog"
	"testing"
	"time"

	"github.com/corax/nail/internal/config"
	"github.com/corax/nail/internal/database"
	"github.com/corax/nail/internal/model"
	"github.com/corax/nail/internal/storage"
	"github.com/corax/nail/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestInit_Unreachable(t *testing.T) {
	b := New(config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "nail",
		Password: "nail",
		Database: "nail",
	}, slog.New(slog.DiscardHandler))

	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestNewWithDB_Records(t *testing.T) {
	db, err := database.GetSqliteDB("")
	require.NoError(t, err)

	b := NewWithDB(db, slog.New(slog.DiscardHandler))
	require.NoError(t, b.Init())

	f := &core.Flight{ProgramName: "missile", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartFlight(f))
	require.NoError(t, b.RecordTick(&core.FlightTick{Tick: 1, Phase: core.PhaseGuiding}))
	require.NoError(t, b.EndFlight())
	require.NoError(t, b.Close())

	var ticks int64
	require.NoError(t, db.Model(&model.FlightTick{}).Where("flight_id = ?", f.ID).Count(&ticks).Error)
	assert.Equal(t, int64(1), ticks)
}
