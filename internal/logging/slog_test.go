package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// captureStdout points the console sink at a pipe. The returned function restores it and
// returns what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = orig
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}

func TestSetup_Sinks(t *testing.T) {
	t.Run("session file only", func(t *testing.T) {
		restore := captureStdout(t)

		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("missile armed")

		assert.Empty(t, restore())
		assert.Contains(t, file.String(), "missile armed")
		assert.Contains(t, file.String(), "Logging initialized")
	})

	t.Run("console without file", func(t *testing.T) {
		restore := captureStdout(t)

		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("turret online")

		assert.Contains(t, restore(), "turret online")
	})

	t.Run("setup again moves to the new file", func(t *testing.T) {
		var first, second bytes.Buffer
		m := NewSlogManager()

		m.Setup(&first, "info", nil)
		m.Logger().Info("before config")
		m.Setup(&second, "info", nil)
		m.Logger().Info("after config")

		assert.Contains(t, first.String(), "before config")
		assert.NotContains(t, first.String(), "after config")
		assert.Contains(t, second.String(), "after config")
	})

	t.Run("otel provider", func(t *testing.T) {
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", sdklog.NewLoggerProvider())
		m.Logger().Info("exported too")

		assert.Contains(t, file.String(), "exported too")
		assert.NoError(t, m.Flush(context.Background()))
	})
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"ERROR", false, false},
		{"verbose", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)

			m.Logger().Debug("steering computed")
			m.Logger().Info("phase changed")

			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "steering computed"))
			assert.Equal(t, tt.wantInfo, strings.Contains(buf.String(), "phase changed"))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"trace": slog.LevelInfo,
	}

	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), input)
	}
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestWriteLog(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "level=DEBUG"},
		{"info", "level=INFO"},
		{"warn", "level=WARN"},
		{"error", "level=ERROR"},
		{"loud", "level=INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, "debug", nil)

			m.WriteLog("turretScript", "rotor stalled", tt.level)

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			last := lines[len(lines)-1]
			assert.Contains(t, last, tt.want)
			assert.Contains(t, last, `msg="rotor stalled"`)
			assert.Contains(t, last, "source=turretScript")
		})
	}

	t.Run("before setup", func(t *testing.T) {
		assert.NotPanics(t, func() { NewSlogManager().WriteLog("pb", "ignored", "info") })
	})
}

func TestSetup_ContextProvider(t *testing.T) {
	phase := "awaiting_target"
	var buf bytes.Buffer
	m := NewSlogManager()
	m.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{slog.String("phase", phase), slog.Uint64("flight", 7)}
	})
	m.Setup(&buf, "info", nil)

	m.Logger().Info("first")
	phase = "guiding"
	m.Logger().Info("second")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3) // includes "Logging initialized"
	assert.Contains(t, string(lines[1]), "phase=awaiting_target")
	assert.Contains(t, string(lines[1]), "flight=7")
	assert.Contains(t, string(lines[2]), "phase=guiding")
}

// failingHandler accepts every record and fails to write it.
type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestMultiHandler(t *testing.T) {
	newText := func(buf *bytes.Buffer, lvl slog.Level) slog.Handler {
		return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: lvl})
	}

	t.Run("fans out past failures and nils", func(t *testing.T) {
		var file, otel bytes.Buffer
		multi := NewMultiHandler(nil, failingHandler{}, newText(&file, slog.LevelInfo), nil, newText(&otel, slog.LevelInfo))
		require.Len(t, multi.handlers, 3)

		slog.New(multi).Info("launch detected")

		assert.Contains(t, file.String(), "launch detected")
		assert.Contains(t, otel.String(), "launch detected")
	})

	t.Run("enabled when any handler is", func(t *testing.T) {
		var a, b bytes.Buffer
		infoOnly := NewMultiHandler(newText(&a, slog.LevelInfo))
		assert.False(t, infoOnly.Enabled(context.Background(), slog.LevelDebug))
		assert.True(t, infoOnly.Enabled(context.Background(), slog.LevelInfo))

		both := NewMultiHandler(newText(&a, slog.LevelInfo), newText(&b, slog.LevelDebug))
		assert.True(t, both.Enabled(context.Background(), slog.LevelDebug))

		assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelError))
	})

	t.Run("attrs and groups reach every handler", func(t *testing.T) {
		var a, b bytes.Buffer
		multi := NewMultiHandler(newText(&a, slog.LevelInfo), newText(&b, slog.LevelInfo))

		slog.New(multi).With("program", "aiming").WithGroup("target").Info("locked", "distance", 500)

		for _, out := range []string{a.String(), b.String()} {
			assert.Contains(t, out, "program=aiming")
			assert.Contains(t, out, "target.distance=500")
		}
		assert.Same(t, multi, multi.WithGroup(""))
	})
}

func TestContextHandler(t *testing.T) {
	t.Run("keeps provider through attrs and groups", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
			return []slog.Attr{slog.String("program", "missile")}
		})

		slog.New(h).With("tick", 3).WithGroup("g").Info("msg")

		assert.Contains(t, buf.String(), "tick=3")
		assert.Contains(t, buf.String(), "g.program=missile")
	})

	t.Run("nil provider", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewContextHandler(slog.NewTextHandler(&buf, nil), nil)

		slog.New(h).Info("plain")

		assert.Contains(t, buf.String(), "plain")
		assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
		assert.Same(t, h, h.WithGroup(""))
	})
}
