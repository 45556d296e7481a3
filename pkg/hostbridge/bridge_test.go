package hostbridge

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/corax/nail/internal/dispatcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newBridge(t *testing.T) (*Bridge, *dispatcher.Dispatcher) {
	t.Helper()
	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	return New(d, "1.2.3"), d
}

func TestFormatDispatchResponse(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		result   any
		err      error
		expected string
	}{
		{
			name:     "success with string array (VERSION)",
			command:  ":VERSION:",
			result:   []string{"0.0.1", "2026-02-01"},
			expected: `["ok", ["0.0.1","2026-02-01"]]`,
		},
		{
			name:     "success with simple string",
			command:  ":MISSILE:TICK:",
			result:   "guiding",
			expected: `["ok", "guiding"]`,
		},
		{
			name:     "success with nil result",
			command:  ":SOME:CMD:",
			expected: `["ok"]`,
		},
		{
			name:     "error response",
			command:  ":RECORD:TICK:",
			err:      errors.New("queue full: :RECORD:TICK:"),
			expected: `["error", "queue full: :RECORD:TICK:"]`,
		},
		{
			name:     "success with map",
			command:  ":FLIGHT:STATUS:",
			result:   map[string]int{"ticks": 42},
			expected: `["ok", {"ticks":42}]`,
		},
		{
			name:     "unencodable result",
			command:  ":BAD:",
			result:   make(chan int),
			expected: `["error", ":BAD:: json: unsupported type: chan int"]`,
		},
		{
			name:     "error text with quotes",
			command:  ":MISSILE:TICK:",
			err:      errors.New(`cannot parse target info: '"1,2"'`),
			expected: `["error", "cannot parse target info: '\"1,2\"'"]`,
		},
		{
			name:     "string with newline and brackets",
			command:  ":MISSILE:TICK:",
			result:   "[20:15:00]\n<armed> & \"ready\"",
			expected: `["ok", "[20:15:00]\n<armed> & \"ready\""]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatDispatchResponse(tt.command, tt.result, tt.err)
			assert.Equal(t, tt.expected, got)
			assert.True(t, json.Valid([]byte(got)), "response must stay parseable: %s", got)
		})
	}
}

func TestCall_SplitsInlineData(t *testing.T) {
	b, d := newBridge(t)

	var gotArgs []string
	d.Register(":MISSILE:TICK:", func(e dispatcher.Event) (any, error) {
		gotArgs = e.Args
		return "awaiting_target", nil
	})

	got := b.Call(":MISSILE:TICK:|launch")

	assert.Equal(t, `["ok", "awaiting_target"]`, got)
	assert.Equal(t, []string{":MISSILE:TICK:|launch"}, gotArgs)
}

func TestCall_ExactCommandWins(t *testing.T) {
	b, d := newBridge(t)

	d.Register(":A:|B", func(e dispatcher.Event) (any, error) { return "exact", nil })
	d.Register(":A:", func(e dispatcher.Event) (any, error) { return "prefix", nil })

	assert.Equal(t, `["ok", "exact"]`, b.Call(":A:|B"))
	assert.Equal(t, `["ok", "prefix"]`, b.Call(":A:|C"))
}

func TestCall_NoHandler(t *testing.T) {
	b, _ := newBridge(t)
	assert.Equal(t, `["error", ":NOPE:", "no handler registered"]`, b.Call(":NOPE:|x"))

	got := b.CallArgs(`:NO"PE:`, nil)
	assert.Equal(t, `["error", ":NO\"PE:", "no handler registered"]`, got)
	assert.True(t, json.Valid([]byte(got)))

	var nilBridge = New(nil, "v")
	assert.Equal(t, `["error", ":X:", "no handler registered"]`, nilBridge.CallArgs(":X:", nil))
}

func TestCall_Timestamp(t *testing.T) {
	b, _ := newBridge(t)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	b.now = func() time.Time { return fixed }

	got := b.Call(TimestampCommand)
	assert.Equal(t, strconv.FormatInt(fixed.UnixNano(), 10), got)
}

func TestCallArgs(t *testing.T) {
	b, d := newBridge(t)

	d.Register(":LOG:", func(e dispatcher.Event) (any, error) {
		return strings.Join(e.Args, ","), nil
	})

	assert.Equal(t, `["ok", "a,b"]`, b.CallArgs(":LOG:", []string{"a", "b"}))
	assert.Equal(t, "1.2.3", b.Version())
}
