package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger records every log line.
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) log(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, keysAndValues))
}

func (l *testLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv) }
func (l *testLogger) Info(msg string, kv ...any)  { l.log("INFO", msg, kv) }
func (l *testLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv) }

func (l *testLogger) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

// gate is a buffered handler that parks on every event until released.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 64), release: make(chan struct{})}
}

func (g *gate) handler(Event) (any, error) {
	g.started <- struct{}{}
	<-g.release
	return nil, nil
}

type tickRecord struct{ Tick int }

func TestDispatch_Sync(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register(":MISSILE:TICK:", func(e Event) (any, error) {
		got = e
		return "guiding", nil
	})

	result, err := d.Dispatch(Event{Command: ":MISSILE:TICK:", Args: []string{"", "Update1"}, Payload: &tickRecord{Tick: 4}})
	require.NoError(t, err)
	assert.Equal(t, "guiding", result)
	assert.Equal(t, []string{"", "Update1"}, got.Args)
	assert.Equal(t, &tickRecord{Tick: 4}, got.Payload)

	assert.True(t, d.HasHandler(":MISSILE:TICK:"))
	assert.False(t, d.HasHandler(":AIMING:TICK:"))

	_, err = d.Dispatch(Event{Command: ":AIMING:TICK:"})
	assert.EqualError(t, err, "unknown command: :AIMING:TICK:")
}

func TestBuffered_DeliversPayloadsInOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var mu sync.Mutex
	var ticks []int
	d.Register(":RECORD:TICK:", func(e Event) (any, error) {
		rec, ok := e.Payload.(*tickRecord)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T", e.Payload)
		}
		mu.Lock()
		ticks = append(ticks, rec.Tick)
		mu.Unlock()
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 50; i++ {
		result, err := d.Dispatch(Event{Command: ":RECORD:TICK:", Payload: &tickRecord{Tick: i}})
		require.NoError(t, err)
		require.Equal(t, "queued", result)
	}
	d.Close()

	require.Len(t, ticks, 50)
	for i, tick := range ticks {
		assert.Equal(t, i, tick)
	}
}

func TestBuffered_FullQueueDropsWithoutWaiting(t *testing.T) {
	d, _ := newTestDispatcher(t)
	g := newGate()
	d.Register(":RECORD:PHASE:", g.handler, Buffered(2))

	_, err := d.Dispatch(Event{Command: ":RECORD:PHASE:"})
	require.NoError(t, err)
	<-g.started // the worker holds the first event

	for i := 0; i < 2; i++ {
		_, err := d.Dispatch(Event{Command: ":RECORD:PHASE:"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, d.QueueLen(":RECORD:PHASE:"))

	done := make(chan error, 1)
	go func() {
		_, err := d.Dispatch(Event{Command: ":RECORD:PHASE:"})
		done <- err
	}()
	select {
	case err := <-done:
		assert.EqualError(t, err, "queue full: :RECORD:PHASE:")
	case <-time.After(time.Second):
		t.Fatal("dispatch to a full queue waited")
	}

	close(g.release)
	d.Close()
	assert.Zero(t, d.QueueLen(":RECORD:PHASE:"))
	assert.Len(t, g.started, 2) // the two queued events ran during Close
}

func TestClose_DrainsEveryQueue(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var mu sync.Mutex
	counts := map[string]int{}
	for _, cmd := range []string{":RECORD:TICK:", ":RECORD:LOCK:"} {
		d.Register(cmd, func(e Event) (any, error) {
			time.Sleep(time.Millisecond)
			mu.Lock()
			counts[e.Command]++
			mu.Unlock()
			return nil, nil
		}, Buffered(50))
	}
	d.Register(":VERSION:", func(Event) (any, error) { return "0.0.1", nil })

	for i := 0; i < 20; i++ {
		_, err := d.Dispatch(Event{Command: ":RECORD:TICK:"})
		require.NoError(t, err)
		_, err = d.Dispatch(Event{Command: ":RECORD:LOCK:"})
		require.NoError(t, err)
	}

	d.Close()
	assert.Equal(t, map[string]int{":RECORD:TICK:": 20, ":RECORD:LOCK:": 20}, counts)

	_, err := d.Dispatch(Event{Command: ":RECORD:TICK:"})
	assert.True(t, errors.Is(err, ErrClosed))

	// synchronous commands keep answering after Close
	result, err := d.Dispatch(Event{Command: ":VERSION:"})
	require.NoError(t, err)
	assert.Equal(t, "0.0.1", result)

	assert.NotPanics(t, d.Close)
}

func TestBuffered_HandlerErrorIsLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":RECORD:TICK:", func(Event) (any, error) {
		return nil, errors.New("disk full")
	}, Buffered(1))

	result, err := d.Dispatch(Event{Command: ":RECORD:TICK:"})
	require.NoError(t, err)
	assert.Equal(t, "queued", result)
	d.Close()

	lines := logger.lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "ERROR: buffered event failed"), lines[0])
	assert.Contains(t, lines[0], "disk full")
}

func TestLogged(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantMsg   string
	}{
		{"success", nil, "DEBUG", "event complete"},
		{"failure", errors.New("backend gone"), "ERROR", "event failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, logger := newTestDispatcher(t)
			d.Register(":RECORD:PHASE:", func(Event) (any, error) { return "ok", tt.err }, Logged())

			_, err := d.Dispatch(Event{Command: ":RECORD:PHASE:", Payload: &tickRecord{}})
			assert.Equal(t, tt.err, err)

			lines := logger.lines()
			require.Len(t, lines, 2)
			assert.Contains(t, lines[0], "DEBUG: handling event")
			assert.Contains(t, lines[0], "payload true")
			assert.True(t, strings.HasPrefix(lines[1], tt.wantLevel+": "+tt.wantMsg), lines[1])
		})
	}
}

func TestBufferedAndLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	processed := make(chan struct{}, 1)
	d.Register(":RECORD:PHASE:", func(Event) (any, error) {
		processed <- struct{}{}
		return nil, nil
	}, Buffered(4), Logged())

	result, err := d.Dispatch(Event{Command: ":RECORD:PHASE:"})
	require.NoError(t, err)
	assert.Equal(t, "queued", result)

	d.Close()
	assert.Len(t, processed, 1)
	assert.Len(t, logger.lines(), 2) // logging wraps the enqueue, not the handler
}
