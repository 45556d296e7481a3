// Package hostbridge is the string-in, string-out entry point a host sandbox calls into.
//
// Hosts call either Call("command|inline data") or CallArgs("command", args). Both route
// through a dispatcher and answer with a host-parseable array literal:
// ["ok"], ["ok", <result>] or ["error", "<message>"].
package hostbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/corax/nail/internal/dispatcher"
)

// TimestampCommand is answered by the bridge itself with the current Unix time in nanoseconds.
const TimestampCommand = ":TIMESTAMP:"

// Bridge forwards host calls to a dispatcher.
type Bridge struct {
	dispatcher *dispatcher.Dispatcher
	version    string
	now        func() time.Time
}

// New returns a bridge answering version to version queries.
func New(d *dispatcher.Dispatcher, version string) *Bridge {
	return &Bridge{
		dispatcher: d,
		version:    version,
		now:        time.Now,
	}
}

// Version is what the host receives when it first loads the program.
func (b *Bridge) Version() string {
	return b.version
}

// Call handles "command" or "command|data". The full input is passed as the single argument.
func (b *Bridge) Call(input string) string {
	if input == TimestampCommand {
		return fmt.Sprintf("%d", b.now().UTC().UnixNano())
	}

	command := input
	if b.dispatcher != nil && !b.dispatcher.HasHandler(input) {
		command, _, _ = strings.Cut(input, "|")
	}
	return b.dispatch(command, []string{input})
}

// CallArgs handles a command with a list of arguments.
func (b *Bridge) CallArgs(command string, args []string) string {
	return b.dispatch(command, args)
}

func (b *Bridge) dispatch(command string, args []string) string {
	if b.dispatcher == nil || !b.dispatcher.HasHandler(command) {
		return fmt.Sprintf(`["error", %s, "no handler registered"]`, quote(command))
	}

	result, err := b.dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: b.now(),
	})
	return formatDispatchResponse(command, result, err)
}

// formatDispatchResponse formats the dispatcher result for the host.
// Strings and error messages are quoted; anything else is JSON encoded.
func formatDispatchResponse(command string, result any, err error) string {
	if err != nil {
		return fmt.Sprintf(`["error", %s]`, quote(err.Error()))
	}
	switch v := result.(type) {
	case nil:
		return `["ok"]`
	case string:
		return fmt.Sprintf(`["ok", %s]`, quote(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf(`["error", %s]`, quote(command+": "+err.Error()))
		}
		return fmt.Sprintf(`["ok", %s]`, data)
	}
}

// quote encodes s as a JSON string literal, leaving <, > and & readable.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
