// Package status writes human-readable program status to a named display panel.
package status

import (
	"image/color"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/corax/nail/pkg/host"
)

// Level selects the colour a message is shown in.
type Level uint8

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

var (
	DarkGreen     = color.RGBA{R: 0x00, G: 0x64, B: 0x00, A: 0xff}
	DarkGoldenrod = color.RGBA{R: 0xb8, G: 0x86, B: 0x0b, A: 0xff}
	DarkRed       = color.RGBA{R: 0x8b, G: 0x00, B: 0x00, A: 0xff}
)

// Color returns the font colour for a level.
func (l Level) Color() color.RGBA {
	switch l {
	case LevelWarn:
		return DarkGoldenrod
	case LevelError:
		return DarkRed
	default:
		return DarkGreen
	}
}

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Reporter writes to one display surface found by exact name. The lookup happens on the first
// write and is never retried, so a grid without the panel costs a single search.
type Reporter struct {
	grid    host.GridTerminal
	name    string
	now     func() time.Time
	logger  *slog.Logger
	looked  bool
	surface host.TextSurface
	last    string
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock overrides the clock used for the timestamp prefix.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithLogger mirrors every status line to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) { r.logger = logger }
}

// New returns a reporter for the panel called name.
func New(grid host.GridTerminal, name string, opts ...Option) *Reporter {
	r := &Reporter{
		grid: grid,
		name: name,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether the panel exists. It triggers the lookup.
func (r *Reporter) Available() bool {
	return r.resolve() != nil
}

// Last returns the most recent text written, without the timestamp.
func (r *Reporter) Last() string {
	return r.last
}

func (r *Reporter) Info(text string)  { r.Print(LevelInfo, text) }
func (r *Reporter) Warn(text string)  { r.Print(LevelWarn, text) }
func (r *Reporter) Error(text string) { r.Print(LevelError, text) }

// Print replaces the panel content with the text under a timestamp line, in the level's colour.
func (r *Reporter) Print(level Level, text string) {
	r.last = text
	if r.logger != nil {
		r.logger.Debug("status", "surface", r.name, "level", level.String(), "text", text)
	}

	s := r.resolve()
	if s == nil {
		return
	}
	s.WriteText(r.now().Format("[15:04:05]")+"\n"+text, false)
	s.SetFontColor(level.Color())
}

// Clear empties the panel.
func (r *Reporter) Clear() {
	r.last = ""
	if s := r.resolve(); s != nil {
		s.WriteText("", false)
	}
}

func (r *Reporter) resolve() host.TextSurface {
	if r.looked {
		return r.surface
	}
	r.looked = true
	if r.grid == nil {
		return nil
	}
	if s, ok := r.grid.BlockWithName(r.name).(host.TextSurface); ok {
		r.surface = s
	}
	return r.surface
}

// Meters formats a distance rounded to the millimetre.
func Meters(d float64) string {
	return strconv.FormatFloat(math.Round(d*1000)/1000, 'f', -1, 64) + " meter"
}
