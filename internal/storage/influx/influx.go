// Package influxstorage implements the storage.Backend interface on InfluxDB.
// Every tick, phase change and lock becomes one point in the configured bucket.
package influxstorage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/corax/nail/internal/influx"
	"github.com/corax/nail/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementFlight      = "flight"
	MeasurementFlightTick  = "flight_tick"
	MeasurementPhaseChange = "phase_change"
	MeasurementTargetLock  = "target_lock"
)

// PointWriter is the part of influx.Manager the backend needs.
type PointWriter interface {
	Connect(ctx context.Context) error
	WritePoint(point *influxdb2_write.Point) error
	Close() error
}

var _ PointWriter = (*influx.Manager)(nil)

// Backend writes flight telemetry as InfluxDB points.
type Backend struct {
	writer    PointWriter
	flight    *core.Flight
	idCounter uint
}

// New creates an InfluxDB backend on top of a connection manager.
func New(writer PointWriter) *Backend {
	return &Backend{writer: writer}
}

// Init connects to the server or opens the backup file.
func (b *Backend) Init() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.writer.Connect(ctx)
}

// Close flushes and releases the connection.
func (b *Backend) Close() error {
	return b.writer.Close()
}

// StartFlight assigns a flight ID and writes the flight start marker.
func (b *Backend) StartFlight(f *core.Flight) error {
	b.idCounter++
	f.ID = b.idCounter
	b.flight = f
	return b.writer.WritePoint(FlightPoint(*f, "start", f.StartTime))
}

// EndFlight writes the flight end marker.
func (b *Backend) EndFlight() error {
	if b.flight == nil {
		return fmt.Errorf("no flight started")
	}
	if b.flight.EndTime.IsZero() {
		b.flight.EndTime = time.Now().UTC()
	}
	return b.writer.WritePoint(FlightPoint(*b.flight, "end", b.flight.EndTime))
}

// RecordTick writes a flight_tick point.
func (b *Backend) RecordTick(t *core.FlightTick) error {
	return b.writer.WritePoint(TickPoint(b.program(), *t))
}

// RecordPhaseChange writes a phase_change point.
func (b *Backend) RecordPhaseChange(p *core.PhaseChange) error {
	return b.writer.WritePoint(PhasePoint(b.program(), *p))
}

// RecordTargetLock writes a target_lock point.
func (b *Backend) RecordTargetLock(l *core.TargetLock) error {
	return b.writer.WritePoint(LockPoint(b.program(), *l))
}

func (b *Backend) program() string {
	if b.flight == nil {
		return ""
	}
	return b.flight.ProgramName
}

func flightTag(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// FlightPoint marks the start or end of a flight.
func FlightPoint(f core.Flight, event string, ts time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementFlight,
		map[string]string{
			"flight_id": flightTag(f.ID),
			"program":   f.ProgramName,
		},
		map[string]interface{}{
			"event": event,
		},
		ts,
	)
}

// TickPoint converts a flight tick to a point.
func TickPoint(program string, t core.FlightTick) *influxdb2_write.Point {
	fields := map[string]interface{}{
		"tick":          t.Tick,
		"x":             t.Position.X,
		"y":             t.Position.Y,
		"z":             t.Position.Z,
		"traveled":      t.Traveled,
		"bearing_error": t.BearingError,
		"yaw":           t.Yaw,
		"pitch":         t.Pitch,
		"roll":          t.Roll,
		"locked":        t.Locked,
		"thrust":        t.Thrust,
	}
	if t.HasTarget {
		fields["distance"] = t.Distance
		fields["target_x"] = t.Target.X
		fields["target_y"] = t.Target.Y
		fields["target_z"] = t.Target.Z
	}
	if t.Status != "" {
		fields["status"] = t.Status
	}
	return influxdb2_write.NewPoint(
		MeasurementFlightTick,
		map[string]string{
			"flight_id": flightTag(t.FlightID),
			"program":   program,
			"phase":     t.Phase.String(),
		},
		fields,
		t.Time,
	)
}

// PhasePoint converts a phase change to a point.
func PhasePoint(program string, p core.PhaseChange) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementPhaseChange,
		map[string]string{
			"flight_id": flightTag(p.FlightID),
			"program":   program,
			"from":      p.From.String(),
			"to":        p.To.String(),
		},
		map[string]interface{}{
			"tick": p.Tick,
			"x":    p.Position.X,
			"y":    p.Position.Y,
			"z":    p.Position.Z,
		},
		p.Time,
	)
}

// LockPoint converts a target lock to a point.
func LockPoint(program string, l core.TargetLock) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementTargetLock,
		map[string]string{
			"flight_id":    flightTag(l.FlightID),
			"program":      program,
			"type":         l.Type,
			"relationship": l.Relationship,
		},
		map[string]interface{}{
			"name":     l.Name,
			"distance": l.Distance,
			"x":        l.Position.X,
			"y":        l.Position.Y,
			"z":        l.Position.Z,
		},
		l.Time,
	)
}
