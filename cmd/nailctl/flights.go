package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/corax/nail/internal/model"
	"github.com/corax/nail/internal/model/convert"
	"github.com/corax/nail/internal/storage/memory"
	"github.com/corax/nail/pkg/core"
	"gorm.io/gorm"
)

type flightRow struct {
	Flight core.Flight
	Ticks  int64
}

func listFlights(db *gorm.DB) ([]flightRow, error) {
	var flights []model.Flight
	if err := db.Order("id ASC").Find(&flights).Error; err != nil {
		return nil, fmt.Errorf("error getting flights: %w", err)
	}

	var counts []struct {
		FlightID uint
		Ticks    int64
	}
	err := db.Model(&model.FlightTick{}).
		Select("flight_id, count(*) AS ticks").
		Group("flight_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("error counting ticks: %w", err)
	}
	byFlight := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byFlight[c.FlightID] = c.Ticks
	}

	rows := make([]flightRow, len(flights))
	for i, f := range flights {
		rows[i] = flightRow{Flight: convert.FlightToCore(f), Ticks: byFlight[f.ID]}
	}
	return rows, nil
}

// loadFlight reads a flight and all of its records.
func loadFlight(db *gorm.DB, id uint) (memory.FlightExport, error) {
	var f model.Flight
	if err := db.Where("id = ?", id).First(&f).Error; err != nil {
		return memory.FlightExport{}, fmt.Errorf("error getting flight %d: %w", id, err)
	}

	var ticks []model.FlightTick
	if err := db.Where("flight_id = ?", id).Order("tick ASC, id ASC").Find(&ticks).Error; err != nil {
		return memory.FlightExport{}, fmt.Errorf("error getting ticks: %w", err)
	}
	var phases []model.PhaseChange
	if err := db.Where("flight_id = ?", id).Order("tick ASC, id ASC").Find(&phases).Error; err != nil {
		return memory.FlightExport{}, fmt.Errorf("error getting phase changes: %w", err)
	}
	var locks []model.TargetLock
	if err := db.Where("flight_id = ?", id).Order("time ASC, id ASC").Find(&locks).Error; err != nil {
		return memory.FlightExport{}, fmt.Errorf("error getting target locks: %w", err)
	}

	coreTicks := make([]core.FlightTick, len(ticks))
	for i, t := range ticks {
		coreTicks[i] = convert.FlightTickToCore(t)
	}
	corePhases := make([]core.PhaseChange, len(phases))
	for i, p := range phases {
		corePhases[i] = convert.PhaseChangeToCore(p)
	}
	coreLocks := make([]core.TargetLock, len(locks))
	for i, l := range locks {
		coreLocks[i] = convert.TargetLockToCore(l)
	}
	return memory.BuildExport(convert.FlightToCore(f), coreTicks, corePhases, coreLocks), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func printFlights(out io.Writer, rows []flightRow) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROGRAM\tSTART\tEND\tTICKS")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
			r.Flight.ID, r.Flight.ProgramName, formatTime(r.Flight.StartTime), formatTime(r.Flight.EndTime), r.Ticks)
	}
	_ = w.Flush()
}

func printSummary(out io.Writer, s core.FlightSummary) {
	fmt.Fprintf(out, "Flight %d (%s)\n", s.FlightID, s.ProgramName)
	fmt.Fprintf(out, "  start:       %s\n", formatTime(s.StartTime))
	fmt.Fprintf(out, "  end:         %s\n", formatTime(s.EndTime))
	fmt.Fprintf(out, "  duration:    %.1fs\n", s.Duration)
	fmt.Fprintf(out, "  ticks:       %d\n", s.Ticks)
	fmt.Fprintf(out, "  locks:       %d\n", s.TargetLocks)
	fmt.Fprintf(out, "  final phase: %s\n", s.FinalPhase)
	if s.ClosestApproach >= 0 {
		fmt.Fprintf(out, "  closest:     %.1f m\n", s.ClosestApproach)
	}
	for _, p := range s.Phases {
		fmt.Fprintf(out, "  tick %-6d %s -> %s at %s\n", p.Tick, p.From, p.To, p.Position)
	}
}
