// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/corax/nail/pkg/core"
)

// FlightExport is the root JSON structure of an exported flight
type FlightExport struct {
	Flight      core.Flight        `json:"flight"`
	Summary     core.FlightSummary `json:"summary"`
	Ticks       []core.FlightTick  `json:"ticks"`
	Phases      []core.PhaseChange `json:"phases"`
	TargetLocks []core.TargetLock  `json:"targetLocks"`
}

// BuildExport assembles the export document. Nil record slices become empty arrays.
func BuildExport(f core.Flight, ticks []core.FlightTick, phases []core.PhaseChange, locks []core.TargetLock) FlightExport {
	if ticks == nil {
		ticks = []core.FlightTick{}
	}
	if phases == nil {
		phases = []core.PhaseChange{}
	}
	if locks == nil {
		locks = []core.TargetLock{}
	}
	return FlightExport{
		Flight:      f,
		Summary:     core.Summarize(f, ticks, phases, locks),
		Ticks:       ticks,
		Phases:      phases,
		TargetLocks: locks,
	}
}

// FileName builds the export file name for a flight
func FileName(f core.Flight, compress bool) string {
	program := strings.ReplaceAll(f.ProgramName, " ", "_")
	program = strings.ReplaceAll(program, ":", "_")
	if program == "" {
		program = "flight"
	}
	timestamp := f.StartTime.Format("20060102_150405")

	if compress {
		return fmt.Sprintf("%s_%d_%s.json.gz", program, f.ID, timestamp)
	}
	return fmt.Sprintf("%s_%d_%s.json", program, f.ID, timestamp)
}

// exportJSON writes the flight data to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	if b.flight.EndTime.IsZero() {
		b.flight.EndTime = time.Now().UTC()
	}
	export := BuildExport(*b.flight, b.ticks, b.phases, b.locks)

	outputPath := filepath.Join(b.cfg.OutputDir, FileName(*b.flight, b.cfg.CompressOutput))
	if err := WriteExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastSummary = export.Summary
	return nil
}

// WriteExport writes export to path, creating the directory if needed
func WriteExport(path string, export FlightExport, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if !compress {
		return json.NewEncoder(f).Encode(export)
	}

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(export); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// ReadExport loads an exported flight. Files ending in .gz are decompressed.
func ReadExport(path string) (FlightExport, error) {
	var export FlightExport

	f, err := os.Open(path)
	if err != nil {
		return export, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return export, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return export, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return export, nil
}
