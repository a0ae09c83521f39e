// Package replay feeds recorded or synthetic power samples through the
// classification pipeline and writes run artifacts: a per-sample results
// CSV and the labeled feature CSV handed to the offline training jobs.
package replay

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gridsense-data/phase.report/internal/fsutil"
	"github.com/gridsense-data/phase.report/internal/monitoring"
	"github.com/gridsense-data/phase.report/internal/power/p1samples"
)

// ReadSamples parses a sample CSV from r. The file must start with a
// "timestamp,power" header; timestamps are RFC3339 or Unix seconds
// (fractions allowed). Ordering is not checked here: the pipeline's
// ingestion gate rejects regressions so a bad row costs one sample, not
// the whole file.
func ReadSamples(r io.Reader) ([]p1samples.Sample, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read sample CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("insufficient data in sample file")
	}

	header := records[0]
	if len(header) != 2 ||
		strings.ToLower(strings.TrimSpace(header[0])) != "timestamp" ||
		strings.ToLower(strings.TrimSpace(header[1])) != "power" {
		return nil, fmt.Errorf("invalid header in sample file, expected: timestamp,power")
	}

	samples := make([]p1samples.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != 2 {
			return nil, fmt.Errorf("invalid record at line %d: expected 2 fields", i+2)
		}

		ts, err := parseTimestamp(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp at line %d: %v", i+2, err)
		}

		power, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid power at line %d: %v", i+2, err)
		}

		samples = append(samples, p1samples.Sample{Timestamp: ts, Power: power})
	}

	return samples, nil
}

// ReadSamplesFile loads a sample CSV through the given filesystem.
func ReadSamplesFile(fs fsutil.FileSystem, path string) ([]p1samples.Sample, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	samples, err := ReadSamples(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Logf("[Replay] read %d samples from %s", len(samples), path)
	return samples, nil
}

// WriteSamples writes samples in the format ReadSamples accepts.
func WriteSamples(w io.Writer, samples []p1samples.Sample) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"timestamp", "power"})
	for _, s := range samples {
		cw.Write([]string{
			s.Timestamp.Format(time.RFC3339Nano),
			fmt.Sprintf("%.6f", s.Power),
		})
	}
	cw.Flush()
	return cw.Error()
}

// parseTimestamp accepts RFC3339 or Unix seconds with optional fraction.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}

	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor Unix seconds", s)
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, fmt.Errorf("%q is not a finite Unix timestamp", s)
	}

	sec, frac := math.Modf(secs)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}
