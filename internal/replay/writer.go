package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p3features"
	"github.com/gridsense-data/phase.report/internal/power/pipeline"
)

// ResultsWriter streams per-sample pipeline results as CSV. Stage columns
// are empty for samples the stage had not warmed up on.
type ResultsWriter struct {
	w *csv.Writer
}

// NewResultsWriter wraps the given writer for results output.
func NewResultsWriter(w io.Writer) *ResultsWriter {
	return &ResultsWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the results column header.
func (rw *ResultsWriter) WriteHeader() {
	rw.w.Write([]string{
		"timestamp", "raw", "smoothed",
		"provisional", "confirmed", "dwell_s",
		"model_phase", "confidence",
	})
}

// WriteResult writes one per-sample row.
func (rw *ResultsWriter) WriteResult(res pipeline.Result) {
	row := []string{
		res.Timestamp.Format(time.RFC3339Nano),
		fmt.Sprintf("%.6f", res.Raw),
		"", "", "", "", "", "",
	}

	if res.HasSmoothed {
		row[2] = fmt.Sprintf("%.6f", res.Smoothed)
	}
	if res.HasConfirmed {
		row[3] = string(res.Provisional.Phase)
		row[4] = string(res.Confirmed.Phase)
		row[5] = fmt.Sprintf("%.0f", res.Confirmed.Dwell.Seconds())
	}
	if res.HasPrediction {
		row[6] = string(res.Prediction.Phase)
		row[7] = fmt.Sprintf("%.6f", res.Prediction.Confidence)
	}

	rw.w.Write(row)
}

// Flush flushes buffered rows and reports any write error.
func (rw *ResultsWriter) Flush() error {
	rw.w.Flush()
	return rw.w.Error()
}

// FeatureWriter writes confirmed-labeled feature vectors in training
// layout: timestamp, the canonical feature columns, then the label. The
// offline fitting jobs consume this file as-is.
type FeatureWriter struct {
	w *csv.Writer
}

// NewFeatureWriter wraps the given writer for labeled-feature output.
func NewFeatureWriter(w io.Writer) *FeatureWriter {
	return &FeatureWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the canonical feature header.
func (fw *FeatureWriter) WriteHeader() {
	header := append([]string{"timestamp"}, p3features.Columns()...)
	header = append(header, "label")
	fw.w.Write(header)
}

// Write appends one labeled feature row. The signature matches
// pipeline.FeatureExportFunc so the writer can hook straight into the
// pipeline config.
func (fw *FeatureWriter) Write(ts time.Time, phase p1samples.Phase, fv p3features.FeatureVector) {
	values := fv.Values()
	row := make([]string, 0, len(values)+2)
	row = append(row, ts.Format(time.RFC3339Nano))
	for _, v := range values {
		row = append(row, fmt.Sprintf("%.6f", v))
	}
	row = append(row, string(phase))
	fw.w.Write(row)
}

// Flush flushes buffered rows and reports any write error.
func (fw *FeatureWriter) Flush() error {
	fw.w.Flush()
	return fw.w.Error()
}
