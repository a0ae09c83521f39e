package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gridsense-data/phase.report/internal/fsutil"
	"github.com/gridsense-data/phase.report/internal/monitoring"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/phase.defaults.json"

// PipelineConfig represents the root configuration for the phase
// classification pipeline. Fields are pointers so a partial JSON file can
// override just the values it names; the Get* methods supply defaults for
// anything left unset. The defaults were calibrated on one appliance class
// and are expected to be re-tuned per device, never hard-coded downstream.
type PipelineConfig struct {
	// Smoother params
	SmootherWindow *int `json:"smoother_window,omitempty"`
	SmootherDegree *int `json:"smoother_degree,omitempty"`

	// Sampling and horizons (duration strings like "30s")
	SampleInterval *string `json:"sample_interval,omitempty"`
	ShortHorizon   *string `json:"short_horizon,omitempty"`
	LongHorizon    *string `json:"long_horizon,omitempty"`

	// Rule thresholds (watts unless stated otherwise)
	IdleCeilingWatts    *float64 `json:"idle_ceiling_watts,omitempty"`
	HighSpeedFloorWatts *float64 `json:"high_speed_floor_watts,omitempty"`
	MidBandLowWatts     *float64 `json:"mid_band_low_watts,omitempty"`
	MidBandHighWatts    *float64 `json:"mid_band_high_watts,omitempty"`
	RegularityThreshold *float64 `json:"regularity_threshold,omitempty"`
	PeakCountThreshold  *int     `json:"peak_count_threshold,omitempty"`
	PeakProminenceWatts *float64 `json:"peak_prominence_watts,omitempty"`

	// Transition validator params
	DebounceSamples      *int     `json:"debounce_samples,omitempty"`
	ForbiddenTransitions []string `json:"forbidden_transitions,omitempty"` // "FROM->TO" strings

	// Window builder params
	FlattenedWindowSize  *int `json:"flattened_window_size,omitempty"`
	SequentialWindowSize *int `json:"sequential_window_size,omitempty"`

	// Classifier params
	ModelPath       *string `json:"model_path,omitempty"`
	InferenceBudget *string `json:"inference_budget,omitempty"` // duration string; defaults to sample_interval
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPipelineConfig returns a PipelineConfig with all fields set to nil.
// Use LoadPipelineConfig to load actual values from a config file.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file on the OS
// filesystem. See LoadPipelineConfigFrom.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	return LoadPipelineConfigFrom(fsutil.OSFileSystem{}, path)
}

// LoadPipelineConfigFrom loads a PipelineConfig from a JSON file on the
// given filesystem. The file must have a .json extension and stay under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadPipelineConfigFrom(fs fsutil.FileSystem, path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := fs.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fs.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	monitoring.Logf("[Config] loaded pipeline tuning from %s", cleanPath)
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical pipeline defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/power/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Cross-field rules
// (band ordering, horizon ordering) are enforced here so every consumer sees
// a coherent threshold set.
func (c *PipelineConfig) Validate() error {
	if c.SmootherWindow != nil {
		if *c.SmootherWindow < 5 || *c.SmootherWindow%2 == 0 {
			return fmt.Errorf("smoother_window must be odd and >= 5, got %d", *c.SmootherWindow)
		}
	}
	if c.SmootherDegree != nil {
		if *c.SmootherDegree < 2 || *c.SmootherDegree > 3 {
			return fmt.Errorf("smoother_degree must be 2 or 3, got %d", *c.SmootherDegree)
		}
	}
	if c.SmootherWindow != nil || c.SmootherDegree != nil {
		if c.GetSmootherWindow() < c.GetSmootherDegree()+2 {
			return fmt.Errorf("smoother_window %d too small for degree %d", c.GetSmootherWindow(), c.GetSmootherDegree())
		}
	}

	for name, field := range map[string]*string{
		"sample_interval":  c.SampleInterval,
		"short_horizon":    c.ShortHorizon,
		"long_horizon":     c.LongHorizon,
		"inference_budget": c.InferenceBudget,
	} {
		if field != nil && *field != "" {
			d, err := time.ParseDuration(*field)
			if err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *field, err)
			}
			if d <= 0 {
				return fmt.Errorf("%s must be positive, got %s", name, d)
			}
		}
	}
	if c.GetShortHorizon() >= c.GetLongHorizon() {
		return fmt.Errorf("short_horizon %s must be shorter than long_horizon %s",
			c.GetShortHorizon(), c.GetLongHorizon())
	}
	if c.GetShortHorizon() < c.GetSampleInterval() {
		return fmt.Errorf("short_horizon %s shorter than sample_interval %s",
			c.GetShortHorizon(), c.GetSampleInterval())
	}

	if c.IdleCeilingWatts != nil && *c.IdleCeilingWatts <= 0 {
		return fmt.Errorf("idle_ceiling_watts must be positive, got %f", *c.IdleCeilingWatts)
	}
	if c.GetHighSpeedFloorWatts() <= c.GetIdleCeilingWatts() {
		return fmt.Errorf("high_speed_floor_watts %f must exceed idle_ceiling_watts %f",
			c.GetHighSpeedFloorWatts(), c.GetIdleCeilingWatts())
	}
	if c.GetMidBandLowWatts() >= c.GetMidBandHighWatts() {
		return fmt.Errorf("mid_band_low_watts %f must be below mid_band_high_watts %f",
			c.GetMidBandLowWatts(), c.GetMidBandHighWatts())
	}
	if c.GetMidBandLowWatts() < c.GetIdleCeilingWatts() {
		return fmt.Errorf("mid_band_low_watts %f must not undercut idle_ceiling_watts %f",
			c.GetMidBandLowWatts(), c.GetIdleCeilingWatts())
	}
	if c.RegularityThreshold != nil {
		if *c.RegularityThreshold < 0 || *c.RegularityThreshold > 1 {
			return fmt.Errorf("regularity_threshold must be between 0 and 1, got %f", *c.RegularityThreshold)
		}
	}
	if c.PeakCountThreshold != nil && *c.PeakCountThreshold < 1 {
		return fmt.Errorf("peak_count_threshold must be >= 1, got %d", *c.PeakCountThreshold)
	}
	if c.PeakProminenceWatts != nil && *c.PeakProminenceWatts < 0 {
		return fmt.Errorf("peak_prominence_watts must be non-negative, got %f", *c.PeakProminenceWatts)
	}

	if c.DebounceSamples != nil && *c.DebounceSamples < 1 {
		return fmt.Errorf("debounce_samples must be >= 1, got %d", *c.DebounceSamples)
	}
	for _, edge := range c.ForbiddenTransitions {
		parts := strings.Split(edge, "->")
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return fmt.Errorf("forbidden transition %q must have the form FROM->TO", edge)
		}
	}

	if c.FlattenedWindowSize != nil && *c.FlattenedWindowSize < 1 {
		return fmt.Errorf("flattened_window_size must be >= 1, got %d", *c.FlattenedWindowSize)
	}
	if c.SequentialWindowSize != nil && *c.SequentialWindowSize < 1 {
		return fmt.Errorf("sequential_window_size must be >= 1, got %d", *c.SequentialWindowSize)
	}

	return nil
}

// GetSmootherWindow returns the smoother_window value or the default.
func (c *PipelineConfig) GetSmootherWindow() int {
	if c.SmootherWindow == nil {
		return 11 // default
	}
	return *c.SmootherWindow
}

// GetSmootherDegree returns the smoother_degree value or the default.
func (c *PipelineConfig) GetSmootherDegree() int {
	if c.SmootherDegree == nil {
		return 3 // default
	}
	return *c.SmootherDegree
}

// GetSampleInterval parses and returns the SampleInterval as a time.Duration.
func (c *PipelineConfig) GetSampleInterval() time.Duration {
	if c.SampleInterval == nil || *c.SampleInterval == "" {
		return time.Second // default
	}
	d, err := time.ParseDuration(*c.SampleInterval)
	if err != nil {
		return time.Second // default on parse error
	}
	return d
}

// GetShortHorizon parses and returns the ShortHorizon as a time.Duration.
func (c *PipelineConfig) GetShortHorizon() time.Duration {
	if c.ShortHorizon == nil || *c.ShortHorizon == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ShortHorizon)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}

// GetLongHorizon parses and returns the LongHorizon as a time.Duration.
func (c *PipelineConfig) GetLongHorizon() time.Duration {
	if c.LongHorizon == nil || *c.LongHorizon == "" {
		return 60 * time.Second // default
	}
	d, err := time.ParseDuration(*c.LongHorizon)
	if err != nil {
		return 60 * time.Second // default on parse error
	}
	return d
}

// ShortHorizonSamples returns the short horizon expressed in sample counts
// at the configured cadence, never less than 1.
func (c *PipelineConfig) ShortHorizonSamples() int {
	n := int(c.GetShortHorizon() / c.GetSampleInterval())
	if n < 1 {
		return 1
	}
	return n
}

// LongHorizonSamples returns the long horizon expressed in sample counts
// at the configured cadence, never less than 1.
func (c *PipelineConfig) LongHorizonSamples() int {
	n := int(c.GetLongHorizon() / c.GetSampleInterval())
	if n < 1 {
		return 1
	}
	return n
}

// GetIdleCeilingWatts returns the idle_ceiling_watts value or the default.
func (c *PipelineConfig) GetIdleCeilingWatts() float64 {
	if c.IdleCeilingWatts == nil {
		return 15.0
	}
	return *c.IdleCeilingWatts
}

// GetHighSpeedFloorWatts returns the high_speed_floor_watts value or the default.
func (c *PipelineConfig) GetHighSpeedFloorWatts() float64 {
	if c.HighSpeedFloorWatts == nil {
		return 280.0
	}
	return *c.HighSpeedFloorWatts
}

// GetMidBandLowWatts returns the mid_band_low_watts value or the default.
func (c *PipelineConfig) GetMidBandLowWatts() float64 {
	if c.MidBandLowWatts == nil {
		return 180.0
	}
	return *c.MidBandLowWatts
}

// GetMidBandHighWatts returns the mid_band_high_watts value or the default.
func (c *PipelineConfig) GetMidBandHighWatts() float64 {
	if c.MidBandHighWatts == nil {
		return 280.0
	}
	return *c.MidBandHighWatts
}

// GetRegularityThreshold returns the regularity_threshold value or the default.
func (c *PipelineConfig) GetRegularityThreshold() float64 {
	if c.RegularityThreshold == nil {
		return 0.5
	}
	return *c.RegularityThreshold
}

// GetPeakCountThreshold returns the peak_count_threshold value or the default.
func (c *PipelineConfig) GetPeakCountThreshold() int {
	if c.PeakCountThreshold == nil {
		return 2
	}
	return *c.PeakCountThreshold
}

// GetPeakProminenceWatts returns the peak_prominence_watts value or the default.
func (c *PipelineConfig) GetPeakProminenceWatts() float64 {
	if c.PeakProminenceWatts == nil {
		return 10.0
	}
	return *c.PeakProminenceWatts
}

// GetDebounceSamples returns the debounce_samples value or the default.
func (c *PipelineConfig) GetDebounceSamples() int {
	if c.DebounceSamples == nil {
		return 3
	}
	return *c.DebounceSamples
}

// GetForbiddenTransitions returns the forbidden_transitions value or the default.
func (c *PipelineConfig) GetForbiddenTransitions() []string {
	if c.ForbiddenTransitions == nil {
		return []string{"IDLE->HIGH_SPEED"}
	}
	return c.ForbiddenTransitions
}

// GetFlattenedWindowSize returns the flattened_window_size value or the default.
func (c *PipelineConfig) GetFlattenedWindowSize() int {
	if c.FlattenedWindowSize == nil {
		return 5
	}
	return *c.FlattenedWindowSize
}

// GetSequentialWindowSize returns the sequential_window_size value or the default.
func (c *PipelineConfig) GetSequentialWindowSize() int {
	if c.SequentialWindowSize == nil {
		return 15
	}
	return *c.SequentialWindowSize
}

// GetModelPath returns the model_path value or the default. An empty path
// means no classifier artifact is configured and the pipeline runs the rule
// path only.
func (c *PipelineConfig) GetModelPath() string {
	if c.ModelPath == nil {
		return ""
	}
	return *c.ModelPath
}

// GetInferenceBudget parses and returns the InferenceBudget as a
// time.Duration. It defaults to the sample interval: inference slower than
// the cadence means that step's classification is shed.
func (c *PipelineConfig) GetInferenceBudget() time.Duration {
	if c.InferenceBudget == nil || *c.InferenceBudget == "" {
		return c.GetSampleInterval()
	}
	d, err := time.ParseDuration(*c.InferenceBudget)
	if err != nil {
		return c.GetSampleInterval()
	}
	return d
}
