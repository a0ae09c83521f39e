package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gridsense-data/phase.report/internal/fsutil"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyPipelineConfig()

	if cfg.GetSmootherWindow() != 11 {
		t.Errorf("GetSmootherWindow() = %d, want 11", cfg.GetSmootherWindow())
	}
	if cfg.GetSmootherDegree() != 3 {
		t.Errorf("GetSmootherDegree() = %d, want 3", cfg.GetSmootherDegree())
	}
	if cfg.GetSampleInterval() != time.Second {
		t.Errorf("GetSampleInterval() = %v, want 1s", cfg.GetSampleInterval())
	}
	if cfg.GetShortHorizon() != 30*time.Second {
		t.Errorf("GetShortHorizon() = %v, want 30s", cfg.GetShortHorizon())
	}
	if cfg.GetLongHorizon() != 60*time.Second {
		t.Errorf("GetLongHorizon() = %v, want 60s", cfg.GetLongHorizon())
	}
	if cfg.GetIdleCeilingWatts() != 15.0 {
		t.Errorf("GetIdleCeilingWatts() = %f, want 15.0", cfg.GetIdleCeilingWatts())
	}
	if cfg.GetHighSpeedFloorWatts() != 280.0 {
		t.Errorf("GetHighSpeedFloorWatts() = %f, want 280.0", cfg.GetHighSpeedFloorWatts())
	}
	if cfg.GetMidBandLowWatts() != 180.0 {
		t.Errorf("GetMidBandLowWatts() = %f, want 180.0", cfg.GetMidBandLowWatts())
	}
	if cfg.GetRegularityThreshold() != 0.5 {
		t.Errorf("GetRegularityThreshold() = %f, want 0.5", cfg.GetRegularityThreshold())
	}
	if cfg.GetPeakCountThreshold() != 2 {
		t.Errorf("GetPeakCountThreshold() = %d, want 2", cfg.GetPeakCountThreshold())
	}
	if cfg.GetDebounceSamples() != 3 {
		t.Errorf("GetDebounceSamples() = %d, want 3", cfg.GetDebounceSamples())
	}
	if cfg.GetFlattenedWindowSize() != 5 {
		t.Errorf("GetFlattenedWindowSize() = %d, want 5", cfg.GetFlattenedWindowSize())
	}
	if cfg.GetSequentialWindowSize() != 15 {
		t.Errorf("GetSequentialWindowSize() = %d, want 15", cfg.GetSequentialWindowSize())
	}
	if cfg.GetModelPath() != "" {
		t.Errorf("GetModelPath() = %q, want empty", cfg.GetModelPath())
	}

	forbidden := cfg.GetForbiddenTransitions()
	if len(forbidden) != 1 || forbidden[0] != "IDLE->HIGH_SPEED" {
		t.Errorf("GetForbiddenTransitions() = %v, want [IDLE->HIGH_SPEED]", forbidden)
	}
}

func TestHorizonSamples(t *testing.T) {
	cfg := EmptyPipelineConfig()
	if got := cfg.ShortHorizonSamples(); got != 30 {
		t.Errorf("ShortHorizonSamples() = %d, want 30", got)
	}
	if got := cfg.LongHorizonSamples(); got != 60 {
		t.Errorf("LongHorizonSamples() = %d, want 60", got)
	}

	cfg.SampleInterval = ptrString("2s")
	if got := cfg.ShortHorizonSamples(); got != 15 {
		t.Errorf("ShortHorizonSamples() at 2s cadence = %d, want 15", got)
	}
}

func TestInferenceBudgetDefaultsToSampleInterval(t *testing.T) {
	cfg := EmptyPipelineConfig()
	if got := cfg.GetInferenceBudget(); got != time.Second {
		t.Errorf("GetInferenceBudget() = %v, want 1s", got)
	}

	cfg.SampleInterval = ptrString("500ms")
	if got := cfg.GetInferenceBudget(); got != 500*time.Millisecond {
		t.Errorf("GetInferenceBudget() = %v, want 500ms", got)
	}

	cfg.InferenceBudget = ptrString("200ms")
	if got := cfg.GetInferenceBudget(); got != 200*time.Millisecond {
		t.Errorf("GetInferenceBudget() = %v, want 200ms", got)
	}
}

func TestLoadPipelineConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "smoother_window": 9,
  "smoother_degree": 2,
  "idle_ceiling_watts": 20.0,
  "debounce_samples": 5,
  "forbidden_transitions": ["IDLE->HIGH_SPEED", "HIGH_SPEED->IDLE"],
  "model_path": "models/rf_v3.json"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadPipelineConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.SmootherWindow == nil || *cfg.SmootherWindow != 9 {
		t.Errorf("Expected SmootherWindow 9, got %v", cfg.SmootherWindow)
	}
	if cfg.SmootherDegree == nil || *cfg.SmootherDegree != 2 {
		t.Errorf("Expected SmootherDegree 2, got %v", cfg.SmootherDegree)
	}
	if cfg.GetIdleCeilingWatts() != 20.0 {
		t.Errorf("GetIdleCeilingWatts() = %f, want 20.0", cfg.GetIdleCeilingWatts())
	}
	if cfg.GetDebounceSamples() != 5 {
		t.Errorf("GetDebounceSamples() = %d, want 5", cfg.GetDebounceSamples())
	}
	if len(cfg.GetForbiddenTransitions()) != 2 {
		t.Errorf("Expected 2 forbidden transitions, got %v", cfg.GetForbiddenTransitions())
	}
	if cfg.GetModelPath() != "models/rf_v3.json" {
		t.Errorf("GetModelPath() = %q, want models/rf_v3.json", cfg.GetModelPath())
	}

	// Unset fields keep their defaults
	if cfg.GetHighSpeedFloorWatts() != 280.0 {
		t.Errorf("GetHighSpeedFloorWatts() = %f, want default 280.0", cfg.GetHighSpeedFloorWatts())
	}
}

func TestLoadPipelineConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadPipelineConfig("config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-.json extension")
	}
	if !strings.Contains(err.Error(), ".json extension") {
		t.Errorf("Expected extension error, got: %v", err)
	}
}

func TestLoadPipelineConfigMissingFile(t *testing.T) {
	_, err := LoadPipelineConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoadPipelineConfigMalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadPipelineConfig(configPath)
	if err == nil {
		t.Fatal("Expected error for malformed JSON")
	}
}

func TestLoadPipelineConfigFromMemory(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	if err := fs.WriteFile("conf/phase.json", []byte(`{"debounce_samples": 5}`), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadPipelineConfigFrom(fs, "conf/phase.json")
	if err != nil {
		t.Fatalf("LoadPipelineConfigFrom failed: %v", err)
	}
	if cfg.GetDebounceSamples() != 5 {
		t.Errorf("Expected debounce 5, got %d", cfg.GetDebounceSamples())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PipelineConfig)
		wantErr string
	}{
		{
			name:   "valid empty config",
			mutate: func(c *PipelineConfig) {},
		},
		{
			name:    "even smoother window",
			mutate:  func(c *PipelineConfig) { c.SmootherWindow = ptrInt(10) },
			wantErr: "smoother_window",
		},
		{
			name:    "tiny smoother window",
			mutate:  func(c *PipelineConfig) { c.SmootherWindow = ptrInt(3) },
			wantErr: "smoother_window",
		},
		{
			name:    "degree out of range",
			mutate:  func(c *PipelineConfig) { c.SmootherDegree = ptrInt(5) },
			wantErr: "smoother_degree",
		},
		{
			name:    "bad duration",
			mutate:  func(c *PipelineConfig) { c.ShortHorizon = ptrString("thirty seconds") },
			wantErr: "short_horizon",
		},
		{
			name: "short horizon not below long",
			mutate: func(c *PipelineConfig) {
				c.ShortHorizon = ptrString("60s")
				c.LongHorizon = ptrString("60s")
			},
			wantErr: "short_horizon",
		},
		{
			name:    "negative idle ceiling",
			mutate:  func(c *PipelineConfig) { c.IdleCeilingWatts = ptrFloat64(-1) },
			wantErr: "idle_ceiling_watts",
		},
		{
			name: "high speed floor below idle ceiling",
			mutate: func(c *PipelineConfig) {
				c.IdleCeilingWatts = ptrFloat64(100)
				c.HighSpeedFloorWatts = ptrFloat64(50)
			},
			wantErr: "high_speed_floor_watts",
		},
		{
			name: "inverted mid band",
			mutate: func(c *PipelineConfig) {
				c.MidBandLowWatts = ptrFloat64(250)
				c.MidBandHighWatts = ptrFloat64(200)
			},
			wantErr: "mid_band_low_watts",
		},
		{
			name:    "regularity above 1",
			mutate:  func(c *PipelineConfig) { c.RegularityThreshold = ptrFloat64(1.5) },
			wantErr: "regularity_threshold",
		},
		{
			name:    "zero debounce",
			mutate:  func(c *PipelineConfig) { c.DebounceSamples = ptrInt(0) },
			wantErr: "debounce_samples",
		},
		{
			name:    "malformed forbidden transition",
			mutate:  func(c *PipelineConfig) { c.ForbiddenTransitions = []string{"IDLE HIGH_SPEED"} },
			wantErr: "FROM->TO",
		},
		{
			name:    "zero flattened window",
			mutate:  func(c *PipelineConfig) { c.FlattenedWindowSize = ptrInt(0) },
			wantErr: "flattened_window_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EmptyPipelineConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	// The shipped defaults file should mirror the in-code defaults exactly.
	if cfg.GetSmootherWindow() != 11 {
		t.Errorf("defaults file smoother_window = %d, want 11", cfg.GetSmootherWindow())
	}
	if cfg.GetIdleCeilingWatts() != 15.0 {
		t.Errorf("defaults file idle_ceiling_watts = %f, want 15.0", cfg.GetIdleCeilingWatts())
	}
	if cfg.GetDebounceSamples() != 3 {
		t.Errorf("defaults file debounce_samples = %d, want 3", cfg.GetDebounceSamples())
	}
	if cfg.GetSequentialWindowSize() != 15 {
		t.Errorf("defaults file sequential_window_size = %d, want 15", cfg.GetSequentialWindowSize())
	}
}

func TestPtrHelpers(t *testing.T) {
	if *ptrFloat64(1.5) != 1.5 {
		t.Error("ptrFloat64 round trip failed")
	}
	if *ptrInt(7) != 7 {
		t.Error("ptrInt round trip failed")
	}
	if *ptrString("x") != "x" {
		t.Error("ptrString round trip failed")
	}
	if *ptrBool(true) != true {
		t.Error("ptrBool round trip failed")
	}
}
