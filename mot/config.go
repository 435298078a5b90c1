package mot

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// TrackerConfig is JSON representation of BlobTracker parameters.
// Omitted fields keep their default values, so partial configs are safe.
type TrackerConfig struct {
	Neighbours         *int     `json:"neighbours,omitempty"`
	EarlyExitThreshold *float64 `json:"early_exit_threshold,omitempty"`
	MovedEpsilon       *float64 `json:"moved_epsilon,omitempty"`
	// Time step for Kalman motion estimate. Zero or omitted disables estimation
	MotionTimeStep *float64 `json:"motion_time_step,omitempty"`
}

// LoadTrackerConfig loads TrackerConfig from a JSON file.
// File must have .json extension and must not be larger than 1MB. Unknown keys are rejected.
func LoadTrackerConfig(path string) (*TrackerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, errors.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't stat config file")
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, errors.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read config file")
	}
	return ParseTrackerConfig(data)
}

// ParseTrackerConfig parses and validates JSON document
func ParseTrackerConfig(data []byte) (*TrackerConfig, error) {
	cfg := &TrackerConfig{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "Can't parse config JSON")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid configuration")
	}
	return cfg, nil
}

// GetNeighbours returns number of neighbours or default value
func (cfg *TrackerConfig) GetNeighbours() int {
	if cfg.Neighbours == nil {
		return DefaultNeighbours
	}
	return *cfg.Neighbours
}

// GetEarlyExitThreshold returns early exit threshold or default value
func (cfg *TrackerConfig) GetEarlyExitThreshold() float64 {
	if cfg.EarlyExitThreshold == nil {
		return DefaultEarlyExitThreshold
	}
	return *cfg.EarlyExitThreshold
}

// GetMovedEpsilon returns moved epsilon or default value
func (cfg *TrackerConfig) GetMovedEpsilon() float64 {
	if cfg.MovedEpsilon == nil {
		return DefaultMovedEpsilon
	}
	return *cfg.MovedEpsilon
}

// GetMotionTimeStep returns motion estimate time step (zero when disabled)
func (cfg *TrackerConfig) GetMotionTimeStep() float64 {
	if cfg.MotionTimeStep == nil {
		return 0
	}
	return *cfg.MotionTimeStep
}

// Validate checks that the configuration values are valid
func (cfg *TrackerConfig) Validate() error {
	_, err := cfg.NewTracker()
	return err
}

// NewTracker creates BlobTracker from the configuration
func (cfg *TrackerConfig) NewTracker() (*BlobTracker, error) {
	tracker, err := NewBlobTracker(cfg.GetNeighbours(), cfg.GetEarlyExitThreshold(), cfg.GetMovedEpsilon())
	if err != nil {
		return nil, err
	}
	if dt := cfg.GetMotionTimeStep(); dt != 0 {
		if err := tracker.EnableMotionEstimate(dt); err != nil {
			return nil, err
		}
	}
	return tracker, nil
}
