package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Hand routing modes.
const (
	// HandRoutingIndex sends detection 0 to the left hand and detection 1 to
	// the right hand, regardless of the classifier label.
	HandRoutingIndex = "index"
	// HandRoutingLabel routes each detection by its handedness label.
	HandRoutingLabel = "label"
)

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/params endpoint so the same JSON can be used
// for both startup configuration and runtime updates.
type TuningConfig struct {
	// Filter params
	PositionNoise             *float64 `json:"position_noise,omitempty"`
	VelocityNoise             *float64 `json:"velocity_noise,omitempty"`
	MeasurementNoisePose      *float64 `json:"measurement_noise_pose,omitempty"`
	MeasurementNoiseLeftHand  *float64 `json:"measurement_noise_left_hand,omitempty"`
	MeasurementNoiseRightHand *float64 `json:"measurement_noise_right_hand,omitempty"`
	MeasurementNoiseFace      *float64 `json:"measurement_noise_face,omitempty"`

	// Root and eye motion
	MoveRoot      *bool    `json:"move_root,omitempty"`
	MoveScale     *float64 `json:"move_scale,omitempty"`
	MoveEyesScale *float64 `json:"move_eyes_scale,omitempty"`

	// Ingestion gates
	UpdatePoseData  *bool   `json:"update_pose_data,omitempty"`
	UpdateHandsData *bool   `json:"update_hands_data,omitempty"`
	UpdateFaceData  *bool   `json:"update_face_data,omitempty"`
	HandRouting     *string `json:"hand_routing,omitempty"` // "index" or "label"

	Rotate *RotateConfig `json:"rotate,omitempty"`
}

// RotateConfig holds the per-joint tracking toggles. Omitted toggles are on.
type RotateConfig struct {
	Root           *bool `json:"rotate_root,omitempty"`
	Neck           *bool `json:"rotate_neck,omitempty"`
	LeftUpperArm   *bool `json:"rotate_left_upper_arm,omitempty"`
	RightUpperArm  *bool `json:"rotate_right_upper_arm,omitempty"`
	LeftLowerArm   *bool `json:"rotate_left_lower_arm,omitempty"`
	RightLowerArm  *bool `json:"rotate_right_lower_arm,omitempty"`
	LeftLowerArmR  *bool `json:"rotate_left_lower_arm_r,omitempty"`
	RightLowerArmR *bool `json:"rotate_right_lower_arm_r,omitempty"`
	LeftUpperLeg   *bool `json:"rotate_left_upper_leg,omitempty"`
	RightUpperLeg  *bool `json:"rotate_right_upper_leg,omitempty"`
	LeftLowerLeg   *bool `json:"rotate_left_lower_leg,omitempty"`
	RightLowerLeg  *bool `json:"rotate_right_lower_leg,omitempty"`
	ThumbCmc       *bool `json:"rotate_thumb_cmc,omitempty"`
	IndexCmc       *bool `json:"rotate_index_cmc,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file fall back to the Get* defaults, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseTuningConfig(data)
}

// ParseTuningConfig decodes and validates a JSON tuning document.
func ParseTuningConfig(data []byte) (*TuningConfig, error) {
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/mocap/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"position_noise", c.PositionNoise},
		{"velocity_noise", c.VelocityNoise},
		{"measurement_noise_pose", c.MeasurementNoisePose},
		{"measurement_noise_left_hand", c.MeasurementNoiseLeftHand},
		{"measurement_noise_right_hand", c.MeasurementNoiseRightHand},
		{"measurement_noise_face", c.MeasurementNoiseFace},
	}
	for _, f := range nonNegative {
		if f.v != nil && !(*f.v >= 0) {
			return fmt.Errorf("%s must be non-negative, got %f", f.name, *f.v)
		}
	}

	if c.MoveScale != nil {
		if !(*c.MoveScale >= -5 && *c.MoveScale <= 5) {
			return fmt.Errorf("move_scale must be between -5 and 5, got %f", *c.MoveScale)
		}
	}
	if c.MoveEyesScale != nil {
		if !(*c.MoveEyesScale >= 0 && *c.MoveEyesScale <= 1) {
			return fmt.Errorf("move_eyes_scale must be between 0 and 1, got %f", *c.MoveEyesScale)
		}
	}

	if c.HandRouting != nil {
		switch *c.HandRouting {
		case "", HandRoutingIndex, HandRoutingLabel:
		default:
			return fmt.Errorf("invalid hand_routing %q (want %q or %q)", *c.HandRouting, HandRoutingIndex, HandRoutingLabel)
		}
	}

	return c.Params().Validate()
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// GetPositionNoise returns the position_noise value or the default.
func (c *TuningConfig) GetPositionNoise() float64 { return getFloat(c.PositionNoise, 1.0) }

// GetVelocityNoise returns the velocity_noise value or the default.
func (c *TuningConfig) GetVelocityNoise() float64 { return getFloat(c.VelocityNoise, 3.0) }

// GetMeasurementNoisePose returns the measurement_noise_pose value or the default.
func (c *TuningConfig) GetMeasurementNoisePose() float64 {
	return getFloat(c.MeasurementNoisePose, 100.0)
}

// GetMeasurementNoiseLeftHand returns the measurement_noise_left_hand value or the default.
func (c *TuningConfig) GetMeasurementNoiseLeftHand() float64 {
	return getFloat(c.MeasurementNoiseLeftHand, 100.0)
}

// GetMeasurementNoiseRightHand returns the measurement_noise_right_hand value or the default.
func (c *TuningConfig) GetMeasurementNoiseRightHand() float64 {
	return getFloat(c.MeasurementNoiseRightHand, 10.0)
}

// GetMeasurementNoiseFace returns the measurement_noise_face value or the default.
func (c *TuningConfig) GetMeasurementNoiseFace() float64 {
	return getFloat(c.MeasurementNoiseFace, 10.0)
}

// GetMoveRoot returns the move_root value or the default.
func (c *TuningConfig) GetMoveRoot() bool { return getBool(c.MoveRoot, true) }

// GetMoveScale returns the move_scale value or the default.
func (c *TuningConfig) GetMoveScale() float64 { return getFloat(c.MoveScale, 1.0) }

// GetMoveEyesScale returns the move_eyes_scale value or the default.
func (c *TuningConfig) GetMoveEyesScale() float64 { return getFloat(c.MoveEyesScale, 0.2) }

// GetUpdatePoseData returns the update_pose_data value or the default.
func (c *TuningConfig) GetUpdatePoseData() bool { return getBool(c.UpdatePoseData, true) }

// GetUpdateHandsData returns the update_hands_data value or the default.
func (c *TuningConfig) GetUpdateHandsData() bool { return getBool(c.UpdateHandsData, true) }

// GetUpdateFaceData returns the update_face_data value or the default.
func (c *TuningConfig) GetUpdateFaceData() bool { return getBool(c.UpdateFaceData, true) }

// GetHandRouting returns the hand_routing value or the default.
func (c *TuningConfig) GetHandRouting() string {
	if c.HandRouting == nil || *c.HandRouting == "" {
		return HandRoutingIndex
	}
	return *c.HandRouting
}
