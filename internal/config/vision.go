// Package config loads vision parameters from JSON.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gpuvision/pkg/gpuvision"
)

// DefaultConfigPath is the canonical defaults file, relative to the repository root.
const DefaultConfigPath = "config/vision.defaults.json"

// Defaults for every field. They match config/vision.defaults.json.
const (
	DefaultHMin          = 0
	DefaultHMax          = 176
	DefaultSMin          = 0
	DefaultSMax          = 255
	DefaultVMin          = 99
	DefaultVMax          = 255
	DefaultBlurSize      = 6
	DefaultStreamHost    = "10.20.84.6"
	DefaultStreamPort    = 5802
	DefaultStreamQuality = 20

	DefaultGoalMinBlobArea        = gpuvision.DefaultMinBlobArea
	DefaultMinAspectScore         = gpuvision.DefaultMinAspectScore
	DefaultMinRectangularityScore = gpuvision.DefaultMinRectangularityScore
)

// VisionConfig holds the thresholding and streaming parameters. Fields left
// out of the JSON stay nil and the Get* accessors supply the defaults.
type VisionConfig struct {
	HMin *float64 `json:"h_min,omitempty"`
	HMax *float64 `json:"h_max,omitempty"`
	SMin *float64 `json:"s_min,omitempty"`
	SMax *float64 `json:"s_max,omitempty"`
	VMin *float64 `json:"v_min,omitempty"`
	VMax *float64 `json:"v_max,omitempty"`

	BlurSize  *int  `json:"blur_size,omitempty"`
	Grayscale *bool `json:"grayscale,omitempty"`

	// ForceReference disables the accelerated path for this process.
	ForceReference *bool `json:"force_reference,omitempty"`

	StreamHost    *string `json:"stream_host,omitempty"`
	StreamPort    *int    `json:"stream_port,omitempty"`
	StreamQuality *int    `json:"stream_quality,omitempty"`

	GoalMinBlobArea        *float64 `json:"goal_min_blob_area,omitempty"`
	MinAspectScore         *float64 `json:"min_aspect_score,omitempty"`
	MinRectangularityScore *float64 `json:"min_rect_score,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyVisionConfig returns a config with every field unset.
func EmptyVisionConfig() *VisionConfig {
	return &VisionConfig{}
}

// DefaultVisionConfig returns a config with every field set to its default.
func DefaultVisionConfig() *VisionConfig {
	return &VisionConfig{
		HMin:           ptrFloat64(DefaultHMin),
		HMax:           ptrFloat64(DefaultHMax),
		SMin:           ptrFloat64(DefaultSMin),
		SMax:           ptrFloat64(DefaultSMax),
		VMin:           ptrFloat64(DefaultVMin),
		VMax:           ptrFloat64(DefaultVMax),
		BlurSize:       ptrInt(DefaultBlurSize),
		Grayscale:      ptrBool(false),
		ForceReference: ptrBool(false),
		StreamHost:     ptrString(DefaultStreamHost),
		StreamPort:     ptrInt(DefaultStreamPort),
		StreamQuality:  ptrInt(DefaultStreamQuality),

		GoalMinBlobArea:        ptrFloat64(DefaultGoalMinBlobArea),
		MinAspectScore:         ptrFloat64(DefaultMinAspectScore),
		MinRectangularityScore: ptrFloat64(DefaultMinRectangularityScore),
	}
}

// LoadVisionConfig reads a JSON config file. The path must have a .json
// extension and the file must be under 1MB. Partial files are allowed.
func LoadVisionConfig(path string) (*VisionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyVisionConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set. Inverted HSV bounds are allowed;
// they select nothing.
func (c *VisionConfig) Validate() error {
	if c.BlurSize != nil && (*c.BlurSize < 0 || *c.BlurSize > gpuvision.MaxBlurSize) {
		return fmt.Errorf("blur_size must be in 0..%d, got %d", gpuvision.MaxBlurSize, *c.BlurSize)
	}
	if c.StreamPort != nil && (*c.StreamPort <= 0 || *c.StreamPort > 65535) {
		return fmt.Errorf("stream_port must be in 1..65535, got %d", *c.StreamPort)
	}
	if c.StreamQuality != nil && (*c.StreamQuality < 1 || *c.StreamQuality > 100) {
		return fmt.Errorf("stream_quality must be in 1..100, got %d", *c.StreamQuality)
	}
	if c.StreamHost != nil && *c.StreamHost == "" {
		return fmt.Errorf("stream_host must not be empty")
	}
	if c.GoalMinBlobArea != nil && !(*c.GoalMinBlobArea >= 0) {
		return fmt.Errorf("goal_min_blob_area must be non-negative, got %g", *c.GoalMinBlobArea)
	}
	for name, p := range map[string]*float64{
		"min_aspect_score": c.MinAspectScore,
		"min_rect_score":   c.MinRectangularityScore,
	} {
		if p != nil && !(*p >= 0 && *p <= 100) {
			return fmt.Errorf("%s must be in 0..100, got %g", name, *p)
		}
	}
	return nil
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// GetColorRange returns the HSV threshold box.
func (c *VisionConfig) GetColorRange() gpuvision.ColorRange {
	return gpuvision.NewColorRange(
		getFloat(c.HMin, DefaultHMin),
		getFloat(c.SMin, DefaultSMin),
		getFloat(c.VMin, DefaultVMin),
		getFloat(c.HMax, DefaultHMax),
		getFloat(c.SMax, DefaultSMax),
		getFloat(c.VMax, DefaultVMax),
	)
}

// GetBlurSize returns the blur size; the kernel side is 2*size+1.
func (c *VisionConfig) GetBlurSize() int { return getInt(c.BlurSize, DefaultBlurSize) }

// GetGrayscale reports whether grayscale output is requested.
func (c *VisionConfig) GetGrayscale() bool { return c.Grayscale != nil && *c.Grayscale }

// GetForceReference reports whether the accelerated path is disabled.
func (c *VisionConfig) GetForceReference() bool {
	return c.ForceReference != nil && *c.ForceReference
}

// GetStreamAddr returns host:port for the preview stream.
func (c *VisionConfig) GetStreamAddr() string {
	host := DefaultStreamHost
	if c.StreamHost != nil {
		host = *c.StreamHost
	}
	return net.JoinHostPort(host, strconv.Itoa(getInt(c.StreamPort, DefaultStreamPort)))
}

// GetStreamQuality returns the JPEG quality of streamed previews.
func (c *VisionConfig) GetStreamQuality() int {
	return getInt(c.StreamQuality, DefaultStreamQuality)
}

// GetTargetParams returns the blob thresholds used by target extraction.
func (c *VisionConfig) GetTargetParams() gpuvision.TargetParams {
	return gpuvision.TargetParams{
		MinBlobArea:            getFloat(c.GoalMinBlobArea, DefaultGoalMinBlobArea),
		MinAspectScore:         getFloat(c.MinAspectScore, DefaultMinAspectScore),
		MinRectangularityScore: getFloat(c.MinRectangularityScore, DefaultMinRectangularityScore),
	}
}

// Merge overlays the fields set in other onto c.
func (c *VisionConfig) Merge(other *VisionConfig) {
	if other == nil {
		return
	}
	if other.HMin != nil {
		c.HMin = other.HMin
	}
	if other.HMax != nil {
		c.HMax = other.HMax
	}
	if other.SMin != nil {
		c.SMin = other.SMin
	}
	if other.SMax != nil {
		c.SMax = other.SMax
	}
	if other.VMin != nil {
		c.VMin = other.VMin
	}
	if other.VMax != nil {
		c.VMax = other.VMax
	}
	if other.BlurSize != nil {
		c.BlurSize = other.BlurSize
	}
	if other.Grayscale != nil {
		c.Grayscale = other.Grayscale
	}
	if other.ForceReference != nil {
		c.ForceReference = other.ForceReference
	}
	if other.StreamHost != nil {
		c.StreamHost = other.StreamHost
	}
	if other.StreamPort != nil {
		c.StreamPort = other.StreamPort
	}
	if other.StreamQuality != nil {
		c.StreamQuality = other.StreamQuality
	}
	if other.GoalMinBlobArea != nil {
		c.GoalMinBlobArea = other.GoalMinBlobArea
	}
	if other.MinAspectScore != nil {
		c.MinAspectScore = other.MinAspectScore
	}
	if other.MinRectangularityScore != nil {
		c.MinRectangularityScore = other.MinRectangularityScore
	}
}
