package engine

import (
	"errors"
	"fmt"

	"github.com/mcuadros/go-defaults"

	"github.com/anime-shed/note-inspector-go/internal/strategy"
)

const (
	// DefaultAbsoluteThreshold is the acceptance threshold for the absolute mode
	DefaultAbsoluteThreshold = 20.0
	// DefaultPercentThreshold is the acceptance threshold for the percent mode
	DefaultPercentThreshold = 15.0
)

// Config tunes extraction, matching, scoring and the decision rule.
// Fields are readable from TOML with the snake_case keys below.
type Config struct {
	MaxKeypoints               int                    `toml:"max_keypoints" default:"500"`
	UseCrossCheck              bool                   `toml:"use_cross_check" default:"true"`
	GoodMatchDistanceThreshold int                    `toml:"good_match_distance_threshold" default:"50"`
	ScoringMode                strategy.Mode          `toml:"scoring_mode" default:"absolute"`
	NormalizeBy                strategy.Normalization `toml:"normalize_by" default:"candidate"`
	AcceptanceThreshold        float64                `toml:"acceptance_threshold"`

	PyramidLevels     int     `toml:"pyramid_levels" default:"3"`
	ScaleFactor       float64 `toml:"scale_factor" default:"1.2"`
	FastThreshold     int     `toml:"fast_threshold" default:"20"`
	MaxImageDimension int     `toml:"max_image_dimension" default:"1024"`

	// Workers sizes the engine pool; 0 means one per CPU
	Workers int `toml:"workers"`
}

// DefaultConfig returns the absolute-mode defaults
func DefaultConfig() Config {
	var cfg Config
	defaults.SetDefaults(&cfg)
	cfg.AcceptanceThreshold = DefaultAbsoluteThreshold
	return cfg
}

// NormalizedPercentConfig returns defaults for percent scoring
func NormalizedPercentConfig() Config {
	return DefaultConfig().WithScoring(strategy.ModeNormalizedPercent, DefaultPercentThreshold)
}

// WithScoring sets the scoring mode and its acceptance threshold
func (c Config) WithScoring(mode strategy.Mode, threshold float64) Config {
	c.ScoringMode = mode
	c.AcceptanceThreshold = threshold
	return c
}

// WithNormalizeBy sets the percent denominator
func (c Config) WithNormalizeBy(n strategy.Normalization) Config {
	c.NormalizeBy = n
	return c
}

// WithCrossCheck toggles mutual nearest-neighbour filtering
func (c Config) WithCrossCheck(enabled bool) Config {
	c.UseCrossCheck = enabled
	return c
}

// WithMaxKeypoints caps the keypoints kept per image
func (c Config) WithMaxKeypoints(n int) Config {
	c.MaxKeypoints = n
	return c
}

// WithDistanceThreshold sets the strict Hamming bound for a good match
func (c Config) WithDistanceThreshold(d int) Config {
	c.GoodMatchDistanceThreshold = d
	return c
}

// WithWorkers sizes the worker pool
func (c Config) WithWorkers(n int) Config {
	c.Workers = n
	return c
}

// Validate rejects configurations the engine cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.MaxKeypoints < 1 {
		errs = append(errs, fmt.Errorf("max_keypoints must be >= 1 (got %d)", c.MaxKeypoints))
	}
	if c.GoodMatchDistanceThreshold < 1 || c.GoodMatchDistanceThreshold > DescriptorBits {
		errs = append(errs, fmt.Errorf("good_match_distance_threshold must be in 1..%d (got %d)",
			DescriptorBits, c.GoodMatchDistanceThreshold))
	}
	if err := c.ScoringMode.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.NormalizeBy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.AcceptanceThreshold < 0 {
		errs = append(errs, fmt.Errorf("acceptance_threshold must be >= 0 (got %v)", c.AcceptanceThreshold))
	}
	if c.PyramidLevels < 1 {
		errs = append(errs, fmt.Errorf("pyramid_levels must be >= 1 (got %d)", c.PyramidLevels))
	}
	if c.ScaleFactor <= 1 {
		errs = append(errs, fmt.Errorf("scale_factor must be > 1 (got %v)", c.ScaleFactor))
	}
	if c.FastThreshold < 1 || c.FastThreshold > 255 {
		errs = append(errs, fmt.Errorf("fast_threshold must be in 1..255 (got %d)", c.FastThreshold))
	}
	if c.MaxImageDimension < 0 {
		errs = append(errs, fmt.Errorf("max_image_dimension must be >= 0 (got %d)", c.MaxImageDimension))
	}
	return errors.Join(errs...)
}

// Signature identifies everything that changes extracted descriptors.
// Reference snapshots built with a different signature are stale.
func (c Config) Signature() string {
	return fmt.Sprintf("orb1/k%d/l%d/s%.3f/f%d/d%d/p%d",
		c.MaxKeypoints, c.PyramidLevels, c.ScaleFactor, c.FastThreshold, c.MaxImageDimension, patternSeed)
}
