package bgs

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults match the values the adaptive median algorithm was published with.
const (
	DefaultLowThreshold   uint8 = 40
	DefaultHighThreshold  uint8 = 80
	DefaultSamplingRate         = 7
	DefaultLearningFrames       = 30
)

// Config is the engine configuration. It is fixed once a Driver is built.
type Config struct {
	// LowThreshold is the strict per-channel tolerance. Its mask gates model updates.
	LowThreshold uint8 `json:"low_threshold" yaml:"low_threshold"`
	// HighThreshold is the loose per-channel tolerance, reserved for post-processing.
	// It is expected to be >= LowThreshold but this is not enforced.
	HighThreshold uint8 `json:"high_threshold" yaml:"high_threshold"`
	// SamplingRate is the update cadence once the learning window has passed:
	// the model is refreshed on frames where index % SamplingRate == 1.
	SamplingRate int `json:"sampling_rate" yaml:"sampling_rate"`
	// LearningFrames is the number of initial frames during which every pixel is
	// updated regardless of its label.
	LearningFrames int `json:"learning_frames" yaml:"learning_frames"`
}

// DefaultConfig returns the default engine configuration.
//
// Returns:
//   - Config: low=40, high=80, sampling rate 7, 30 learning frames.
//
// @example
// cfg := bgs.DefaultConfig()
// cfg.LowThreshold = 25
// driver, err := bgs.NewDriver(cfg)
func DefaultConfig() Config {
	return Config{
		LowThreshold:   DefaultLowThreshold,
		HighThreshold:  DefaultHighThreshold,
		SamplingRate:   DefaultSamplingRate,
		LearningFrames: DefaultLearningFrames,
	}
}

// Validate rejects configurations the engine cannot run with. Threshold
// ordering is deliberately not checked; see Ordered.
func (c Config) Validate() error {
	if c.SamplingRate <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "sampling rate must be positive, got %d", c.SamplingRate)
	}
	if c.LearningFrames < 0 {
		return errors.Wrapf(ErrInvalidConfig, "learning frames must be >= 0, got %d", c.LearningFrames)
	}
	return nil
}

// Ordered reports whether HighThreshold >= LowThreshold. When it is false the
// high mask's background is a subset of the low mask's instead of a superset.
func (c Config) Ordered() bool {
	return c.HighThreshold >= c.LowThreshold
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file. Keys missing from the file keep
// their default values.
//
// Arguments:
//   - path: Path to the YAML file.
//
// Returns:
//   - Config: The decoded and validated configuration.
//   - error: If the file cannot be read, decoded or validated.
//
// @example
// cfg, err := bgs.LoadConfig("bgs.yaml")
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}
