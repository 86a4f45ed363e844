package catalog

import (
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultScanRatio is the candidate/indexed ratio at or above which the
	// automatic sort strategy walks the forward index.
	DefaultScanRatio = 0.5

	// DefaultTopKRatio is the limit/candidate ratio at or below which the
	// automatic sort strategy uses bounded top-K selection.
	DefaultTopKRatio = 0.25
)

// IndexConfig contains configuration shared by the keyword and scalar indexes.
type IndexConfig struct {
	// TreeThreshold is the set cardinality at which a forward-index entry
	// switches to the bitmap representation
	TreeThreshold int

	// ScanRatio drives the forward-scan choice of SortAuto
	ScanRatio float64

	// TopKRatio drives the top-K choice of SortAuto
	TopKRatio float64

	// StrictConsistency makes Unindex return ErrInconsistentIndex instead of
	// logging it and carrying on
	StrictConsistency bool

	// CompressSnapshots zstd-compresses the payload written by WriteTo
	CompressSnapshots bool

	// Logger receives index diagnostics; nil uses DefaultLogger()
	Logger *slog.Logger

	// Metrics receives operation counters; nil disables metrics
	Metrics *Metrics
}

// DefaultIndexConfig returns a default index configuration.
func DefaultIndexConfig() *IndexConfig {
	return &IndexConfig{
		TreeThreshold: DefaultTreeThreshold,
		ScanRatio:     DefaultScanRatio,
		TopKRatio:     DefaultTopKRatio,
	}
}

// Validate checks that every tunable is within range.
func (c *IndexConfig) Validate() error {
	if c.TreeThreshold < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidThreshold, c.TreeThreshold)
	}
	if c.ScanRatio < 0 {
		return fmt.Errorf("scan ratio must not be negative: got %v", c.ScanRatio)
	}
	if c.TopKRatio < 0 {
		return fmt.Errorf("top-k ratio must not be negative: got %v", c.TopKRatio)
	}
	return nil
}

// fileConfig mirrors IndexConfig for YAML decoding.
type fileConfig struct {
	TreeThreshold     *int     `yaml:"treeThreshold"`
	ScanRatio         *float64 `yaml:"scanRatio"`
	TopKRatio         *float64 `yaml:"topKRatio"`
	StrictConsistency bool     `yaml:"strictConsistency"`
	CompressSnapshots bool     `yaml:"compressSnapshots"`
	Logging           struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadIndexConfig reads a YAML configuration. Keys that are absent keep
// their defaults.
//
// Example:
//
//	treeThreshold: 128
//	scanRatio: 0.6
//	strictConsistency: true
//	logging:
//	  level: debug
//	  format: json
func LoadIndexConfig(r io.Reader) (*IndexConfig, error) {
	var fc fileConfig
	if err := yaml.NewDecoder(r).Decode(&fc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode index config: %w", err)
	}

	cfg := DefaultIndexConfig()
	if fc.TreeThreshold != nil {
		cfg.TreeThreshold = *fc.TreeThreshold
	}
	if fc.ScanRatio != nil {
		cfg.ScanRatio = *fc.ScanRatio
	}
	if fc.TopKRatio != nil {
		cfg.TopKRatio = *fc.TopKRatio
	}
	cfg.StrictConsistency = fc.StrictConsistency
	cfg.CompressSnapshots = fc.CompressSnapshots
	if fc.Logging.Level != "" || fc.Logging.Format != "" {
		cfg.Logger = NewLogger(fc.Logging.Level, fc.Logging.Format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfig copies config (or the defaults) so later changes by the
// caller do not leak into an index.
func resolveConfig(config *IndexConfig) (IndexConfig, error) {
	if config == nil {
		config = DefaultIndexConfig()
	}
	cfg := *config
	if err := cfg.Validate(); err != nil {
		return IndexConfig{}, err
	}
	if cfg.Logger == nil {
		cfg.Logger = DefaultLogger()
	}
	return cfg, nil
}
