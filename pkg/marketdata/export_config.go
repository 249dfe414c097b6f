package marketdata

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/errors"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/source"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/writer"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the source settings of an export config.
const (
	EnvBridgeURL     = "TERMINAL_BRIDGE_URL"
	EnvBridgeToken   = "TERMINAL_BRIDGE_TOKEN"
	EnvPolygonApiKey = "POLYGON_API_KEY"
)

// SourceConfig selects and configures the bar source.
type SourceConfig struct {
	Type          string `yaml:"type" json:"type" jsonschema:"title=Source,description=Bar source to read from,enum=terminal,enum=polygon,enum=binance,default=terminal" validate:"required,oneof=terminal polygon binance"`
	BridgeURL     string `yaml:"bridge_url" json:"bridge_url,omitempty" jsonschema:"title=Bridge URL,description=Base URL of the terminal bridge" validate:"omitempty,url"`
	Token         string `yaml:"token" json:"token,omitempty" jsonschema:"title=Bridge Token,description=Bearer token sent to the terminal bridge"`
	Timeout       string `yaml:"timeout" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Request timeout for the terminal bridge (e.g. 30s)"`
	PolygonApiKey string `yaml:"polygon_api_key" json:"polygon_api_key,omitempty" jsonschema:"title=Polygon API Key,description=Polygon.io API key" validate:"required_if=Type polygon"`
}

// OutputConfig describes where and how the dataset is written.
type OutputConfig struct {
	Path        string   `yaml:"path" json:"path" jsonschema:"title=Output Path,description=Parquet file or root directory of the partitioned tree,required" validate:"required"`
	PartitionBy []string `yaml:"partition_by" json:"partition_by,omitempty" jsonschema:"title=Partition By,description=Columns used for hive partitioning"`
	Compression string   `yaml:"compression" json:"compression,omitempty" jsonschema:"title=Compression,enum=snappy,enum=zstd,enum=gzip,enum=uncompressed,default=snappy" validate:"omitempty,oneof=snappy zstd gzip uncompressed"`
}

// ExportConfig is the YAML configuration of one export run.
type ExportConfig struct {
	Source     SourceConfig `yaml:"source" json:"source" jsonschema:"title=Source"`
	Symbols    []string     `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Instruments to export (e.g. WDO$),required" validate:"required,min=1,dive,required"`
	Timeframes []string     `yaml:"timeframes" json:"timeframes" jsonschema:"title=Timeframes,description=Timeframe labels (M1 M5 M15 M30 H1 H4 D1 W1 MN1),required" validate:"required,min=1,dive,required"`
	Output     OutputConfig `yaml:"output" json:"output" jsonschema:"title=Output"`
}

// DefaultExportConfig returns a config reading from the local terminal bridge.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Source: SourceConfig{
			Type:          string(source.SourceTerminal),
			BridgeURL:     source.DefaultBridgeURL,
			Token:         "",
			Timeout:       source.DefaultBridgeTimeout.String(),
			PolygonApiKey: "",
		},
		Symbols:    nil,
		Timeframes: nil,
		Output: OutputConfig{
			Path:        "",
			PartitionBy: nil,
			Compression: string(writer.CompressionSnappy),
		},
	}
}

// LoadExportConfig reads and validates the export config at path.
func LoadExportConfig(path string) (*ExportConfig, error) {
	config, err := ReadExportConfig(path)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ReadExportConfig reads the export config at path without validating it, so callers can
// layer further overrides before calling Validate.
func ReadExportConfig(path string) (*ExportConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return DecodeExportConfig(data)
}

// ParseExportConfig parses YAML into a validated ExportConfig.
func ParseExportConfig(data []byte) (*ExportConfig, error) {
	config, err := DecodeExportConfig(data)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DecodeExportConfig parses YAML into an ExportConfig. Unset fields keep their defaults and the
// environment overrides the source settings. The result is not validated.
func DecodeExportConfig(data []byte) (*ExportConfig, error) {
	config := DefaultExportConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse YAML config", err)
	}

	config.ApplyEnv()

	return &config, nil
}

// ApplyEnv overrides the source settings with the non-empty environment variables.
func (c *ExportConfig) ApplyEnv() {
	if value := os.Getenv(EnvBridgeURL); value != "" {
		c.Source.BridgeURL = value
	}

	if value := os.Getenv(EnvBridgeToken); value != "" {
		c.Source.Token = value
	}

	if value := os.Getenv(EnvPolygonApiKey); value != "" {
		c.Source.PolygonApiKey = value
	}
}

// Validate checks the struct tags, the timeframe labels, the timeout and the partition columns.
func (c *ExportConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if _, err := c.ParsedTimeframes(); err != nil {
		return err
	}

	if _, err := c.timeout(); err != nil {
		return err
	}

	for _, column := range c.Output.PartitionBy {
		if !slices.Contains(types.DatasetColumns, column) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration,
				"invalid partition column %q, expected one of: %s", column, strings.Join(types.DatasetColumns, ", "))
		}
	}

	return nil
}

// ParsedTimeframes converts the timeframe labels.
func (c *ExportConfig) ParsedTimeframes() ([]types.Timeframe, error) {
	return types.ParseTimeframes(c.Timeframes)
}

// PartitionColumns returns the partition columns, or None for a single-file output.
func (c *ExportConfig) PartitionColumns() optional.Option[[]string] {
	if len(c.Output.PartitionBy) == 0 {
		return optional.None[[]string]()
	}

	return optional.Some(c.Output.PartitionBy)
}

// SourceType returns the selected source type.
func (c *ExportConfig) SourceType() source.SourceType {
	return source.SourceType(c.Source.Type)
}

// SourceSettings converts the source section into a source.Config.
func (c *ExportConfig) SourceSettings() (source.Config, error) {
	timeout, err := c.timeout()
	if err != nil {
		return source.Config{}, err
	}

	return source.Config{
		BridgeURL:     c.Source.BridgeURL,
		BridgeToken:   c.Source.Token,
		Timeout:       timeout,
		PolygonApiKey: c.Source.PolygonApiKey,
	}, nil
}

// ToExtractorConfig converts the config into the settings of an Extractor.
func (c *ExportConfig) ToExtractorConfig() (ExtractorConfig, error) {
	settings, err := c.SourceSettings()
	if err != nil {
		return ExtractorConfig{}, err
	}

	return ExtractorConfig{
		SourceType:  c.SourceType(),
		Source:      settings,
		Compression: writer.Compression(c.Output.Compression),
	}, nil
}

func (c *ExportConfig) timeout() (time.Duration, error) {
	if c.Source.Timeout == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(c.Source.Timeout)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidConfiguration, fmt.Sprintf("invalid timeout %q", c.Source.Timeout), err)
	}

	if timeout < 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidConfiguration, "timeout must not be negative: %s", c.Source.Timeout)
	}

	return timeout, nil
}
