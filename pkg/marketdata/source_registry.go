package marketdata

import (
	"slices"

	"github.com/rxtech-lab/rates-export/pkg/errors"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/source"
	"github.com/rxtech-lab/rates-export/pkg/utils"
)

// SourceInfo contains metadata about a bar source.
type SourceInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requiresAuth"`
}

// sourceRegistry holds metadata about all supported sources.
var sourceRegistry = map[source.SourceType]SourceInfo{
	source.SourceTerminal: {
		Name:         string(source.SourceTerminal),
		DisplayName:  "Trading Terminal",
		Description:  "Local trading terminal reached through its HTTP bridge, native timeframe codes",
		RequiresAuth: false,
	},
	source.SourcePolygon: {
		Name:         string(source.SourcePolygon),
		DisplayName:  "Polygon.io",
		Description:  "US stock market data provider with historical OHLCV aggregates",
		RequiresAuth: true,
	},
	source.SourceBinance: {
		Name:         string(source.SourceBinance),
		DisplayName:  "Binance",
		Description:  "Cryptocurrency exchange with public kline data for crypto trading pairs",
		RequiresAuth: false,
	},
}

// GetSupportedSources returns the names of all supported sources, sorted.
func GetSupportedSources() []string {
	sources := make([]string, 0, len(sourceRegistry))
	for sourceType := range sourceRegistry {
		sources = append(sources, string(sourceType))
	}

	slices.Sort(sources)

	return sources
}

// GetSourceInfo returns metadata for a specific source.
func GetSourceInfo(sourceName string) (SourceInfo, error) {
	info, exists := sourceRegistry[source.SourceType(sourceName)]
	if !exists {
		return SourceInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported source: %s", sourceName)
	}

	return info, nil
}

// GetExportConfigSchema returns the JSON schema of ExportConfig.
func GetExportConfigSchema() (string, error) {
	//nolint:exhaustruct // Empty struct is intentional for schema generation
	return utils.GetSchemaFromConfig(ExportConfig{})
}
