package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/errors"
)

// SourceType defines the type of bar source.
type SourceType string

const (
	SourceTerminal SourceType = "terminal"
	SourcePolygon  SourceType = "polygon"
	SourceBinance  SourceType = "binance"
)

// Source is a historical bar source.
type Source interface {
	// Name returns the source name used in logs and errors.
	Name() string
	// Initialize establishes the connection to the source.
	// A failure is reported as an *errors.ConnectionError.
	Initialize(ctx context.Context) error
	// CopyRatesRange returns the bars of symbol at timeframe whose open time lies in [start, end],
	// ordered by time. An empty slice means the source has no data for the request.
	// example:
	// CopyRatesRange(ctx, "WDO$", types.TimeframeM5, time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), time.Now())
	CopyRatesRange(ctx context.Context, symbol string, timeframe types.Timeframe, start time.Time, end time.Time) ([]types.Rate, error)
	// Shutdown releases the connection.
	Shutdown() error
}

// Config holds the settings of every source type. Only the fields of the selected type are used.
type Config struct {
	// BridgeURL is the base URL of the terminal bridge.
	BridgeURL string
	// BridgeToken is sent as a bearer token to the terminal bridge when set.
	BridgeToken string
	// Timeout bounds every request to the terminal bridge.
	Timeout time.Duration
	// PolygonApiKey authenticates against Polygon.io.
	PolygonApiKey string
}

// NewSource creates a new bar source based on the source type.
func NewSource(sourceType SourceType, config Config) (Source, error) {
	switch sourceType {
	case SourceTerminal:
		return NewTerminalClient(config.BridgeURL, config.BridgeToken, config.Timeout)
	case SourcePolygon:
		return NewPolygonClient(config.PolygonApiKey)
	case SourceBinance:
		return NewBinanceClient()
	default:
		return nil, errors.New(errors.ErrCodeInvalidProvider, fmt.Sprintf("unsupported source: %s", sourceType))
	}
}
