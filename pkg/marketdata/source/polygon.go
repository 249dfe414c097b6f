package source

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/errors"
)

// polygonAggsLimit is the maximum page size accepted by the aggregates endpoint.
const polygonAggsLimit = 50000

type PolygonClient struct {
	client      *polygon.Client
	initialized bool
}

func NewPolygonClient(apiKey string) (Source, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "apiKey is required")
	}

	return &PolygonClient{
		client:      polygon.New(apiKey),
		initialized: false,
	}, nil
}

func (c *PolygonClient) Name() string {
	return string(SourcePolygon)
}

// Initialize marks the client ready. Polygon is stateless over REST, so there is nothing to dial.
func (c *PolygonClient) Initialize(_ context.Context) error {
	if c.client == nil {
		return errors.NewConnectionError(c.Name(), "client is not configured", nil)
	}

	c.initialized = true

	return nil
}

// CopyRatesRange lists the aggregates of symbol between start and end.
// Polygon aggregates carry no spread, so Spread is always 0.
func (c *PolygonClient) CopyRatesRange(ctx context.Context, symbol string, timeframe types.Timeframe, start time.Time, end time.Time) ([]types.Rate, error) {
	if !c.initialized {
		return nil, errors.NewConnectionError(c.Name(), "client is not initialized", nil)
	}

	multiplier, timespan, err := convertTimeframeToPolygonTimespan(timeframe)
	if err != nil {
		return nil, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(polygonAggsLimit)

	iter := c.client.ListAggs(ctx, params)

	rates := []types.Rate{}

	for iter.Next() {
		agg := iter.Item()
		rates = append(rates, types.Rate{
			Time:       time.Time(agg.Timestamp).Unix(),
			Open:       agg.Open,
			High:       agg.High,
			Low:        agg.Low,
			Close:      agg.Close,
			TickVolume: agg.Transactions,
			Spread:     0,
			RealVolume: agg.Volume,
		})
	}

	if iter.Err() != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "error iterating polygon aggregates for %s", symbol)
	}

	return rates, nil
}

func (c *PolygonClient) Shutdown() error {
	c.initialized = false

	return nil
}

// convertTimeframeToPolygonTimespan maps a timeframe to Polygon's multiplier and timespan.
func convertTimeframeToPolygonTimespan(timeframe types.Timeframe) (int, models.Timespan, error) {
	switch timeframe {
	case types.TimeframeM1:
		return 1, models.Minute, nil
	case types.TimeframeM5:
		return 5, models.Minute, nil
	case types.TimeframeM15:
		return 15, models.Minute, nil
	case types.TimeframeM30:
		return 30, models.Minute, nil
	case types.TimeframeH1:
		return 1, models.Hour, nil
	case types.TimeframeH4:
		return 4, models.Hour, nil
	case types.TimeframeD1:
		return 1, models.Day, nil
	case types.TimeframeW1:
		return 1, models.Week, nil
	case types.TimeframeMN1:
		return 1, models.Month, nil
	default:
		return 0, "", errors.New(errors.ErrCodeInvalidTimespan, fmt.Sprintf("unsupported timeframe for Polygon: %s", timeframe.Label()))
	}
}
