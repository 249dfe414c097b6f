package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/errors"
)

// binanceKlinesLimit is the maximum number of klines Binance returns per request.
const binanceKlinesLimit = 1000

type BinanceClient struct {
	client      *binance.Client
	initialized bool
}

// NewBinanceClient creates a client for Binance public market data, which needs no credentials.
func NewBinanceClient() (Source, error) {
	return &BinanceClient{
		client:      binance.NewClient("", ""),
		initialized: false,
	}, nil
}

func (c *BinanceClient) Name() string {
	return string(SourceBinance)
}

// Initialize checks that the Binance API answers.
func (c *BinanceClient) Initialize(ctx context.Context) error {
	if err := c.client.NewPingService().Do(ctx); err != nil {
		return errors.NewConnectionError(c.Name(), "ping failed", err)
	}

	c.initialized = true

	return nil
}

// CopyRatesRange downloads the klines of symbol between start and end, one page at a time.
// Klines carry no spread, so Spread is always 0.
func (c *BinanceClient) CopyRatesRange(ctx context.Context, symbol string, timeframe types.Timeframe, start time.Time, end time.Time) ([]types.Rate, error) {
	if !c.initialized {
		return nil, errors.NewConnectionError(c.Name(), "client is not initialized", nil)
	}

	interval, err := convertTimeframeToBinanceInterval(timeframe)
	if err != nil {
		return nil, err
	}

	// Binance API uses milliseconds for timestamps
	currentStartTime := start.UnixMilli()
	endTimeMillis := end.UnixMilli()

	rates := []types.Rate{}

	for {
		klines, err := c.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Limit(binanceKlinesLimit).
			Do(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s from Binance", symbol)
		}

		page, err := convertKlines(klines)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse klines for %s", symbol)
		}

		rates = append(rates, page...)

		// A short page is the last one
		if len(klines) < binanceKlinesLimit {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates
		currentStartTime = klines[len(klines)-1].CloseTime + 1
		if currentStartTime > endTimeMillis {
			break
		}
	}

	return rates, nil
}

func (c *BinanceClient) Shutdown() error {
	c.initialized = false

	return nil
}

// convertKlines converts Binance klines into rates keyed by the kline open time.
func convertKlines(klines []*binance.Kline) ([]types.Rate, error) {
	rates := make([]types.Rate, 0, len(klines))

	for _, k := range klines {
		values := make([]float64, 0, 5)

		for _, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid kline value %q at %d: %w", raw, k.OpenTime, err)
			}

			values = append(values, value)
		}

		rates = append(rates, types.Rate{
			Time:       time.UnixMilli(k.OpenTime).Unix(),
			Open:       values[0],
			High:       values[1],
			Low:        values[2],
			Close:      values[3],
			TickVolume: k.TradeNum,
			Spread:     0,
			RealVolume: values[4],
		})
	}

	return rates, nil
}

// convertTimeframeToBinanceInterval converts a timeframe to a Binance interval string.
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
func convertTimeframeToBinanceInterval(timeframe types.Timeframe) (string, error) {
	switch timeframe {
	case types.TimeframeM1:
		return "1m", nil
	case types.TimeframeM5:
		return "5m", nil
	case types.TimeframeM15:
		return "15m", nil
	case types.TimeframeM30:
		return "30m", nil
	case types.TimeframeH1:
		return "1h", nil
	case types.TimeframeH4:
		return "4h", nil
	case types.TimeframeD1:
		return "1d", nil
	case types.TimeframeW1:
		return "1w", nil
	case types.TimeframeMN1:
		return "1M", nil
	default:
		return "", errors.New(errors.ErrCodeInvalidTimespan, fmt.Sprintf("unsupported timeframe for Binance: %s", timeframe.Label()))
	}
}
