package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/internal/version"
	"github.com/rxtech-lab/rates-export/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBridgeURL is where the terminal bridge listens unless configured otherwise.
	DefaultBridgeURL = "http://127.0.0.1:8228"
	// DefaultBridgeTimeout bounds a single bridge request.
	DefaultBridgeTimeout = 60 * time.Second

	initializePath = "/initialize"
	ratesRangePath = "/rates/range"
	shutdownPath   = "/shutdown"
)

// TerminalClient reads bars from a trading terminal through its local HTTP bridge.
//
// The bridge exposes:
//
//	POST /initialize                                      -> 2xx once the terminal is connected
//	GET  /rates/range?symbol=&timeframe=&from=&to=        -> JSON array of rate objects
//	POST /shutdown                                        -> releases the terminal connection
//
// from and to are epoch seconds, timeframe is the numeric timeframe code.
type TerminalClient struct {
	client      *resty.Client
	baseURL     string
	initialized bool
}

func NewTerminalClient(baseURL string, token string, timeout time.Duration) (Source, error) {
	if baseURL == "" {
		baseURL = DefaultBridgeURL
	}

	if timeout <= 0 {
		timeout = DefaultBridgeTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	if token != "" {
		client.SetAuthToken(token)
	}

	return &TerminalClient{
		client:      client,
		baseURL:     baseURL,
		initialized: false,
	}, nil
}

func (c *TerminalClient) Name() string {
	return string(SourceTerminal)
}

// Initialize asks the bridge to connect to the terminal.
func (c *TerminalClient) Initialize(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Post(initializePath)
	if err != nil {
		return errors.NewConnectionError(c.Name(), fmt.Sprintf("bridge at %s is unreachable", c.baseURL), err)
	}

	if resp.IsError() {
		return errors.NewConnectionError(c.Name(), "error initializing terminal", fmt.Errorf("%s", bridgeErrorMessage(resp)))
	}

	bridgeVersion := gjson.GetBytes(resp.Body(), "version").String()
	if err := version.CheckBridgeCompatibility(version.BridgeAPIVersion, bridgeVersion); err != nil {
		return errors.NewConnectionError(c.Name(), "unsupported bridge version", err)
	}

	c.initialized = true

	return nil
}

// CopyRatesRange requests the bars of symbol at timeframe between start and end.
func (c *TerminalClient) CopyRatesRange(ctx context.Context, symbol string, timeframe types.Timeframe, start time.Time, end time.Time) ([]types.Rate, error) {
	if !c.initialized {
		return nil, errors.NewConnectionError(c.Name(), "terminal is not initialized", nil)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    symbol,
			"timeframe": strconv.Itoa(int(timeframe)),
			"from":      strconv.FormatInt(start.Unix(), 10),
			"to":        strconv.FormatInt(end.Unix(), 10),
		}).
		Get(ratesRangePath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, errors.NewConnectionError(c.Name(), fmt.Sprintf("failed to request rates for %s", symbol), err)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeMarketDataFetchFailed,
			"terminal rejected rates request for %s %s (status %d): %s",
			symbol, timeframe.Label(), resp.StatusCode(), bridgeErrorMessage(resp))
	}

	rates, err := parseRates(resp.Body())
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse rates for %s %s", symbol, timeframe.Label())
	}

	return rates, nil
}

// Shutdown releases the terminal connection. It is a no-op when Initialize never succeeded.
func (c *TerminalClient) Shutdown() error {
	if !c.initialized {
		return nil
	}

	c.initialized = false

	resp, err := c.client.R().Post(shutdownPath)
	if err != nil {
		return errors.NewConnectionError(c.Name(), "failed to shut down terminal", err)
	}

	if resp.IsError() {
		return errors.NewConnectionError(c.Name(), "failed to shut down terminal", fmt.Errorf("%s", bridgeErrorMessage(resp)))
	}

	return nil
}

// parseRates decodes the bridge's JSON rate array. null and [] both mean no data.
func parseRates(body []byte) ([]types.Rate, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}

	result := gjson.ParseBytes(body)
	if result.Type == gjson.Null {
		return []types.Rate{}, nil
	}

	if !result.IsArray() {
		return nil, fmt.Errorf("expected a JSON array of rates, got %s", result.Type)
	}

	items := result.Array()
	rates := make([]types.Rate, 0, len(items))

	for idx, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("rate %d is not an object", idx)
		}

		if !item.Get("time").Exists() {
			return nil, fmt.Errorf("rate %d has no time field", idx)
		}

		rates = append(rates, types.Rate{
			Time:       item.Get("time").Int(),
			Open:       item.Get("open").Float(),
			High:       item.Get("high").Float(),
			Low:        item.Get("low").Float(),
			Close:      item.Get("close").Float(),
			TickVolume: item.Get("tick_volume").Int(),
			Spread:     int32(item.Get("spread").Int()),
			RealVolume: item.Get("real_volume").Float(),
		})
	}

	return rates, nil
}

// bridgeErrorMessage extracts the bridge's error field, falling back to the HTTP status.
func bridgeErrorMessage(resp *resty.Response) string {
	if message := gjson.GetBytes(resp.Body(), "error").String(); message != "" {
		return message
	}

	return resp.Status()
}
