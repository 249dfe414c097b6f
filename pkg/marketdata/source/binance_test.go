package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/gorilla/mux"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// mockBinanceServer serves /api/v3/ping and /api/v3/klines from a fixed list of klines.
type mockBinanceServer struct {
	mu sync.Mutex

	server     *httptest.Server
	openTimes  []int64 // open time of every kline, in milliseconds
	interval   int64   // kline length in milliseconds
	failKlines bool
	requests   []map[string]string
}

func newMockBinanceServer(openTimes []int64, interval int64) *mockBinanceServer {
	m := &mockBinanceServer{openTimes: openTimes, interval: interval}

	router := mux.NewRouter()
	router.HandleFunc("/api/v3/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/klines", m.handleKlines).Methods(http.MethodGet)

	m.server = httptest.NewServer(router)

	return m
}

func (m *mockBinanceServer) handleKlines(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query := r.URL.Query()
	m.requests = append(m.requests, map[string]string{
		"symbol":    query.Get("symbol"),
		"interval":  query.Get("interval"),
		"startTime": query.Get("startTime"),
		"endTime":   query.Get("endTime"),
	})

	if m.failKlines {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))

		return
	}

	start, _ := strconv.ParseInt(query.Get("startTime"), 10, 64)
	end, _ := strconv.ParseInt(query.Get("endTime"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))

	page := make([][]any, 0)

	for _, openTime := range m.openTimes {
		if openTime < start || openTime > end {
			continue
		}

		if len(page) == limit {
			break
		}

		page = append(page, []any{
			openTime, "100.5", "101.0", "99.5", "100.75", "12.5",
			openTime + m.interval - 1, "1250.0", int64(42), "6.0", "600.0", "0",
		})
	}

	body, _ := json.Marshal(page)
	_, _ = w.Write(body)
}

type BinanceClientTestSuite struct {
	suite.Suite
}

func TestBinanceClientSuite(t *testing.T) {
	suite.Run(t, new(BinanceClientTestSuite))
}

func (suite *BinanceClientTestSuite) newClient(baseURL string) *BinanceClient {
	client, err := NewBinanceClient()
	suite.Require().NoError(err)

	binanceClient := client.(*BinanceClient)
	binanceClient.client.BaseURL = baseURL

	return binanceClient
}

func (suite *BinanceClientTestSuite) TestNewBinanceClient() {
	client, err := NewBinanceClient()
	suite.NoError(err)
	suite.NotNil(client)
	suite.Equal("binance", client.Name())
}

func (suite *BinanceClientTestSuite) TestCopyRatesRangeBeforeInitialize() {
	client := suite.newClient("http://127.0.0.1:0")

	_, err := client.CopyRatesRange(context.Background(), "BTCUSDT", types.TimeframeM1, time.Now().Add(-time.Hour), time.Now())
	suite.True(errors.IsConnectionError(err))
}

func (suite *BinanceClientTestSuite) TestInitializeUnreachable() {
	server := newMockBinanceServer(nil, 60000)
	server.server.Close()

	client := suite.newClient(server.server.URL)
	err := client.Initialize(context.Background())
	suite.True(errors.IsConnectionError(err))
}

func (suite *BinanceClientTestSuite) TestCopyRatesRangePaginates() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	openTimes := make([]int64, 0, 2500)

	for i := 0; i < 2500; i++ {
		openTimes = append(openTimes, start.Add(time.Duration(i)*time.Minute).UnixMilli())
	}

	server := newMockBinanceServer(openTimes, time.Minute.Milliseconds())
	defer server.server.Close()

	client := suite.newClient(server.server.URL)
	suite.Require().NoError(client.Initialize(context.Background()))

	rates, err := client.CopyRatesRange(context.Background(), "BTCUSDT", types.TimeframeM1, start, start.Add(48*time.Hour))
	suite.NoError(err)
	suite.Len(rates, 2500)
	suite.Len(server.requests, 3)
	suite.Equal("1m", server.requests[0]["interval"])
	suite.Equal("BTCUSDT", server.requests[0]["symbol"])

	// Pages continue right after the previous page's last close time
	suite.Equal(strconv.FormatInt(openTimes[1000], 10), server.requests[1]["startTime"])

	for i := 1; i < len(rates); i++ {
		suite.Equal(rates[i-1].Time+60, rates[i].Time)
	}

	suite.Equal(start.Unix(), rates[0].Time)
	suite.Equal(100.5, rates[0].Open)
	suite.Equal(101.0, rates[0].High)
	suite.Equal(99.5, rates[0].Low)
	suite.Equal(100.75, rates[0].Close)
	suite.Equal(int64(42), rates[0].TickVolume)
	suite.Equal(12.5, rates[0].RealVolume)
	suite.Equal(int32(0), rates[0].Spread)
}

func (suite *BinanceClientTestSuite) TestCopyRatesRangeEmpty() {
	server := newMockBinanceServer(nil, time.Minute.Milliseconds())
	defer server.server.Close()

	client := suite.newClient(server.server.URL)
	suite.Require().NoError(client.Initialize(context.Background()))

	rates, err := client.CopyRatesRange(context.Background(), "BTCUSDT", types.TimeframeD1, time.Now().AddDate(-1, 0, 0), time.Now())
	suite.NoError(err)
	suite.Empty(rates)
	suite.Len(server.requests, 1)
}

func (suite *BinanceClientTestSuite) TestCopyRatesRangeAPIError() {
	server := newMockBinanceServer(nil, time.Minute.Milliseconds())
	defer server.server.Close()
	server.failKlines = true

	client := suite.newClient(server.server.URL)
	suite.Require().NoError(client.Initialize(context.Background()))

	_, err := client.CopyRatesRange(context.Background(), "NOPE", types.TimeframeH1, time.Now().AddDate(0, 0, -1), time.Now())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
}

func (suite *BinanceClientTestSuite) TestCopyRatesRangeUnsupportedTimeframe() {
	client := suite.newClient("http://127.0.0.1:0")
	client.initialized = true

	_, err := client.CopyRatesRange(context.Background(), "BTCUSDT", types.Timeframe(7), time.Now().Add(-time.Hour), time.Now())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimespan))
	suite.Contains(err.Error(), "Unknown (7)")
}

func (suite *BinanceClientTestSuite) TestConvertTimeframeToBinanceInterval() {
	expected := map[types.Timeframe]string{
		types.TimeframeM1:  "1m",
		types.TimeframeM5:  "5m",
		types.TimeframeM15: "15m",
		types.TimeframeM30: "30m",
		types.TimeframeH1:  "1h",
		types.TimeframeH4:  "4h",
		types.TimeframeD1:  "1d",
		types.TimeframeW1:  "1w",
		types.TimeframeMN1: "1M",
	}

	for _, tf := range types.AllTimeframes() {
		interval, err := convertTimeframeToBinanceInterval(tf)
		suite.NoError(err)
		suite.Equal(expected[tf], interval)
	}
}

func (suite *BinanceClientTestSuite) TestConvertKlinesInvalidNumber() {
	_, err := convertKlines([]*binance.Kline{{OpenTime: 1, Open: "abc", High: "1", Low: "1", Close: "1", Volume: "1"}})
	suite.Error(err)
	suite.Contains(err.Error(), "abc")
}
