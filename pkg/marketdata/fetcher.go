package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/rxtech-lab/rates-export/internal/logger"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/errors"
	"go.uber.org/zap"
)

// HistoryYears is the length of the trailing window every fetch requests.
const HistoryYears = 10

// SeriesRequest identifies one symbol/timeframe/window fetch.
type SeriesRequest struct {
	Symbol    string
	Timeframe types.Timeframe
	Start     time.Time
	End       time.Time
}

// SeriesResult holds the bars of one SeriesRequest, in source order. Bars is never empty.
type SeriesResult struct {
	SeriesRequest
	Bars []types.Bar
}

// SeriesFetcher fetches the trailing HistoryYears of bars for one symbol and timeframe.
type SeriesFetcher struct {
	session *Session
	logger  *logger.Logger
	now     func() time.Time
}

// NewSeriesFetcher creates a fetcher reading through session.
func NewSeriesFetcher(session *Session, log *logger.Logger) *SeriesFetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &SeriesFetcher{
		session: session,
		logger:  log,
		now:     time.Now,
	}
}

// window returns [now - HistoryYears, now], computed fresh on every call.
func (f *SeriesFetcher) window() (time.Time, time.Time) {
	end := f.now()

	return end.AddDate(-HistoryYears, 0, 0), end
}

// Fetch requests the bars of symbol at timeframe over the trailing window.
// It fails with *errors.EmptySeriesError when the source returns no bars.
func (f *SeriesFetcher) Fetch(ctx context.Context, symbol string, timeframe types.Timeframe) (*SeriesResult, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "symbol is required")
	}

	if !f.session.IsOpen() {
		return nil, errors.NewConnectionError("source", "session is not open", nil)
	}

	start, end := f.window()
	request := SeriesRequest{
		Symbol:    symbol,
		Timeframe: timeframe,
		Start:     start,
		End:       end,
	}

	rates, err := f.session.Source().CopyRatesRange(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}

	if len(rates) == 0 {
		return nil, errors.NewEmptySeriesError(symbol, timeframe.Label(), int32(timeframe), start, end)
	}

	bars := make([]types.Bar, len(rates))
	for i, rate := range rates {
		bars[i] = rate.ToBar()
	}

	f.logger.Debug("Fetched series",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe.Label()),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("bars", len(bars)),
	)

	return &SeriesResult{
		SeriesRequest: request,
		Bars:          bars,
	}, nil
}
