package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/rates-export/internal/logger"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/errors"
	"go.uber.org/zap"
)

// OnProgress is called after every fetched series of a batch.
type OnProgress = func(current float64, total float64, message string)

// BatchCollector fetches the cross product of symbols and timeframes into one Dataset.
type BatchCollector struct {
	fetcher    *SeriesFetcher
	logger     *logger.Logger
	onProgress OnProgress
	current    *Dataset
}

// NewBatchCollector creates a collector. onProgress may be nil.
func NewBatchCollector(fetcher *SeriesFetcher, log *logger.Logger, onProgress OnProgress) *BatchCollector {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BatchCollector{
		fetcher:    fetcher,
		logger:     log,
		onProgress: onProgress,
		current:    nil,
	}
}

// Current returns the dataset of the last successful Collect, or nil.
func (c *BatchCollector) Current() *Dataset {
	return c.current
}

// Collect fetches every (symbol, timeframe) pair, symbols in the outer loop, and concatenates
// the tagged series in that order. The first failing pair aborts the batch: its error is
// returned unchanged, later pairs are not fetched and the stored dataset is left as it was.
func (c *BatchCollector) Collect(ctx context.Context, symbols []string, timeframes []types.Timeframe) (*Dataset, error) {
	if len(symbols) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "at least one symbol is required")
	}

	if len(timeframes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "at least one timeframe is required")
	}

	total := len(symbols) * len(timeframes)
	rows := make([]types.TaggedBar, 0)
	series := make([]SeriesKey, 0, total)
	done := 0

	for _, symbol := range symbols {
		for _, timeframe := range timeframes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			result, err := c.fetcher.Fetch(ctx, symbol, timeframe)
			if err != nil {
				c.logger.Error("Batch aborted",
					zap.String("symbol", symbol),
					zap.String("timeframe", timeframe.Label()),
					zap.Int("completed", done),
					zap.Int("total", total),
					zap.Error(err),
				)

				return nil, err
			}

			tagged := tagSeries(result)
			rows = append(rows, tagged...)
			series = append(series, SeriesKey{
				Ticket:    symbol,
				Timeframe: timeframe.Label(),
				Rows:      len(tagged),
			})

			done++
			if c.onProgress != nil {
				c.onProgress(float64(done), float64(total), fmt.Sprintf("Fetched %s %s", symbol, timeframe.Label()))
			}
		}
	}

	dataset := &Dataset{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Rows:      rows,
		Series:    series,
	}

	c.current = dataset

	c.logger.Info("Batch collected",
		zap.String("dataset", dataset.ID),
		zap.Int("series", len(series)),
		zap.Int("rows", len(rows)),
	)

	return dataset, nil
}
