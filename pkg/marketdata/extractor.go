package marketdata

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/rates-export/internal/logger"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/errors"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/source"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// ExtractorConfig holds the configuration of an Extractor.
type ExtractorConfig struct {
	SourceType  source.SourceType  `validate:"required,oneof=terminal polygon binance"`
	Source      source.Config      `validate:"-"`
	Compression writer.Compression `validate:"omitempty,oneof=snappy zstd gzip uncompressed"`
	OnProgress  OnProgress         `validate:"-"`
}

// Extractor opens a session on a source and exposes the fetch, collect and save operations
// over it. Close it when done.
type Extractor struct {
	session   *Session
	fetcher   *SeriesFetcher
	collector *BatchCollector
	persister *Persister
	logger    *logger.Logger
}

// NewExtractor validates config, creates the configured source and opens a session on it.
func NewExtractor(ctx context.Context, config ExtractorConfig, log *logger.Logger) (*Extractor, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid extractor configuration", err)
	}

	if config.SourceType == source.SourcePolygon && config.Source.PolygonApiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon API key is required")
	}

	src, err := source.NewSource(config.SourceType, config.Source)
	if err != nil {
		return nil, err
	}

	return newExtractor(ctx, src, NewPersister(config.Compression, log), config.OnProgress, log)
}

// NewExtractorWithSource opens a session on src and persists through factory.
func NewExtractorWithSource(ctx context.Context, src source.Source, factory writer.Factory, log *logger.Logger) (*Extractor, error) {
	return newExtractor(ctx, src, NewPersisterWithWriter(factory, writer.CompressionSnappy, log), nil, log)
}

func newExtractor(ctx context.Context, src source.Source, persister *Persister, onProgress OnProgress, log *logger.Logger) (*Extractor, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	session, err := OpenSession(ctx, src, log)
	if err != nil {
		return nil, err
	}

	fetcher := NewSeriesFetcher(session, log)

	return &Extractor{
		session:   session,
		fetcher:   fetcher,
		collector: NewBatchCollector(fetcher, log, onProgress),
		persister: persister,
		logger:    log,
	}, nil
}

// ExtractData fetches one series over the trailing window, tagged with its ticket and timeframe.
// It does not change the stored dataset.
func (e *Extractor) ExtractData(ctx context.Context, symbol string, timeframe types.Timeframe) ([]types.TaggedBar, error) {
	result, err := e.fetcher.Fetch(ctx, symbol, timeframe)
	if err != nil {
		return nil, err
	}

	return tagSeries(result), nil
}

// ExtractMultipleData collects the cross product of symbols and timeframes and stores the
// result as the current dataset.
func (e *Extractor) ExtractMultipleData(ctx context.Context, symbols []string, timeframes []types.Timeframe) (*Dataset, error) {
	return e.collector.Collect(ctx, symbols, timeframes)
}

// Data returns the stored dataset, or nil before the first successful collection.
func (e *Extractor) Data() *Dataset {
	return e.collector.Current()
}

// SaveToParquet writes the stored dataset to path, hive-partitioned when partition columns are given.
func (e *Extractor) SaveToParquet(ctx context.Context, path string, partitionColumns ...string) error {
	partitions := optional.None[[]string]()
	if len(partitionColumns) > 0 {
		partitions = optional.Some(partitionColumns)
	}

	return e.persister.Save(ctx, e.collector.Current(), path, partitions)
}

// Close shuts the session down. It is safe to call more than once.
func (e *Extractor) Close() error {
	if err := e.session.Close(); err != nil {
		e.logger.Warn("Failed to close source session", zap.Error(err))

		return err
	}

	return nil
}
