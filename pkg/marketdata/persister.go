package marketdata

import (
	"context"
	"os"
	"path/filepath"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/rates-export/internal/logger"
	"github.com/rxtech-lab/rates-export/pkg/errors"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// Persister writes a collected dataset to Parquet.
type Persister struct {
	newWriter   writer.Factory
	compression writer.Compression
	logger      *logger.Logger
}

// NewPersister creates a persister writing through DuckDB with the given compression.
// An empty compression defaults to snappy.
func NewPersister(compression writer.Compression, log *logger.Logger) *Persister {
	return NewPersisterWithWriter(writer.NewDuckDBWriter, compression, log)
}

// NewPersisterWithWriter creates a persister using a custom writer factory.
func NewPersisterWithWriter(factory writer.Factory, compression writer.Compression, log *logger.Logger) *Persister {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Persister{
		newWriter:   factory,
		compression: compression,
		logger:      log,
	}
}

// Save writes dataset to path. Without partition columns (None or empty) path is a single file;
// otherwise it is the root of a hive tree with one <column>=<value> level per column.
// A nil dataset fails with *errors.NoDataError before anything touches the filesystem.
// Sink failures are returned as the writer reported them.
func (p *Persister) Save(ctx context.Context, dataset *Dataset, path string, partitionColumns optional.Option[[]string]) error {
	if dataset == nil {
		return errors.NewNoDataError("no data available to save, run a batch collection first")
	}

	if path == "" {
		return errors.New(errors.ErrCodeMissingParameter, "output path is required")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	options := writer.Options{
		PartitionBy: nil,
		Compression: p.compression,
		Logger:      p.logger,
	}
	if partitionColumns.IsSome() {
		options.PartitionBy = partitionColumns.Unwrap()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	datasetWriter := p.newWriter(path, options)
	if err := datasetWriter.Initialize(); err != nil {
		return err
	}

	defer func() {
		if err := datasetWriter.Close(); err != nil {
			p.logger.Warn("Failed to close writer", zap.String("path", path), zap.Error(err))
		}
	}()

	for _, row := range dataset.Rows {
		if err := datasetWriter.Write(row); err != nil {
			return err
		}
	}

	outputPath, err := datasetWriter.Finalize()
	if err != nil {
		return err
	}

	p.logger.Info("Dataset saved",
		zap.String("path", outputPath),
		zap.String("dataset", dataset.ID),
		zap.Int("rows", dataset.Len()),
		zap.Strings("partition_by", options.PartitionBy),
	)

	return nil
}
