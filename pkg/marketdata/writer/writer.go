package writer

import (
	"github.com/rxtech-lab/rates-export/internal/logger"
	"github.com/rxtech-lab/rates-export/internal/types"
)

// Compression is a Parquet compression codec.
type Compression string

const (
	CompressionSnappy       Compression = "snappy"
	CompressionZstd         Compression = "zstd"
	CompressionGzip         Compression = "gzip"
	CompressionUncompressed Compression = "uncompressed"
)

// Options configure how a dataset is laid out on disk.
type Options struct {
	// PartitionBy lists the columns used for hive partitioning. Empty writes a single file.
	PartitionBy []string
	// Compression defaults to snappy.
	Compression Compression
	// Logger receives cleanup warnings. Nil discards them.
	Logger *logger.Logger
}

// DatasetWriter defines the interface for writing a tagged dataset to a destination.
type DatasetWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write buffers a single tagged bar.
	Write(bar types.TaggedBar) error
	// Finalize completes the writing process (e.g., commits transactions, exports files).
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output path.
	GetOutputPath() string
}

// Factory creates a DatasetWriter for an output path.
type Factory func(outputPath string, options Options) DatasetWriter
