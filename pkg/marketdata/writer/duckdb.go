package writer

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/rates-export/internal/logger"
	"github.com/rxtech-lab/rates-export/internal/types"
	"go.uber.org/zap"
)

const tableName = "market_data"

// DuckDBWriter implements the DatasetWriter interface for DuckDB.
// Rows are staged in an in-memory table and exported with DuckDB's Parquet COPY.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string // Parquet file, or root directory when partitioned
	options    Options
	logger     *logger.Logger
}

// NewDuckDBWriter creates a new DuckDBWriter.
// outputPath is the Parquet file to write, or the root of the hive tree when options.PartitionBy is set.
func NewDuckDBWriter(outputPath string, options Options) DatasetWriter {
	if options.Compression == "" {
		options.Compression = CompressionSnappy
	}

	log := options.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &DuckDBWriter{
		outputPath: outputPath,
		options:    options,
		logger:     log,
	}
}

// Initialize opens an in-memory database, creates the staging table,
// begins a transaction, and prepares the insert statement.
func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_data (
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			tick_volume BIGINT,
			spread INTEGER,
			real_volume DOUBLE,
			ticket TEXT,
			timeframe TEXT
		)
	`)
	if err != nil {
		w.db.Close() // Ensure DB is closed on error during init
		w.db = nil

		return fmt.Errorf("failed to create table: %w", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()
		w.db = nil

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	insertSQL, _, err := squirrel.
		Insert(tableName).
		Columns(types.DatasetColumns...).
		Values(make([]any, len(types.DatasetColumns))...).
		ToSql()
	if err != nil {
		w.tx.Rollback()
		w.db.Close()
		w.tx, w.db = nil, nil

		return fmt.Errorf("failed to build insert statement: %w", err)
	}

	w.stmt, err = w.tx.Prepare(insertSQL)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()
		w.tx, w.db = nil, nil

		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	return nil
}

// Write stages a single tagged bar using the prepared statement within the transaction.
func (w *DuckDBWriter) Write(bar types.TaggedBar) error {
	if w.stmt == nil {
		return fmt.Errorf("writer not initialized or statement is nil")
	}

	_, err := w.stmt.Exec(
		bar.Time,
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.TickVolume,
		bar.Spread,
		bar.RealVolume,
		bar.Ticket,
		bar.Timeframe,
	)
	if err != nil {
		return fmt.Errorf("failed to insert data: %w", err)
	}

	return nil
}

// Finalize commits the transaction and exports the staged rows to Parquet.
func (w *DuckDBWriter) Finalize() (outputPath string, err error) {
	if w.tx == nil {
		return "", fmt.Errorf("writer not initialized or transaction is nil")
	}

	if w.stmt != nil {
		w.stmt.Close()
		w.stmt = nil
	}

	if err = w.tx.Commit(); err != nil {
		w.tx.Rollback()
		w.tx = nil

		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.tx = nil // Transaction is finished

	_, err = w.db.Exec(w.copyStatement())
	if err != nil {
		return "", fmt.Errorf("failed to export to Parquet: %w", err)
	}

	return w.outputPath, nil
}

// copyStatement builds the COPY ... TO statement for the configured layout.
func (w *DuckDBWriter) copyStatement() string {
	options := []string{
		"FORMAT PARQUET",
		fmt.Sprintf("COMPRESSION '%s'", w.options.Compression),
	}

	if len(w.options.PartitionBy) > 0 {
		columns := make([]string, len(w.options.PartitionBy))
		for i, column := range w.options.PartitionBy {
			columns[i] = quoteIdentifier(column)
		}

		options = append(options,
			fmt.Sprintf("PARTITION_BY (%s)", strings.Join(columns, ", ")),
			"OVERWRITE_OR_IGNORE",
		)
	}

	return fmt.Sprintf("COPY %s TO %s (%s)", tableName, quoteLiteral(w.outputPath), strings.Join(options, ", "))
}

// Close releases the statement, the transaction (rolled back if still open) and the database.
func (w *DuckDBWriter) Close() error {
	var closeErrors []error

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to close statement: %w", err))
		}

		w.stmt = nil
	}

	// If transaction is still active (e.g., Finalize wasn't called or failed), rollback
	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			w.logger.Warn("Failed to rollback transaction during close",
				zap.String("path", w.outputPath),
				zap.Error(err),
			)
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Errorf("failed to close db connection: %w", err))
		}

		w.db = nil
	}

	if len(closeErrors) > 0 {
		errMsg := "errors occurred during close:"
		for _, e := range closeErrors {
			errMsg += fmt.Sprintf("\n- %v", e)
		}

		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

// GetOutputPath returns the configured output path.
func (w *DuckDBWriter) GetOutputPath() string {
	return w.outputPath
}

// quoteLiteral renders s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdentifier renders s as a SQL identifier.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
