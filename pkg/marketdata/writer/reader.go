package writer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/rates-export/internal/types"
)

// SeriesStats summarizes one (ticket, timeframe) series of a persisted dataset.
type SeriesStats struct {
	Ticket    string
	Timeframe string
	Rows      int64
	First     time.Time
	Last      time.Time
}

// DatasetStats summarizes a persisted dataset.
type DatasetStats struct {
	TotalRows int64
	Series    []SeriesStats
}

// parquetSource returns the read_parquet table function for path.
// A directory is read as a hive-partitioned tree; partition values are kept as strings.
func parquetSource(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		pattern := filepath.Join(path, "**", "*.parquet")

		return fmt.Sprintf("read_parquet(%s, hive_partitioning = true, hive_types_autocast = false)", quoteLiteral(pattern)), nil
	}

	return fmt.Sprintf("read_parquet(%s, hive_partitioning = false)", quoteLiteral(path)), nil
}

// ReadParquet reads a dataset written by DuckDBWriter, from a single file or a partitioned tree.
// Rows of a partitioned tree are ordered by ticket, timeframe and time.
func ReadParquet(ctx context.Context, path string) ([]types.TaggedBar, error) {
	src, err := parquetSource(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}
	defer db.Close()

	query := squirrel.Select(types.DatasetColumns...).From(src)
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		query = query.OrderBy("ticket", "timeframe", "time")
	}

	rows, err := query.RunWith(db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query parquet: %w", err)
	}
	defer rows.Close()

	var bars []types.TaggedBar

	for rows.Next() {
		var bar types.TaggedBar

		err := rows.Scan(
			&bar.Time,
			&bar.Open,
			&bar.High,
			&bar.Low,
			&bar.Close,
			&bar.TickVolume,
			&bar.Spread,
			&bar.RealVolume,
			&bar.Ticket,
			&bar.Timeframe,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		bar.Time = bar.Time.UTC()
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return bars, nil
}

// Stats returns the row count and time bounds of every series of a persisted dataset.
func Stats(ctx context.Context, path string) (DatasetStats, error) {
	src, err := parquetSource(path)
	if err != nil {
		return DatasetStats{}, err
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return DatasetStats{}, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}
	defer db.Close()

	rows, err := squirrel.
		Select("ticket", "timeframe", "COUNT(*)", "MIN(time)", "MAX(time)").
		From(src).
		GroupBy("ticket", "timeframe").
		OrderBy("ticket", "timeframe").
		RunWith(db).
		QueryContext(ctx)
	if err != nil {
		return DatasetStats{}, fmt.Errorf("failed to query parquet stats: %w", err)
	}
	defer rows.Close()

	stats := DatasetStats{}

	for rows.Next() {
		var series SeriesStats
		if err := rows.Scan(&series.Ticket, &series.Timeframe, &series.Rows, &series.First, &series.Last); err != nil {
			return DatasetStats{}, fmt.Errorf("failed to scan stats: %w", err)
		}

		series.First = series.First.UTC()
		series.Last = series.Last.UTC()
		stats.TotalRows += series.Rows
		stats.Series = append(stats.Series, series)
	}

	if err := rows.Err(); err != nil {
		return DatasetStats{}, fmt.Errorf("error iterating stats: %w", err)
	}

	return stats, nil
}
