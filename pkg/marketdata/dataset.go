package marketdata

import (
	"time"

	"github.com/rxtech-lab/rates-export/internal/types"
)

// SeriesKey identifies one series of a dataset.
type SeriesKey struct {
	Ticket    string
	Timeframe string
	Rows      int
}

// Dataset is the concatenation of every series collected by one batch, in cross-product order.
// It is not modified after Collect returns it.
type Dataset struct {
	ID        string
	CreatedAt time.Time
	Rows      []types.TaggedBar
	Series    []SeriesKey
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}

	return len(d.Rows)
}

// Columns returns the dataset's column names in persisted order.
func (d *Dataset) Columns() []string {
	columns := make([]string, len(types.DatasetColumns))
	copy(columns, types.DatasetColumns)

	return columns
}

// SeriesRows returns the rows of one series.
func (d *Dataset) SeriesRows(ticket string, timeframe string) []types.TaggedBar {
	if d == nil {
		return nil
	}

	offset := 0

	for _, key := range d.Series {
		if key.Ticket == ticket && key.Timeframe == timeframe {
			return d.Rows[offset : offset+key.Rows]
		}

		offset += key.Rows
	}

	return nil
}

// tagSeries labels every bar of result with its ticket and timeframe label.
func tagSeries(result *SeriesResult) []types.TaggedBar {
	label := result.Timeframe.Label()
	tagged := make([]types.TaggedBar, len(result.Bars))

	for i, bar := range result.Bars {
		tagged[i] = types.TaggedBar{
			Bar:       bar,
			Ticket:    result.Symbol,
			Timeframe: label,
		}
	}

	return tagged
}
