package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/writer"
)

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

func newSeriesTable() table.Model {
	return newTable([]table.Column{
		{Title: "Ticket", Width: 12},
		{Title: "Timeframe", Width: 14},
		{Title: "Rows", Width: 10},
		{Title: "First", Width: 20},
		{Title: "Last", Width: 20},
	})
}

func newBarTable() table.Model {
	t := newTable([]table.Column{
		{Title: "Time", Width: 20},
		{Title: "Open", Width: 12},
		{Title: "High", Width: 12},
		{Title: "Low", Width: 12},
		{Title: "Close", Width: 14},
		{Title: "Tick Vol", Width: 10},
		{Title: "Spread", Width: 8},
		{Title: "Real Vol", Width: 12},
	})
	t.Blur()

	return t
}

const browseTimeLayout = "2006-01-02 15:04"

func setSeriesRows(t table.Model, stats writer.DatasetStats) table.Model {
	rows := make([]table.Row, 0, len(stats.Series))

	for _, series := range stats.Series {
		rows = append(rows, table.Row{
			series.Ticket,
			series.Timeframe,
			strconv.FormatInt(series.Rows, 10),
			series.First.UTC().Format(browseTimeLayout),
			series.Last.UTC().Format(browseTimeLayout),
		})
	}

	t.SetRows(rows)

	return t
}

func setBarRows(t table.Model, bars []types.TaggedBar) table.Model {
	rows := make([]table.Row, 0, len(bars))

	var previous float64
	for _, bar := range bars {
		rows = append(rows, table.Row{
			bar.Time.UTC().Format(browseTimeLayout),
			fmt.Sprintf("%.4f", bar.Open),
			fmt.Sprintf("%.4f", bar.High),
			fmt.Sprintf("%.4f", bar.Low),
			FormatCloseWithTrend(bar.Close, previous),
			strconv.FormatInt(bar.TickVolume, 10),
			strconv.FormatInt(int64(bar.Spread), 10),
			fmt.Sprintf("%.2f", bar.RealVolume),
		})
		previous = bar.Close
	}

	t.SetRows(rows)

	return t
}

