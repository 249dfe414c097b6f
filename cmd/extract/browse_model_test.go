package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var browseStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func browseBars() []types.TaggedBar {
	closes := map[string][]float64{
		"WDO": {5000, 5010, 5005},
		"WIN": {128000, 128000},
	}

	var bars []types.TaggedBar
	for _, ticket := range []string{"WDO", "WIN"} {
		for i, closePrice := range closes[ticket] {
			bars = append(bars, types.TaggedBar{
				Bar: types.Bar{
					Time:       browseStart.Add(time.Duration(i) * time.Minute),
					Open:       closePrice - 1,
					High:       closePrice + 2,
					Low:        closePrice - 2,
					Close:      closePrice,
					TickVolume: 10,
					Spread:     1,
					RealVolume: 25,
				},
				Ticket:    ticket,
				Timeframe: "M1",
			})
		}
	}

	return bars
}

func browseStats() writer.DatasetStats {
	return writer.DatasetStats{
		TotalRows: 5,
		Series: []writer.SeriesStats{
			{Ticket: "WDO", Timeframe: "M1", Rows: 3, First: browseStart, Last: browseStart.Add(2 * time.Minute)},
			{Ticket: "WIN", Timeframe: "M1", Rows: 2, First: browseStart, Last: browseStart.Add(time.Minute)},
		},
	}
}

func loadedModel(t *testing.T) browseModel {
	t.Helper()

	updated, cmd := newBrowseModel(context.Background(), "rates.parquet").Update(datasetLoadedMsg{stats: browseStats(), bars: browseBars()})
	assert.Nil(t, cmd)

	return updated.(browseModel)
}

func TestNewBrowseModel(t *testing.T) {
	m := newBrowseModel(context.Background(), "rates.parquet")

	assert.Equal(t, stateLoading, m.state)
	assert.Contains(t, m.View(), "Loading rates.parquet")
	assert.NotNil(t, m.Init())
}

func TestBrowseModelDatasetLoaded(t *testing.T) {
	m := loadedModel(t)

	assert.Equal(t, stateSeriesList, m.state)
	require.Len(t, m.seriesTable.Rows(), 2)
	assert.Equal(t, []string{"WDO", "M1", "3", "2024-03-01 09:00", "2024-03-01 09:02"}, []string(m.seriesTable.Rows()[0]))
	assert.Contains(t, m.View(), "2 series, 5 bars")
}

func TestBrowseModelOpenAndCloseSeries(t *testing.T) {
	m := loadedModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(browseModel)

	assert.Equal(t, stateBarTable, m.state)
	assert.Equal(t, "WDO", m.selected.Ticket)

	rows := m.barTable.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "5000.0000", rows[0][4])
	assert.Equal(t, "5010.0000 ▲", rows[1][4])
	assert.Equal(t, "5005.0000 ▼", rows[2][4])
	assert.Contains(t, m.View(), "WDO M1")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(browseModel)
	assert.Equal(t, stateSeriesList, m.state)
}

func TestBrowseModelSecondSeries(t *testing.T) {
	m := loadedModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(browseModel)

	assert.Equal(t, "WIN", m.selected.Ticket)
	require.Len(t, m.barTable.Rows(), 2)
	assert.Equal(t, "128000.0000", m.barTable.Rows()[1][4], "unchanged close has no arrow")
}

func TestBrowseModelEnterWithoutSeries(t *testing.T) {
	updated, _ := newBrowseModel(context.Background(), "empty").Update(datasetLoadedMsg{})
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, stateSeriesList, updated.(browseModel).state)
}

func TestBrowseModelLoadError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.parquet")
	m := newBrowseModel(context.Background(), missing)

	msg := loadDataset(context.Background(), missing)()
	loadErr, ok := msg.(loadErrorMsg)
	require.True(t, ok)
	assert.Error(t, loadErr.err)

	updated, _ := m.Update(msg)
	assert.Contains(t, updated.View(), "Error:")
}

func TestBrowseModelQuit(t *testing.T) {
	_, cmd := loadedModel(t).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestFormatCloseWithTrend(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		expected string
	}{
		{name: "first bar", current: 10, previous: 0, expected: "10.0000"},
		{name: "up", current: 11, previous: 10, expected: "11.0000 ▲"},
		{name: "down", current: 9.5, previous: 10, expected: "9.5000 ▼"},
		{name: "flat", current: 10, previous: 10, expected: "10.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCloseWithTrend(tt.current, tt.previous))
		})
	}
}

func TestBrowseFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.parquet")

	w := writer.NewDuckDBWriter(path, writer.Options{Compression: writer.CompressionSnappy})
	require.NoError(t, w.Initialize())
	for _, bar := range browseBars() {
		require.NoError(t, w.Write(bar))
	}
	_, err := w.Finalize()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	tm := teatest.NewTestModel(t, newBrowseModel(context.Background(), path), teatest.WithInitialTermSize(120, 30))

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("2 series, 5 bars"))
	}, teatest.WithDuration(5*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("Tick Vol"))
	}, teatest.WithDuration(2*time.Second))

	assert.NoError(t, tm.Quit())
}
