package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/rates-export/internal/types"
	"github.com/rxtech-lab/rates-export/pkg/marketdata/writer"
)

// Browser states.
const (
	stateLoading = iota
	stateSeriesList
	stateBarTable
)

// datasetLoadedMsg carries a persisted dataset read from disk.
type datasetLoadedMsg struct {
	stats writer.DatasetStats
	bars  []types.TaggedBar
}

// loadErrorMsg indicates the dataset could not be read.
type loadErrorMsg struct {
	err error
}

// browseModel is the Bubble Tea model of the browse command.
// It lists the series of a persisted dataset and shows the bars of the selected one.
type browseModel struct {
	ctx  context.Context
	path string

	state       int
	stats       writer.DatasetStats
	bars        []types.TaggedBar
	selected    writer.SeriesStats
	seriesTable table.Model
	barTable    table.Model
	err         error
	width       int
	height      int
}

func newBrowseModel(ctx context.Context, path string) browseModel {
	return browseModel{
		ctx:         ctx,
		path:        path,
		state:       stateLoading,
		seriesTable: newSeriesTable(),
		barTable:    newBarTable(),
	}
}

// Init implements tea.Model.
func (m browseModel) Init() tea.Cmd {
	return loadDataset(m.ctx, m.path)
}

func loadDataset(ctx context.Context, path string) tea.Cmd {
	return func() tea.Msg {
		stats, err := writer.Stats(ctx, path)
		if err != nil {
			return loadErrorMsg{err: err}
		}

		bars, err := writer.ReadParquet(ctx, path)
		if err != nil {
			return loadErrorMsg{err: err}
		}

		return datasetLoadedMsg{stats: stats, bars: bars}
	}
}

// Update implements tea.Model.
func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.state == stateBarTable {
				m.state = stateSeriesList
				m.seriesTable.Focus()
				m.barTable.Blur()
			}

			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.seriesTable.SetWidth(msg.Width)
		m.seriesTable.SetHeight(msg.Height - 6)
		m.barTable.SetWidth(msg.Width)
		m.barTable.SetHeight(msg.Height - 6)

		return m, nil

	case datasetLoadedMsg:
		m.stats = msg.stats
		m.bars = msg.bars
		m.seriesTable = setSeriesRows(m.seriesTable, msg.stats)
		m.state = stateSeriesList

		return m, nil

	case loadErrorMsg:
		m.err = msg.err
		m.state = stateSeriesList

		return m, nil
	}

	switch m.state {
	case stateSeriesList:
		return m.updateSeriesList(msg)
	case stateBarTable:
		var cmd tea.Cmd
		m.barTable, cmd = m.barTable.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m browseModel) updateSeriesList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		cursor := m.seriesTable.Cursor()
		if cursor < 0 || cursor >= len(m.stats.Series) {
			return m, nil
		}

		m.selected = m.stats.Series[cursor]
		m.barTable = setBarRows(m.barTable, seriesBars(m.bars, m.selected.Ticket, m.selected.Timeframe))
		m.barTable.GotoTop()
		m.barTable.Focus()
		m.seriesTable.Blur()
		m.state = stateBarTable

		return m, nil
	}

	var cmd tea.Cmd
	m.seriesTable, cmd = m.seriesTable.Update(msg)

	return m, cmd
}

// seriesBars returns the bars of one (ticket, timeframe) series in dataset order.
func seriesBars(bars []types.TaggedBar, ticket, timeframe string) []types.TaggedBar {
	var out []types.TaggedBar

	for _, bar := range bars {
		if bar.Ticket == ticket && bar.Timeframe == timeframe {
			out = append(out, bar)
		}
	}

	return out
}

// View implements tea.Model.
func (m browseModel) View() string {
	var s strings.Builder

	switch m.state {
	case stateLoading:
		s.WriteString(TitleStyle.Render("Rates Browser"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Loading %s...\n", m.path))

	case stateSeriesList:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Rates Browser - %s", m.path)))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
			s.WriteString(HelpStyle.Render("q: quit"))

			return s.String()
		}

		s.WriteString(m.seriesTable.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render(fmt.Sprintf("%d series, %d bars | Enter: open | q: quit", len(m.stats.Series), m.stats.TotalRows)))

	case stateBarTable:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("%s %s", m.selected.Ticket, m.selected.Timeframe)))
		s.WriteString("\n\n")
		s.WriteString(m.barTable.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Esc: back | q: quit"))
	}

	return s.String()
}
