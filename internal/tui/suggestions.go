package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	suggestionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	scoreStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// SuggestionsModel shows ranked candidates for one task.
type SuggestionsModel struct {
	client    *Client
	viewport  viewport.Model
	taskID    string
	taskTitle string
	rows      []SuggestionRow
	loading   bool
}

// NewSuggestionsModel creates a new suggestions panel.
func NewSuggestionsModel(client *Client) *SuggestionsModel {
	return &SuggestionsModel{
		client:   client,
		viewport: viewport.New(80, 20),
	}
}

// SetSize sets the panel dimensions.
func (m *SuggestionsModel) SetSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h - 2
}

// Load fetches suggestions for the given task.
func (m *SuggestionsModel) Load(taskID, taskTitle string) tea.Cmd {
	m.taskID = taskID
	m.taskTitle = taskTitle
	m.loading = true
	return func() tea.Msg {
		rows, err := m.client.TaskSuggestions(taskID)
		if err != nil {
			return errMsg{err}
		}
		return suggestionsLoadedMsg{rows}
	}
}

// Init implements tea.Model; suggestions load on demand via Load.
func (m *SuggestionsModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m *SuggestionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case suggestionsLoadedMsg:
		m.loading = false
		m.rows = msg.rows
		m.viewport.SetContent(m.render())
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "r" && m.taskID != "" {
			return m, m.Load(m.taskID, m.taskTitle)
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the panel.
func (m *SuggestionsModel) View() string {
	title := suggestionTitleStyle.Render("Suggestions: " + m.taskTitle)
	if m.loading {
		return title + "\n\nLoading suggestions..."
	}
	return title + "\n" + m.viewport.View()
}

func (m *SuggestionsModel) render() string {
	if len(m.rows) == 0 {
		return dimStyle.Render("No candidates found")
	}

	var b strings.Builder
	for i, row := range m.rows {
		fmt.Fprintf(&b, "%d. %s  %s\n", i+1, row.Name,
			scoreStyle.Render(fmt.Sprintf("%.2f", row.FitScore)))
		fmt.Fprintf(&b, "   %s\n", dimStyle.Render(row.Type))
		fmt.Fprintf(&b, "   %s\n", row.SkillMatch)
		fmt.Fprintf(&b, "   %s\n", row.DomainMatch)
		fmt.Fprintf(&b, "   %s\n\n", formatLoad(row.LoadPercent))
	}
	return b.String()
}

type suggestionsLoadedMsg struct {
	rows []SuggestionRow
}
