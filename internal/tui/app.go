// Package tui implements the terminal admin console for Crewplan.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type screen int

const (
	screenResources screen = iota
	screenTasks
	screenSuggestions
)

var (
	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1"))
)

type errMsg struct {
	err error
}

// App is the top-level console model.
type App struct {
	client      *Client
	screen      screen
	resources   *ResourceListModel
	tasks       *TaskListModel
	suggestions *SuggestionsModel
	width       int
	height      int
	lastErr     error
}

// New creates the console app pointed at the given API address.
func New(apiAddr string) *App {
	client := NewClient(apiAddr)
	return &App{
		client:      client,
		screen:      screenResources,
		resources:   NewResourceListModel(client),
		tasks:       NewTaskListModel(client),
		suggestions: NewSuggestionsModel(client),
	}
}

// Run starts the console event loop.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init initializes the console.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.resources.Init(), a.tasks.Init())
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentHeight := msg.Height - 3
		a.resources.SetSize(msg.Width, contentHeight)
		a.tasks.SetSize(msg.Width, contentHeight)
		a.suggestions.SetSize(msg.Width, contentHeight)
		return a, nil

	case errMsg:
		a.lastErr = msg.err
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "tab":
			a.lastErr = nil
			if a.screen == screenResources {
				a.screen = screenTasks
			} else {
				a.screen = screenResources
			}
			return a, nil
		case "enter":
			if a.screen == screenTasks {
				if task := a.tasks.SelectedTask(); task != nil {
					a.screen = screenSuggestions
					return a, a.suggestions.Load(task.ID, task.TaskSummary.Title)
				}
			}
		case "esc":
			if a.screen == screenSuggestions {
				a.screen = screenTasks
				return a, nil
			}
		}
	}

	var cmd tea.Cmd
	switch a.screen {
	case screenResources:
		_, cmd = a.resources.Update(msg)
	case screenTasks:
		_, cmd = a.tasks.Update(msg)
	case screenSuggestions:
		_, cmd = a.suggestions.Update(msg)
	}
	return a, cmd
}

// View renders the console.
func (a *App) View() string {
	var body string
	switch a.screen {
	case screenResources:
		body = a.resources.View()
	case screenTasks:
		body = a.tasks.View()
	case screenSuggestions:
		body = a.suggestions.View()
	}

	footer := helpStyle.Render("tab: switch • enter: suggestions • f: filter • r: refresh • q: quit")
	if a.lastErr != nil {
		footer = errStyle.Render(fmt.Sprintf("error: %v", a.lastErr))
	}

	return a.tabs() + "\n" + body + "\n" + footer
}

func (a *App) tabs() string {
	render := func(label string, s screen) string {
		if a.screen == s || (s == screenTasks && a.screen == screenSuggestions) {
			return tabActiveStyle.Render(label)
		}
		return tabInactiveStyle.Render(label)
	}
	return render("Resources", screenResources) + render("Tasks", screenTasks)
}
