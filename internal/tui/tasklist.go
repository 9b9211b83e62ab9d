package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	statusToDo       = lipgloss.NewStyle().Foreground(lipgloss.Color("7")) // White
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // Cyan
	statusBlocked    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
	statusInReview   = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	statusDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
)

// TaskItem implements list.Item for the backlog.
type TaskItem struct {
	TaskSummary
}

func (i TaskItem) FilterValue() string { return i.TaskSummary.Title }
func (i TaskItem) Title() string       { return i.TaskSummary.Title }
func (i TaskItem) Description() string {
	desc := fmt.Sprintf("%s • %s", formatStatus(i.Status), i.Priority)
	if i.Effort > 0 {
		desc += fmt.Sprintf(" • %.1fh", i.Effort)
	}
	return desc
}

func formatStatus(status string) string {
	switch status {
	case "To Do":
		return statusToDo.Render("● To Do")
	case "In Progress":
		return statusInProgress.Render("● In Progress")
	case "Blocked":
		return statusBlocked.Render("● Blocked")
	case "In Review":
		return statusInReview.Render("● In Review")
	case "Done":
		return statusDone.Render("● Done")
	default:
		return status
	}
}

// TaskListModel manages the backlog screen.
type TaskListModel struct {
	client      *Client
	list        list.Model
	filter      string
	filterIndex int
	loading     bool
}

var filters = []string{"", "To Do", "In Progress", "Blocked", "In Review", "Done"}
var filterLabels = []string{"all", "To Do", "In Progress", "Blocked", "In Review", "Done"}

// NewTaskListModel creates a new backlog model.
func NewTaskListModel(client *Client) *TaskListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Tasks"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = listTitleStyle

	return &TaskListModel{
		client: client,
		list:   l,
	}
}

// Init triggers the initial load.
func (m *TaskListModel) Init() tea.Cmd {
	return m.Refresh()
}

// SetSize sets the list dimensions.
func (m *TaskListModel) SetSize(w, h int) {
	m.list.SetSize(w, h)
}

// SelectedTask returns the currently selected task.
func (m *TaskListModel) SelectedTask() *TaskItem {
	if item := m.list.SelectedItem(); item != nil {
		task := item.(TaskItem)
		return &task
	}
	return nil
}

// CycleFilter cycles through status filters.
func (m *TaskListModel) CycleFilter() {
	m.filterIndex = (m.filterIndex + 1) % len(filters)
	m.filter = filters[m.filterIndex]
	m.list.Title = fmt.Sprintf("Tasks [%s]", filterLabels[m.filterIndex])
}

// Refresh fetches tasks from the API.
func (m *TaskListModel) Refresh() tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		tasks, err := m.client.ListTasks(m.filter)
		if err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{tasks}
	}
}

// Update handles messages.
func (m *TaskListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksLoadedMsg:
		m.loading = false
		items := make([]list.Item, len(msg.tasks))
		for i, t := range msg.tasks {
			items[i] = TaskItem{t}
		}
		m.list.SetItems(items)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return m, m.Refresh()
		case "f":
			m.CycleFilter()
			return m, m.Refresh()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the backlog.
func (m *TaskListModel) View() string {
	if m.loading {
		return "Loading tasks..."
	}
	return m.list.View()
}

type tasksLoadedMsg struct {
	tasks []TaskSummary
}
