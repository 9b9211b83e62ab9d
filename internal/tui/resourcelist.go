package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	loadOK       = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	loadHigh     = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	loadOverload = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
)

// ResourceItem implements list.Item for the roster.
type ResourceItem struct {
	ResourceSummary
}

func (i ResourceItem) FilterValue() string { return i.Name }
func (i ResourceItem) Title() string       { return i.Name }
func (i ResourceItem) Description() string {
	return fmt.Sprintf("%s • %s • %d skills", i.Type, formatLoad(i.LoadPercent), i.SkillCount)
}

func formatLoad(percent int) string {
	label := fmt.Sprintf("load %d%%", percent)
	switch {
	case percent > 100:
		return loadOverload.Render(label)
	case percent > 80:
		return loadHigh.Render(label)
	default:
		return loadOK.Render(label)
	}
}

// ResourceListModel manages the roster screen.
type ResourceListModel struct {
	client  *Client
	list    list.Model
	loading bool
}

// NewResourceListModel creates a new roster model.
func NewResourceListModel(client *Client) *ResourceListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Resources"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = listTitleStyle

	return &ResourceListModel{
		client: client,
		list:   l,
	}
}

// Init triggers the initial load.
func (m *ResourceListModel) Init() tea.Cmd {
	return m.Refresh()
}

// SetSize sets the list dimensions.
func (m *ResourceListModel) SetSize(w, h int) {
	m.list.SetSize(w, h)
}

// SelectedResource returns the currently selected resource.
func (m *ResourceListModel) SelectedResource() *ResourceItem {
	if item := m.list.SelectedItem(); item != nil {
		res := item.(ResourceItem)
		return &res
	}
	return nil
}

// Refresh fetches the roster from the API.
func (m *ResourceListModel) Refresh() tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		resources, err := m.client.ListResources()
		if err != nil {
			return errMsg{err}
		}
		return resourcesLoadedMsg{resources}
	}
}

// Update handles messages.
func (m *ResourceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resourcesLoadedMsg:
		m.loading = false
		items := make([]list.Item, len(msg.resources))
		for i, r := range msg.resources {
			items[i] = ResourceItem{r}
		}
		m.list.SetItems(items)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, m.Refresh()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the roster.
func (m *ResourceListModel) View() string {
	if m.loading {
		return "Loading resources..."
	}
	return m.list.View()
}

type resourcesLoadedMsg struct {
	resources []ResourceSummary
}
