package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/h0rv/reqboard/internal/domain"
	"github.com/muesli/reflow/wordwrap"
)

// Layout constants
const (
	leftPanelRatio = 0.35 // Left panel takes 35% of width
	minLeftWidth   = 30
	maxLeftWidth   = 50
	detailHeader   = 1
	detailFooter   = 1
	borderSize     = 2 // Top + bottom border
)

// Detail view styles
var (
	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	detailValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	sectionTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")).
				Bold(true)

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	focusedPanelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205"))
)

// DetailModel shows one requirement: short fields on the left, the long
// free-text sections in a scrollable viewport on the right. It renders from
// the requirement loaded with the board; nothing is fetched.
type DetailModel struct {
	req      domain.Requirement
	label    string
	pageURL  string
	openURL  func(string) error
	viewport viewport.Model

	width  int
	height int
}

// NewDetailModel creates a new detail view model. pageURL is opened with
// openURL on 'o'; either may be empty.
func NewDetailModel(req domain.Requirement, statusLabel, pageURL string, openURL func(string) error) DetailModel {
	vp := viewport.New(40, 10) // Will be resized in WindowSizeMsg
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	m := DetailModel{
		req:      req,
		label:    statusLabel,
		pageURL:  pageURL,
		openURL:  openURL,
		viewport: vp,
	}
	m.updateViewportContent()
	return m
}

// Init requests the window size so the panels fit
func (m DetailModel) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update handles messages
func (m DetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeComponents()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *DetailModel) resizeComponents() {
	_, rightWidth, contentHeight := m.panelSizes()

	m.viewport.Width = rightWidth - borderSize - 2 // -2 for padding
	m.viewport.Height = contentHeight - borderSize
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.updateViewportContent()
}

func (m DetailModel) panelSizes() (left, right, contentHeight int) {
	width, height := m.width, m.height
	if width == 0 {
		width = 100
	}
	if height == 0 {
		height = 30
	}

	left = int(float64(width) * leftPanelRatio)
	if left < minLeftWidth {
		left = minLeftWidth
	}
	if left > maxLeftWidth {
		left = maxLeftWidth
	}
	right = width - left - 1 // 1 char gap

	contentHeight = height - detailHeader - detailFooter
	if contentHeight < 10 {
		contentHeight = 10
	}
	return left, right, contentHeight
}

func (m DetailModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc", "backspace":
		return m, func() tea.Msg { return closeDetailMsg{} }
	case "o":
		return m, m.openPage()
	case "j", "down":
		m.viewport.LineDown(1)
	case "k", "up":
		m.viewport.LineUp(1)
	case "ctrl+d":
		m.viewport.HalfViewDown()
	case "ctrl+u":
		m.viewport.HalfViewUp()
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	}
	return m, nil
}

// View renders the split-screen detail
func (m DetailModel) View() string {
	width := m.width
	if width == 0 {
		width = 100
	}
	leftWidth, rightWidth, contentHeight := m.panelSizes()

	header := dimStyle.Render("[q/esc]back [o]open [j/k]scroll [g/G]top/bottom")

	leftPanel := panelBorderStyle.
		Width(leftWidth - borderSize).
		Height(contentHeight - borderSize).
		Render(m.renderLeftPanel(leftWidth - borderSize - 2))

	rightPanel := focusedPanelBorderStyle.
		Width(rightWidth-borderSize).
		Height(contentHeight-borderSize).
		Padding(0, 1).
		Render(m.viewport.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, " ", rightPanel)

	return lipgloss.JoinVertical(lipgloss.Left, header, panels, m.renderFooter(width))
}

// renderLeftPanel renders the title and the short fields
func (m DetailModel) renderLeftPanel(width int) string {
	if width < 10 {
		width = 10
	}
	var b strings.Builder

	b.WriteString(detailTitleStyle.Render(wordwrap.String(m.req.Title, width)))
	b.WriteString("\n\n")

	fields := []struct {
		label string
		value string
	}{
		{"ID", "#" + m.req.ID},
		{"Status", m.label},
		{"Priority", m.req.Priority},
		{"Category", m.req.Category},
		{"Type", m.req.RequirementType},
		{"Source", m.req.Source},
	}
	if m.req.EstimatedROI != 0 {
		fields = append(fields, struct {
			label string
			value string
		}{"Est. ROI", fmt.Sprintf("%.2f", m.req.EstimatedROI)})
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}
		value := detailValueStyle.Render(f.value)
		if f.label == "Priority" {
			value = priorityStyle(f.value).Render(f.value)
		}
		b.WriteString(detailLabelStyle.Render(f.label+": ") + value + "\n")
	}
	return b.String()
}

func (m DetailModel) renderFooter(width int) string {
	var right string
	switch {
	case m.viewport.TotalLineCount() <= m.viewport.Height:
	case m.viewport.AtTop():
		right = "TOP"
	case m.viewport.AtBottom():
		right = "END"
	default:
		right = fmt.Sprintf("%d%%", int(m.viewport.ScrollPercent()*100))
	}
	return padBetween("", dimStyle.Render(right), width-2)
}

// updateViewportContent wraps the free-text sections to the viewport width
func (m *DetailModel) updateViewportContent() {
	wrapWidth := m.viewport.Width
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	sections := []struct {
		title string
		body  string
	}{
		{"Description", m.req.Description},
		{"Scenario", m.req.Scenario},
		{"Problem", m.req.Problem},
		{"Goal", m.req.Goal},
		{"Expected solution", m.req.ExpectedSolution},
		{"Acceptance criteria", m.req.AcceptanceCriteria},
	}

	var b strings.Builder
	for _, s := range sections {
		body := strings.TrimSpace(s.body)
		if body == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionTitleStyle.Render(s.title))
		b.WriteString("\n")
		b.WriteString(wordwrap.String(body, wrapWidth))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		b.WriteString(dimStyle.Render("No description"))
	}
	m.viewport.SetContent(b.String())
}

func (m DetailModel) openPage() tea.Cmd {
	if m.pageURL == "" || m.openURL == nil {
		return nil
	}
	url, open := m.pageURL, m.openURL
	return func() tea.Msg {
		if err := open(url); err != nil {
			return openFailedMsg{url: url, err: err}
		}
		return nil
	}
}
