package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/reqboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detailRequirement() domain.Requirement {
	return domain.Requirement{
		ID:                 "12",
		Title:              "Password reset by email",
		Status:             domain.StatusAnalyzing,
		Priority:           "high",
		Category:           "functional",
		Source:             "support tickets",
		EstimatedROI:       1.5,
		Description:        "Users locked out of their account need a way back in.",
		AcceptanceCriteria: "A reset link arrives within one minute.",
	}
}

func sendDetail(t *testing.T, m DetailModel, msg tea.Msg) (DetailModel, tea.Cmd) {
	t.Helper()
	model, cmd := m.Update(msg)
	dm, ok := model.(DetailModel)
	require.True(t, ok)
	return dm, cmd
}

func TestDetailModel_RendersFields(t *testing.T) {
	m := NewDetailModel(detailRequirement(), "Analysis", "", nil)
	m, _ = sendDetail(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})

	view := m.View()
	assert.Contains(t, view, "Password reset by email")
	assert.Contains(t, view, "#12")
	assert.Contains(t, view, "Analysis")
	assert.Contains(t, view, "support tickets")
	assert.Contains(t, view, "1.50")
	assert.Contains(t, view, "Description")
	assert.Contains(t, view, "Acceptance criteria")
	assert.NotContains(t, view, "Scenario", "empty sections are skipped")
}

func TestDetailModel_EmptyRequirement(t *testing.T) {
	m := NewDetailModel(domain.Requirement{ID: "1", Title: "Bare"}, "Collected", "", nil)

	require.NotPanics(t, func() {
		assert.Contains(t, m.View(), "No description")
	})
}

func TestDetailModel_WrapsLongText(t *testing.T) {
	req := detailRequirement()
	req.Description = strings.Repeat("word ", 200)

	m := NewDetailModel(req, "Analysis", "", nil)
	m, _ = sendDetail(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})

	assert.Greater(t, m.viewport.TotalLineCount(), m.viewport.Height)
	assert.True(t, m.viewport.AtTop())

	m, _ = sendDetail(t, m, keyPress("G"))
	assert.True(t, m.viewport.AtBottom())

	m, _ = sendDetail(t, m, keyPress("g"))
	assert.True(t, m.viewport.AtTop())
}

func TestDetailModel_CloseKeys(t *testing.T) {
	for _, k := range []string{"q", "esc"} {
		t.Run(k, func(t *testing.T) {
			m := NewDetailModel(detailRequirement(), "Analysis", "", nil)
			_, cmd := sendDetail(t, m, keyPress(k))
			_, ok := findMsg[closeDetailMsg](runCmd(cmd))
			assert.True(t, ok)
		})
	}
}

func TestDetailModel_OpenPage(t *testing.T) {
	var opened []string
	open := func(url string) error {
		opened = append(opened, url)
		return nil
	}

	m := NewDetailModel(detailRequirement(), "Analysis", "http://service.test/requirements/kanban/7", open)
	_, cmd := sendDetail(t, m, keyPress("o"))
	runCmd(cmd)
	assert.Equal(t, []string{"http://service.test/requirements/kanban/7"}, opened)

	failing := NewDetailModel(detailRequirement(), "Analysis", "http://x", func(string) error { return errors.New("no browser") })
	_, cmd = sendDetail(t, failing, keyPress("o"))
	failed, ok := findMsg[openFailedMsg](runCmd(cmd))
	require.True(t, ok)
	assert.Equal(t, "http://x", failed.url)

	// Without a URL nothing happens
	none := NewDetailModel(detailRequirement(), "Analysis", "", open)
	_, cmd = sendDetail(t, none, keyPress("o"))
	assert.Nil(t, cmd)
}
