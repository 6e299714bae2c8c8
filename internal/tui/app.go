package tui

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/reqboard/internal/board"
	"github.com/h0rv/reqboard/internal/domain"
	"github.com/h0rv/reqboard/internal/notify"
	"github.com/h0rv/reqboard/internal/store"
)

// AppScreen represents the different screens in the application flow.
type AppScreen int

const (
	ScreenLoading AppScreen = iota
	ScreenProjectPicker
	ScreenBoard
	ScreenDetail
)

// AppDeps are the collaborators of the root model.
type AppDeps struct {
	Service        Service
	Store          *store.Store
	Presenter      *notify.Presenter
	Scheduler      notify.Scheduler
	Logger         *log.Logger
	Labels         map[domain.Status]string
	NotifyFailures bool
	OpenURL        func(string) error

	// Projects are offered in a picker when the store has no project.
	Projects []Project

	// Login runs before the board is shown. Nil skips it.
	Login func(ctx context.Context) error
}

// AppModel is the root Bubble Tea model that manages screen transitions.
// It owns the toast overlay so notifications stay visible on every screen.
type AppModel struct {
	deps      AppDeps
	ctx       context.Context
	presenter *notify.Presenter
	logger    *log.Logger

	// Current state
	currentScreen AppScreen
	currentModel  tea.Model
	err           error
	loadingMsg    string

	width int

	// Cached so board state survives the detail screen
	boardModel *BoardModel
}

// NewAppModel creates the root model.
func NewAppModel(ctx context.Context, deps AppDeps) AppModel {
	if deps.Presenter == nil {
		deps.Presenter = notify.New(deps.Scheduler)
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return AppModel{
		deps:          deps,
		ctx:           ctx,
		presenter:     deps.Presenter,
		logger:        logger,
		currentScreen: ScreenLoading,
		loadingMsg:    "Signing in...",
	}
}

// Init initializes the app model.
func (m AppModel) Init() tea.Cmd {
	if m.deps.Login == nil {
		return func() tea.Msg { return loggedInMsg{} }
	}
	return m.login()
}

// Update handles messages and transitions between screens.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case notify.ExpiredMsg:
		m.presenter.Update(msg)
		return m, nil

	case tea.MouseMsg:
		// A click on a toast dismisses it and goes no further.
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			if id, ok := m.presenter.HitTest(msg.X, msg.Y, m.screenWidth()); ok {
				m.presenter.Dismiss(id)
				return m, nil
			}
		}

	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" && m.currentScreen != ScreenBoard {
			return m, tea.Quit
		}

	case ErrorMsg:
		m.err = msg.Err
		return m, nil

	case QuitMsg:
		return m, tea.Quit

	case loggedInMsg:
		if m.deps.Login != nil {
			m.logger.Printf("signed in")
		}
		if _, err := m.deps.Store.Project(); err == nil {
			m.loadingMsg = "Loading board..."
			return m, func() tea.Msg { return boardReadyMsg{} }
		}
		if len(m.deps.Projects) == 0 {
			m.err = store.ErrNoProject
			return m, nil
		}
		m.currentScreen = ScreenProjectPicker
		pickerModel := NewProjectPickerModel(m.deps.Projects)
		m.currentModel = pickerModel
		return m, pickerModel.Init()

	case ProjectSelectedMsg:
		m.logger.Printf("project %s selected", msg.Project.ID)
		m.deps.Store.SetProject(msg.Project.ID)
		m.currentModel = nil
		m.loadingMsg = fmt.Sprintf("Loading %s...", msg.Project.Name)
		return m, func() tea.Msg { return boardReadyMsg{} }

	case boardReadyMsg:
		m.currentScreen = ScreenBoard
		boardModel := NewBoardModel(m.ctx, BoardDeps{
			Store:          m.deps.Store,
			Service:        m.deps.Service,
			Presenter:      m.presenter,
			Scheduler:      m.deps.Scheduler,
			Logger:         m.logger,
			Labels:         m.deps.Labels,
			NotifyFailures: m.deps.NotifyFailures,
			OpenURL:        m.deps.OpenURL,
		})
		m.boardModel = &boardModel
		m.currentModel = boardModel
		return m, boardModel.Init()

	case openDetailMsg:
		m.currentScreen = ScreenDetail
		var pageURL string
		if projectID, err := m.deps.Store.Project(); err == nil {
			pageURL = m.deps.Service.KanbanPageURL(projectID)
		}
		detailModel := NewDetailModel(msg.req, m.statusLabel(msg.req.Status), pageURL, m.deps.OpenURL)
		m.currentModel = detailModel
		return m, detailModel.Init()

	case closeDetailMsg:
		// Return to board from detail view
		m.currentScreen = ScreenBoard
		if m.boardModel != nil {
			m.currentModel = *m.boardModel
		}
		// Request window size to ensure proper rendering
		return m, tea.WindowSize()
	}

	// Transitions, reloads and their toasts keep flowing while the detail
	// screen is up.
	if m.currentScreen != ScreenBoard && m.boardModel != nil && isBoardBackground(msg) {
		updated, cmd := m.boardModel.Update(msg)
		if bm, ok := updated.(BoardModel); ok {
			m.boardModel = &bm
		}
		return m, cmd
	}

	// Delegate to current screen's model
	if m.currentModel != nil {
		var cmd tea.Cmd
		m.currentModel, cmd = m.currentModel.Update(msg)
		// Keep boardModel in sync when on board screen
		if m.currentScreen == ScreenBoard {
			if bm, ok := m.currentModel.(BoardModel); ok {
				m.boardModel = &bm
			}
		}
		return m, cmd
	}

	return m, nil
}

// isBoardBackground reports whether msg belongs to the board no matter
// which screen is showing.
func isBoardBackground(msg tea.Msg) bool {
	switch msg.(type) {
	case board.ResultMsg, board.ReloadMsg, requirementsLoadedMsg, spinner.TickMsg, openFailedMsg:
		return true
	}
	return false
}

// View renders the current screen with the toasts on top.
func (m AppModel) View() string {
	// Show error if present
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n" + HelpStyle.Render("Press Ctrl+C to quit")
	}

	var view string
	if m.currentModel != nil {
		view = m.currentModel.View()
	} else {
		view = PromptStyle.Render(m.loadingMsg) + "\n" + HelpStyle.Render("Press Ctrl+C to quit")
	}
	return m.presenter.Overlay(view, m.screenWidth())
}

// Screen returns the screen currently shown.
func (m AppModel) Screen() AppScreen {
	return m.currentScreen
}

func (m AppModel) screenWidth() int {
	if m.width == 0 {
		return defaultWidth
	}
	return m.width
}

func (m AppModel) statusLabel(status domain.Status) string {
	if l, ok := m.deps.Labels[status]; ok && l != "" {
		return l
	}
	return status.Label()
}

// login creates a command that signs in to the service.
func (m AppModel) login() tea.Cmd {
	login := m.deps.Login
	ctx := m.ctx
	return func() tea.Msg {
		if err := login(ctx); err != nil {
			return ErrorMsg{Err: fmt.Errorf("failed to sign in: %w", err)}
		}
		return loggedInMsg{}
	}
}
