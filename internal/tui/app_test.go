package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/reqboard/internal/board"
	"github.com/h0rv/reqboard/internal/domain"
	"github.com/h0rv/reqboard/internal/notify"
	"github.com/h0rv/reqboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appFixture struct {
	svc       *fakeService
	scheduler *fakeScheduler
	presenter *notify.Presenter
}

func newTestApp(t *testing.T, login func(context.Context) error) (AppModel, *appFixture) {
	t.Helper()

	s, err := store.New(domain.DefaultBoardStatuses)
	require.NoError(t, err)
	s.SetProject("7")

	f := &appFixture{svc: newFakeService(), scheduler: &fakeScheduler{}}
	f.presenter = notify.New(f.scheduler)

	app := NewAppModel(context.Background(), AppDeps{
		Service:   f.svc,
		Store:     s,
		Presenter: f.presenter,
		Scheduler: f.scheduler,
		Login:     login,
	})
	return app, f
}

func sendApp(t *testing.T, app AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(msg)
	am, ok := model.(AppModel)
	require.True(t, ok)
	return am, cmd
}

// loadedApp returns an app showing a loaded 120x30 board.
func loadedApp(t *testing.T) (AppModel, *appFixture) {
	t.Helper()
	app, f := newTestApp(t, nil)
	app, _ = sendApp(t, app, tea.WindowSizeMsg{Width: 120, Height: 30})
	app, _ = sendApp(t, app, boardReadyMsg{})
	app, _ = sendApp(t, app, tea.WindowSizeMsg{Width: 120, Height: 30})
	app, _ = sendApp(t, app, requirementsLoadedMsg{reqs: testRequirements()})
	require.Equal(t, ScreenBoard, app.Screen())
	return app, f
}

func TestAppModel_LoginThenBoard(t *testing.T) {
	called := false
	app, _ := newTestApp(t, func(context.Context) error {
		called = true
		return nil
	})
	assert.Equal(t, ScreenLoading, app.Screen())
	assert.Contains(t, app.View(), "Signing in")

	msgs := runCmd(app.Init())
	require.True(t, called)
	loggedIn, ok := findMsg[loggedInMsg](msgs)
	require.True(t, ok)

	app, cmd := sendApp(t, app, loggedIn)
	ready, ok := findMsg[boardReadyMsg](runCmd(cmd))
	require.True(t, ok)

	app, _ = sendApp(t, app, ready)
	assert.Equal(t, ScreenBoard, app.Screen())
}

func TestAppModel_LoginFailure(t *testing.T) {
	app, _ := newTestApp(t, func(context.Context) error {
		return errors.New("bad credentials")
	})

	errMsg, ok := findMsg[ErrorMsg](runCmd(app.Init()))
	require.True(t, ok)

	app, _ = sendApp(t, app, errMsg)
	assert.Contains(t, app.View(), "bad credentials")
	assert.Equal(t, ScreenLoading, app.Screen())
}

func TestAppModel_NoLoginGoesStraightToBoard(t *testing.T) {
	app, _ := newTestApp(t, nil)

	loggedIn, ok := findMsg[loggedInMsg](runCmd(app.Init()))
	require.True(t, ok)

	_, cmd := sendApp(t, app, loggedIn)
	_, ok = findMsg[boardReadyMsg](runCmd(cmd))
	assert.True(t, ok)
}

func TestAppModel_ProjectPicker(t *testing.T) {
	s, err := store.New(domain.DefaultBoardStatuses)
	require.NoError(t, err)

	app := NewAppModel(context.Background(), AppDeps{
		Service:   newFakeService(),
		Store:     s,
		Scheduler: &fakeScheduler{},
		Projects:  []Project{{ID: "3", Name: "Shop"}, {ID: "7", Name: "Blog"}},
	})
	app, _ = sendApp(t, app, loggedInMsg{})
	require.Equal(t, ScreenProjectPicker, app.Screen())
	assert.Contains(t, app.View(), "Shop")

	app, _ = sendApp(t, app, tea.KeyMsg{Type: tea.KeyDown})
	app, cmd := sendApp(t, app, keyPress("enter"))
	selected, ok := findMsg[ProjectSelectedMsg](runCmd(cmd))
	require.True(t, ok)
	assert.Equal(t, "7", selected.Project.ID)

	app, cmd = sendApp(t, app, selected)
	projectID, err := s.Project()
	require.NoError(t, err)
	assert.Equal(t, "7", projectID)

	ready, ok := findMsg[boardReadyMsg](runCmd(cmd))
	require.True(t, ok)
	app, _ = sendApp(t, app, ready)
	assert.Equal(t, ScreenBoard, app.Screen())
}

func TestAppModel_NoProjectIsAnError(t *testing.T) {
	s, err := store.New(domain.DefaultBoardStatuses)
	require.NoError(t, err)

	app := NewAppModel(context.Background(), AppDeps{Service: newFakeService(), Store: s})
	app, _ = sendApp(t, app, loggedInMsg{})

	assert.Contains(t, app.View(), store.ErrNoProject.Error())
}

func TestAppModel_ToastOverlayAndDismiss(t *testing.T) {
	app, f := loadedApp(t)

	cmd := f.presenter.Show("Requirement status updated", domain.LevelSuccess)
	require.NotNil(t, cmd)
	assert.Contains(t, app.View(), "Requirement status updated")

	// A click on the toast removes it and does not reach the board
	app, _ = sendApp(t, app, tea.MouseMsg{X: 119, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Empty(t, f.presenter.Toasts())
	assert.NotContains(t, app.View(), "Requirement status updated")
	assert.Equal(t, 0, app.boardModel.selectedColumn)
}

func TestAppModel_ToastExpires(t *testing.T) {
	app, f := loadedApp(t)

	f.presenter.Show("Saved", domain.LevelInfo)
	require.Len(t, f.scheduler.timers, 1)
	assert.Equal(t, notify.DismissAfter, f.scheduler.timers[0].after)

	app, _ = sendApp(t, app, f.scheduler.timers[0].msg)
	assert.Empty(t, f.presenter.Toasts())
	assert.NotContains(t, app.View(), "Saved")
}

func TestAppModel_DetailRoundTrip(t *testing.T) {
	app, _ := loadedApp(t)

	app, _ = sendApp(t, app, keyPress("l"))
	app, cmd := sendApp(t, app, keyPress("enter"))
	open, ok := findMsg[openDetailMsg](runCmd(cmd))
	require.True(t, ok)
	assert.Equal(t, "3", open.req.ID)

	app, _ = sendApp(t, app, open)
	assert.Equal(t, ScreenDetail, app.Screen())
	assert.Contains(t, app.View(), "Audit log")

	app, cmd = sendApp(t, app, keyPress("esc"))
	closeMsg, ok := findMsg[closeDetailMsg](runCmd(cmd))
	require.True(t, ok)

	app, _ = sendApp(t, app, closeMsg)
	assert.Equal(t, ScreenBoard, app.Screen())
	assert.Equal(t, 1, app.boardModel.selectedColumn, "board state survives the detail screen")
}

func TestAppModel_TransitionsResolveWhileOnDetail(t *testing.T) {
	app, f := loadedApp(t)

	app, _ = sendApp(t, app, openDetailMsg{req: testRequirements()[0]})
	require.Equal(t, ScreenDetail, app.Screen())

	result := board.ResultMsg{Outcome: domain.Outcome{
		Request: domain.TransitionRequest{CardID: "1", TargetStatus: domain.StatusAnalyzing},
		Result:  domain.TransitionResult{Success: true},
	}}
	app, _ = sendApp(t, app, result)

	toasts := f.presenter.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, board.MessageUpdated, toasts[0].Message)
	assert.Contains(t, app.View(), board.MessageUpdated)
	require.Len(t, f.scheduler.reloads(), 1)

	app, cmd := sendApp(t, app, f.scheduler.reloads()[0])
	assert.True(t, app.boardModel.loading)
	assert.Equal(t, ScreenDetail, app.Screen())

	loaded, ok := findMsg[requirementsLoadedMsg](runCmd(cmd))
	require.True(t, ok)
	app, _ = sendApp(t, app, loaded)
	assert.False(t, app.boardModel.loading)
	assert.Equal(t, ScreenDetail, app.Screen())
}
