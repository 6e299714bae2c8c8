// Package notify shows short-lived toast notifications in the top-right
// corner of the screen. Every toast owns its own removal timer.
package notify

import (
	"strings"
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
	"github.com/h0rv/reqboard/internal/domain"
)

// DismissAfter is how long a toast stays on screen.
const DismissAfter = 3000 * time.Millisecond

const (
	maxToastWidth = 48
	minToastWidth = 12
)

// Scheduler delivers msg back to the program after d. The Bubble Tea
// implementation is TickScheduler; tests substitute a recording one.
type Scheduler interface {
	After(d time.Duration, msg tea.Msg) tea.Cmd
}

// TickScheduler schedules with tea.Tick.
type TickScheduler struct{}

// After implements Scheduler.
func (TickScheduler) After(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

// ExpiredMsg tells the presenter a toast's timer fired.
type ExpiredMsg struct {
	ID string
}

// Toast is one visible notification.
type Toast struct {
	ID      string
	Message string
	Level   domain.Level
}

// Presenter owns the toast stack. It is only touched from the Bubble Tea
// update loop.
type Presenter struct {
	scheduler Scheduler
	toasts    []Toast
	newID     func() string
}

// New creates a presenter. A nil scheduler uses TickScheduler.
func New(s Scheduler) *Presenter {
	if s == nil {
		s = TickScheduler{}
	}
	return &Presenter{
		scheduler: s,
		newID:     uuid.NewString,
	}
}

// Show inserts a toast and returns the command that removes it after
// DismissAfter. Dismissing the toast earlier does not cancel the timer.
func (p *Presenter) Show(message string, level domain.Level) tea.Cmd {
	t := Toast{
		ID:      p.newID(),
		Message: Sanitize(message),
		Level:   level,
	}
	p.toasts = append(p.toasts, t)
	return p.scheduler.After(DismissAfter, ExpiredMsg{ID: t.ID})
}

// Update handles ExpiredMsg. It reports whether msg was consumed.
func (p *Presenter) Update(msg tea.Msg) bool {
	expired, ok := msg.(ExpiredMsg)
	if !ok {
		return false
	}
	p.remove(expired.ID)
	return true
}

// Dismiss removes a toast before its timer fires. Unknown or already
// removed ids are ignored.
func (p *Presenter) Dismiss(id string) bool {
	return p.remove(id)
}

// Toasts returns the visible toasts, oldest first.
func (p *Presenter) Toasts() []Toast {
	out := make([]Toast, len(p.toasts))
	copy(out, p.toasts)
	return out
}

func (p *Presenter) remove(id string) bool {
	for i, t := range p.toasts {
		if t.ID == id {
			p.toasts = append(p.toasts[:i], p.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// Sanitize strips terminal escape sequences and control characters so a
// message can't restyle or move the cursor. Line breaks become spaces.
func Sanitize(message string) string {
	stripped := ansi.Strip(message)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, stripped)
}

var levelColors = map[domain.Level]lipgloss.Color{
	domain.LevelInfo:    lipgloss.Color("39"),
	domain.LevelSuccess: lipgloss.Color("42"),
	domain.LevelWarning: lipgloss.Color("214"),
	domain.LevelError:   lipgloss.Color("196"),
}

func toastStyle(level domain.Level, width int) lipgloss.Style {
	color, ok := levelColors[level]
	if !ok {
		color = levelColors[domain.LevelInfo]
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Foreground(color).
		Padding(0, 1).
		Width(width)
}

// toastWidth is the content width for a screen of the given width.
func toastWidth(screenWidth int) int {
	w := screenWidth/2 - 4
	if w > maxToastWidth {
		w = maxToastWidth
	}
	if w < minToastWidth {
		w = minToastWidth
	}
	return w
}

type placedToast struct {
	id    string
	lines []string
	top   int
	left  int
}

func (p *Presenter) layout(screenWidth int) []placedToast {
	inner := toastWidth(screenWidth)
	placed := make([]placedToast, 0, len(p.toasts))
	y := 0
	for _, t := range p.toasts {
		block := toastStyle(t.Level, inner).Render(t.Message)
		lines := strings.Split(block, "\n")
		w := lipgloss.Width(block)
		left := screenWidth - w
		if left < 0 {
			left = 0
		}
		placed = append(placed, placedToast{id: t.ID, lines: lines, top: y, left: left})
		y += len(lines)
	}
	return placed
}

// Overlay draws the toast stack over the top-right corner of view. The
// underlying layout is not shifted; covered cells are simply hidden.
func (p *Presenter) Overlay(view string, screenWidth int) string {
	if len(p.toasts) == 0 || screenWidth <= 0 {
		return view
	}

	lines := strings.Split(view, "\n")
	for _, pt := range p.layout(screenWidth) {
		for i, toastLine := range pt.lines {
			row := pt.top + i
			for row >= len(lines) {
				lines = append(lines, "")
			}
			base := ansi.Truncate(lines[row], pt.left, "")
			pad := pt.left - ansi.StringWidth(base)
			if pad < 0 {
				pad = 0
			}
			lines[row] = base + strings.Repeat(" ", pad) + toastLine
		}
	}
	return strings.Join(lines, "\n")
}

// HitTest returns the id of the toast drawn at screen cell (x, y).
func (p *Presenter) HitTest(x, y, screenWidth int) (string, bool) {
	for _, pt := range p.layout(screenWidth) {
		if y >= pt.top && y < pt.top+len(pt.lines) && x >= pt.left && x < screenWidth {
			return pt.id, true
		}
	}
	return "", false
}
