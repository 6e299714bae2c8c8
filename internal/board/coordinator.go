// Package board implements the drag-and-drop status protocol of the kanban
// board: which card is being dragged, which column it hovers, and what happens
// when it is dropped. It knows nothing about terminals or mouse coordinates;
// the tui package translates mouse events into calls on a Coordinator.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/reqboard/internal/domain"
	"github.com/h0rv/reqboard/internal/notify"
)

// ReloadDelay is the pause between a success toast and the board reload.
const ReloadDelay = 500 * time.Millisecond

// Notification texts.
const (
	MessageUpdated  = "Requirement status updated"
	MessageRejected = "Requirement status was not updated"
	MessageFailed   = "Could not reach the server, status not updated"
	MessageNoCard   = "Drop ignored: no requirement was dragged"
)

var (
	// ErrUnknownCard indicates a card that was not bound at construction.
	ErrUnknownCard = errors.New("unknown card")
	// ErrDragActive indicates a pick-up while another card is being dragged.
	ErrDragActive = errors.New("another card is already being dragged")
)

// Gateway persists a status transition.
type Gateway interface {
	UpdateStatus(ctx context.Context, req domain.TransitionRequest) (domain.TransitionResult, error)
}

// Presenter shows a transient notification.
type Presenter interface {
	Show(message string, level domain.Level) tea.Cmd
}

// Reconciler makes an accepted transition visible. The default reloads the
// whole board; an in-place move could be swapped in without touching the
// Coordinator.
type Reconciler interface {
	TransitionAccepted(req domain.TransitionRequest) tea.Cmd
}

// ReloadMsg asks the board to fetch every requirement again.
type ReloadMsg struct {
	Cause domain.TransitionRequest
}

// Reload is the Reconciler that schedules a full board reload.
type Reload struct {
	Delay     time.Duration
	Scheduler notify.Scheduler
}

// NewReload returns a Reload firing ReloadDelay after acceptance.
func NewReload(s notify.Scheduler) Reload {
	if s == nil {
		s = notify.TickScheduler{}
	}
	return Reload{Delay: ReloadDelay, Scheduler: s}
}

// TransitionAccepted implements Reconciler. The scheduled reload can't be
// cancelled.
func (r Reload) TransitionAccepted(req domain.TransitionRequest) tea.Cmd {
	return r.Scheduler.After(r.Delay, ReloadMsg{Cause: req})
}

// Card is the drag state of one requirement card.
type Card struct {
	ID       string
	Status   domain.Status
	Dragging bool
}

// Column is the drop-target state of one status column.
type Column struct {
	Status   domain.Status
	Label    string
	DragOver bool
}

// Payload is what a drag carries from pick-up to drop.
type Payload struct {
	CardID string
}

// ResultMsg carries the outcome of one transition back to the update loop.
type ResultMsg struct {
	Outcome domain.Outcome
}

// Deps are the Coordinator's collaborators.
type Deps struct {
	Gateway    Gateway
	Presenter  Presenter
	Reconciler Reconciler
	Logger     *log.Logger
	Context    context.Context

	// NotifyFailures shows an error toast for rejected or failed transitions
	// and for malformed drops. Off by default: failures are only logged.
	NotifyFailures bool
}

// Coordinator owns the card and column state machines. Its methods must be
// called from the Bubble Tea update loop; the only work done elsewhere is the
// gateway call inside the command returned by Drop.
type Coordinator struct {
	cards    map[string]*Card
	order    []string
	columns  []*Column
	dragging string

	gateway        Gateway
	presenter      Presenter
	reconciler     Reconciler
	logger         *log.Logger
	ctx            context.Context
	notifyFailures bool
}

// New binds the cards and columns present at initialization. Cards added
// later are not draggable until a new Coordinator is built.
func New(cards []Card, columns []Column, deps Deps) *Coordinator {
	c := &Coordinator{
		cards:          make(map[string]*Card, len(cards)),
		order:          make([]string, 0, len(cards)),
		columns:        make([]*Column, 0, len(columns)),
		gateway:        deps.Gateway,
		presenter:      deps.Presenter,
		reconciler:     deps.Reconciler,
		logger:         deps.Logger,
		ctx:            deps.Context,
		notifyFailures: deps.NotifyFailures,
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	if c.ctx == nil {
		c.ctx = context.Background()
	}

	for _, card := range cards {
		if card.ID == "" {
			continue
		}
		if _, dup := c.cards[card.ID]; dup {
			continue
		}
		card.Dragging = false
		cc := card
		c.cards[card.ID] = &cc
		c.order = append(c.order, card.ID)
	}
	for _, col := range columns {
		col.DragOver = false
		cc := col
		c.columns = append(c.columns, &cc)
	}
	return c
}

// DragStart picks up a card. The returned payload is what Drop needs.
func (c *Coordinator) DragStart(cardID string) (Payload, error) {
	card, ok := c.cards[cardID]
	if !ok {
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownCard, cardID)
	}
	if c.dragging != "" {
		return Payload{}, ErrDragActive
	}
	card.Dragging = true
	c.dragging = cardID
	return Payload{CardID: cardID}, nil
}

// DragEnd clears the dragging mark. It runs whether the card was dropped on
// a column, dropped elsewhere, or the gesture was cancelled.
func (c *Coordinator) DragEnd(cardID string) {
	if card, ok := c.cards[cardID]; ok {
		card.Dragging = false
	}
	if c.dragging == cardID {
		c.dragging = ""
	}
}

// Cancel ends any active drag and clears every hover mark.
func (c *Coordinator) Cancel() {
	if c.dragging != "" {
		c.DragEnd(c.dragging)
	}
	for _, col := range c.columns {
		col.DragOver = false
	}
}

// DragOver marks the column under an active drag as the drop target and
// reports whether a drop there will be accepted.
func (c *Coordinator) DragOver(status domain.Status) bool {
	if c.dragging == "" {
		return false
	}
	target := c.column(status)
	if target == nil {
		return false
	}
	for _, col := range c.columns {
		col.DragOver = col == target
	}
	return true
}

// DragLeave clears the column's hover mark.
func (c *Coordinator) DragLeave(status domain.Status) {
	if col := c.column(status); col != nil {
		col.DragOver = false
	}
}

// Drop handles a drop on the column for status. It clears the hover mark,
// builds the transition from the payload and the column, and returns the
// command that sends it. Dropping on the card's current column still sends
// the request. A payload without a card id sends nothing.
func (c *Coordinator) Drop(status domain.Status, payload Payload) tea.Cmd {
	col := c.column(status)
	if col == nil {
		c.logger.Printf("drop on unknown column %q ignored", status)
		return nil
	}
	col.DragOver = false

	req := domain.TransitionRequest{
		CardID:       payload.CardID,
		TargetStatus: col.Status,
	}
	if err := req.Validate(); err != nil {
		c.logger.Printf("drop on %q ignored: %v", col.Status, err)
		if c.notifyFailures && c.presenter != nil {
			return c.presenter.Show(MessageNoCard, domain.LevelWarning)
		}
		return nil
	}
	if c.gateway == nil {
		c.logger.Printf("drop of %s on %q ignored: no gateway", req.CardID, req.TargetStatus)
		return nil
	}

	c.logger.Printf("requesting %s -> %s", req.CardID, req.TargetStatus)
	return transitionCmd(c.ctx, c.gateway, req)
}

// transitionCmd runs the gateway call off the update loop. It shares no state
// with other in-flight transitions.
func transitionCmd(ctx context.Context, gw Gateway, req domain.TransitionRequest) tea.Cmd {
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = ResultMsg{Outcome: domain.Outcome{
					Request: req,
					Err:     fmt.Errorf("transition of %s panicked: %v", req.CardID, r),
				}}
			}
		}()

		result, err := gw.UpdateStatus(ctx, req)
		return ResultMsg{Outcome: domain.Outcome{Request: req, Result: result, Err: err}}
	}
}

// Resolve reacts to a transition outcome: success toast and reconciliation
// when accepted, otherwise a log line and nothing the user has to undo.
func (c *Coordinator) Resolve(msg ResultMsg) tea.Cmd {
	o := msg.Outcome

	if o.Accepted() {
		c.logger.Printf("requirement %s moved to %q", o.Request.CardID, o.Request.TargetStatus)
		var cmds []tea.Cmd
		if c.presenter != nil {
			cmds = append(cmds, c.presenter.Show(MessageUpdated, domain.LevelSuccess))
		}
		if c.reconciler != nil {
			cmds = append(cmds, c.reconciler.TransitionAccepted(o.Request))
		}
		return tea.Batch(cmds...)
	}

	message := MessageRejected
	if o.Err != nil {
		c.logger.Printf("requirement %s: update to %q failed: %v", o.Request.CardID, o.Request.TargetStatus, o.Err)
		message = MessageFailed
	} else {
		c.logger.Printf("requirement %s: update to %q rejected: %s", o.Request.CardID, o.Request.TargetStatus, o.Result.Error)
	}

	if c.notifyFailures && c.presenter != nil {
		return c.presenter.Show(message, domain.LevelError)
	}
	return nil
}

// Update routes ResultMsg to Resolve. It reports whether msg was consumed.
func (c *Coordinator) Update(msg tea.Msg) (tea.Cmd, bool) {
	if m, ok := msg.(ResultMsg); ok {
		return c.Resolve(m), true
	}
	return nil, false
}

// ActiveDrag returns the id of the card being dragged.
func (c *Coordinator) ActiveDrag() (string, bool) {
	return c.dragging, c.dragging != ""
}

// Hovered returns the status of the column marked as drop target.
func (c *Coordinator) Hovered() (domain.Status, bool) {
	for _, col := range c.columns {
		if col.DragOver {
			return col.Status, true
		}
	}
	return "", false
}

// Card returns a copy of one card's state.
func (c *Coordinator) Card(id string) (Card, bool) {
	card, ok := c.cards[id]
	if !ok {
		return Card{}, false
	}
	return *card, true
}

// Cards returns copies of every bound card in binding order.
func (c *Coordinator) Cards() []Card {
	out := make([]Card, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.cards[id])
	}
	return out
}

// Columns returns copies of every column in board order.
func (c *Coordinator) Columns() []Column {
	out := make([]Column, 0, len(c.columns))
	for _, col := range c.columns {
		out = append(out, *col)
	}
	return out
}

func (c *Coordinator) column(status domain.Status) *Column {
	for _, col := range c.columns {
		if col.Status == status {
			return col
		}
	}
	return nil
}
