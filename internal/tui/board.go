package tui

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/h0rv/reqboard/internal/board"
	"github.com/h0rv/reqboard/internal/domain"
	"github.com/h0rv/reqboard/internal/notify"
	"github.com/h0rv/reqboard/internal/store"
)

// Layout constants
const (
	minColumnWidth  = 20
	maxColumnWidth  = 40
	headerLines     = 2 // Title line + hint line
	indicatorWidth  = 2 // Carousel arrows left/right of the columns
	columnChrome    = 4 // Border (2) + padding (2)
	pageJumpSize    = 10
	defaultWidth    = 80
	defaultHeight   = 24
	minBoardHeight  = 5
	minColumnHeight = 3
)

// Styles for the board view - base styles without width/height (set dynamically)
var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	dropTargetHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("42"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true)

	draggingCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Italic(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	dragBannerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("42")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)
)

// Service is the part of the requirements service the board uses.
type Service interface {
	ListRequirements(ctx context.Context, projectID string) ([]domain.Requirement, error)
	UpdateStatus(ctx context.Context, req domain.TransitionRequest) (domain.TransitionResult, error)
	KanbanPageURL(projectID string) string
}

// BoardDeps are the board's collaborators.
type BoardDeps struct {
	Store          *store.Store
	Service        Service
	Presenter      *notify.Presenter
	Scheduler      notify.Scheduler
	Logger         *log.Logger
	Labels         map[domain.Status]string
	NotifyFailures bool
	OpenURL        func(string) error
}

// press is a left-button press on a card that has not turned into a drag.
type press struct {
	cardID string
	x, y   int
}

// BoardModel represents the main kanban board view
type BoardModel struct {
	// Dependencies
	store     *store.Store
	svc       Service
	presenter *notify.Presenter
	scheduler notify.Scheduler
	logger    *log.Logger
	ctx       context.Context
	openURL   func(string) error
	notify    bool

	// UI components
	keymap      KeyMap
	help        HelpModel
	spinner     spinner.Model
	filterInput textinput.Model

	// Drag protocol, rebuilt on every load
	coord   *board.Coordinator
	pressed *press
	payload *board.Payload

	// Board state
	columns        []domain.Status
	labels         map[domain.Status]string
	filteredCards  map[domain.Status][]string
	selectedColumn int
	columnOffset   int
	selectedCard   map[domain.Status]int
	scrollOffset   map[domain.Status]int

	// View state
	width      int
	height     int
	showHelp   bool
	filterMode bool
	filterText string
	loading    bool
	loaded     bool
	loadErr    error

	// loadSeq tags the newest load; older results are dropped.
	loadSeq int
}

// NewBoardModel creates a new board model
func NewBoardModel(ctx context.Context, deps BoardDeps) BoardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Prompt = "/ "

	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	presenter := deps.Presenter
	if presenter == nil {
		presenter = notify.New(deps.Scheduler)
	}
	labels := deps.Labels
	if labels == nil {
		labels = map[domain.Status]string{}
	}

	m := BoardModel{
		store:         deps.Store,
		svc:           deps.Service,
		presenter:     presenter,
		scheduler:     deps.Scheduler,
		logger:        logger,
		ctx:           ctx,
		openURL:       deps.OpenURL,
		notify:        deps.NotifyFailures,
		keymap:        DefaultKeyMap(),
		help:          NewHelpModel(DefaultKeyMap()),
		spinner:       sp,
		filterInput:   ti,
		columns:       deps.Store.Columns(),
		labels:        labels,
		filteredCards: make(map[domain.Status][]string),
		selectedCard:  make(map[domain.Status]int),
		scrollOffset:  make(map[domain.Status]int),
		loading:       true,
	}
	(&m).bind()
	return m
}

// Init starts the spinner and the first load
func (m BoardModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tea.WindowSize(),
		m.loadRequirements(),
	)
}

// Update handles messages
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.coord.Update(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		(&m).adjustColumnScroll()
		return m, nil

	case board.ReloadMsg:
		m.logger.Printf("reloading board after %s -> %s", msg.Cause.CardID, msg.Cause.TargetStatus)
		cmd := (&m).reload()
		return m, cmd

	case requirementsLoadedMsg:
		if msg.seq != m.loadSeq {
			m.logger.Printf("dropping stale load %d, waiting for %d", msg.seq, m.loadSeq)
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.logger.Printf("load failed: %v", msg.err)
			if m.loaded {
				// Keep the last good board on screen.
				return m, m.presenter.Show(fmt.Sprintf("Reload failed: %v", msg.err), domain.LevelError)
			}
			m.loadErr = msg.err
			return m, nil
		}
		m.loaded = true
		m.loadErr = nil
		m.store.Replace(msg.reqs)
		(&m).bind()
		(&m).applyFilter()
		return m, nil

	case openFailedMsg:
		m.logger.Printf("open %s: %v", msg.url, msg.err)
		return m, m.presenter.Show("Could not open the browser", domain.LevelWarning)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		cmd := (&m).handleMouse(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

// handleKeyPress processes keyboard input
func (m BoardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Esc during a drag ends it without a drop
	if m.payload != nil {
		if msg.String() == "esc" {
			(&m).cancelDrag()
		}
		return m, nil
	}

	// Help overlay
	if m.showHelp {
		if msg.String() == "?" || msg.String() == "q" || msg.String() == "esc" {
			m.showHelp = false
		}
		return m, nil
	}

	// Filter mode
	if m.filterMode {
		switch msg.String() {
		case "enter":
			m.filterMode = false
			m.filterText = m.filterInput.Value()
			(&m).applyFilter()
			return m, nil
		case "esc":
			m.filterMode = false
			m.filterInput.SetValue(m.filterText)
			return m, nil
		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			return m, cmd
		}
	}

	// Normal navigation
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "/":
		m.filterMode = true
		m.filterInput.Focus()
		return m, textinput.Blink
	case "esc":
		if m.filterText != "" {
			m.filterText = ""
			m.filterInput.SetValue("")
			(&m).applyFilter()
		}
	case "h", "left":
		if m.selectedColumn > 0 {
			m.selectedColumn--
			(&m).adjustColumnScroll()
		}
	case "l", "right":
		if m.selectedColumn < len(m.columns)-1 {
			m.selectedColumn++
			(&m).adjustColumnScroll()
		}
	case "j", "down":
		(&m).moveCardSelection(1)
	case "k", "up":
		(&m).moveCardSelection(-1)
	case "g":
		(&m).jumpToCard(0)
	case "G":
		(&m).jumpToCard(-1)
	case "ctrl+d":
		(&m).moveCardSelection(pageJumpSize)
	case "ctrl+u":
		(&m).moveCardSelection(-pageJumpSize)
	case "o":
		return m, m.openBoardPage()
	case "r":
		cmd := (&m).reload()
		return m, cmd
	case "enter":
		if req, ok := m.getSelectedRequirement(); ok {
			return m, func() tea.Msg { return openDetailMsg{req: req} }
		}
	}

	return m, nil
}

// handleMouse turns mouse events into the drag protocol. A left press on a
// card selects it; moving with the button held picks the card up; motion
// over a column marks it as drop target; release drops on the marked column
// and always ends the drag.
func (m *BoardModel) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.showHelp || !m.loaded {
		return nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			// A press while a drag is active means the release was lost,
			// e.g. outside the terminal window.
			m.cancelDrag()
			if cardID, col, idx, ok := m.cardAt(msg.X, msg.Y); ok {
				m.selectedColumn = col
				m.selectedCard[m.columns[col]] = idx
				m.pressed = &press{cardID: cardID, x: msg.X, y: msg.Y}
			} else if col, ok := m.columnIndexAt(msg.X, msg.Y); ok {
				m.selectedColumn = col
			}
		case tea.MouseButtonWheelUp:
			m.scrollColumnAt(msg.X, msg.Y, -1)
		case tea.MouseButtonWheelDown:
			m.scrollColumnAt(msg.X, msg.Y, 1)
		}
		return nil

	case tea.MouseActionMotion:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		if m.payload == nil && m.pressed != nil && (msg.X != m.pressed.x || msg.Y != m.pressed.y) {
			payload, err := m.coord.DragStart(m.pressed.cardID)
			if err != nil {
				m.logger.Printf("drag start: %v", err)
				m.pressed = nil
				return nil
			}
			m.payload = &payload
		}
		if m.payload == nil {
			return nil
		}
		if col, ok := m.columnIndexAt(msg.X, msg.Y); ok {
			m.coord.DragOver(m.columns[col])
		} else if hovered, ok := m.coord.Hovered(); ok {
			m.coord.DragLeave(hovered)
		}
		return nil

	case tea.MouseActionRelease:
		if m.payload == nil {
			m.pressed = nil
			return nil
		}
		var cmd tea.Cmd
		if col, ok := m.columnIndexAt(msg.X, msg.Y); ok && m.coord.DragOver(m.columns[col]) {
			cmd = m.coord.Drop(m.columns[col], *m.payload)
		} else if hovered, ok := m.coord.Hovered(); ok {
			m.coord.DragLeave(hovered)
		}
		m.coord.DragEnd(m.payload.CardID)
		m.payload = nil
		m.pressed = nil
		return cmd
	}
	return nil
}

// cancelDrag ends any gesture without a drop.
func (m *BoardModel) cancelDrag() {
	m.coord.Cancel()
	m.pressed = nil
	m.payload = nil
}

// bind builds a fresh Coordinator for the cards currently in the store.
// Any gesture in progress is abandoned.
func (m *BoardModel) bind() {
	var cards []board.Card
	cols := make([]board.Column, 0, len(m.columns))
	for _, status := range m.columns {
		cols = append(cols, board.Column{Status: status, Label: m.label(status)})
		for _, id := range m.store.ColumnIDs(status) {
			cards = append(cards, board.Card{ID: id, Status: status})
		}
	}

	m.coord = board.New(cards, cols, board.Deps{
		Gateway:        m.svc,
		Presenter:      m.presenter,
		Reconciler:     board.NewReload(m.scheduler),
		Logger:         m.logger,
		Context:        m.ctx,
		NotifyFailures: m.notify,
	})
	m.pressed = nil
	m.payload = nil
}

func (m BoardModel) label(status domain.Status) string {
	if l, ok := m.labels[status]; ok && l != "" {
		return l
	}
	return status.Label()
}

// View renders the board - fills entire terminal exactly
func (m BoardModel) View() string {
	width, _ := m.size()

	var sections []string
	sections = append(sections, m.renderHeader(width))
	sections = append(sections, m.renderSecondHeader(width))
	if m.filterMode {
		sections = append(sections, m.filterInput.View())
	}

	boardHeight := m.boardHeight()

	var mainContent string
	switch {
	case m.showHelp:
		helpLines := strings.Split(m.help.View(width), "\n")
		if len(helpLines) > boardHeight {
			helpLines = helpLines[:boardHeight]
		}
		mainContent = strings.Join(helpLines, "\n")
	case !m.loaded && m.loadErr != nil:
		errMsg := ErrorStyle.Render(fmt.Sprintf("Load failed: %v", m.loadErr)) + "\n\n" + dimStyle.Render("Press 'r' to retry.")
		mainContent = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center, errMsg)
	case !m.loaded:
		loadingMsg := m.spinner.View() + " Loading requirements..."
		mainContent = lipgloss.Place(width, boardHeight, lipgloss.Center, lipgloss.Center, loadingMsg)
	default:
		mainContent = m.renderBoard()
	}
	sections = append(sections, mainContent)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m BoardModel) size() (int, int) {
	width, height := m.width, m.height
	if width == 0 {
		width = defaultWidth
	}
	if height == 0 {
		height = defaultHeight
	}
	return width, height
}

// boardTop is the first screen row of the column borders.
func (m BoardModel) boardTop() int {
	if m.filterMode {
		return headerLines + 1
	}
	return headerLines
}

func (m BoardModel) boardHeight() int {
	_, height := m.size()
	h := height - m.boardTop()
	if h < minBoardHeight {
		h = minBoardHeight
	}
	return h
}

// renderHeader renders a single header line with title on left and status on right
func (m BoardModel) renderHeader(width int) string {
	project, _ := m.store.Project()
	title := fmt.Sprintf("Requirements - project %s", project)

	var statusParts []string
	if m.loading && m.loaded {
		statusParts = append(statusParts, m.spinner.View()+"loading")
	}

	totalItems := 0
	for _, cards := range m.filteredCards {
		totalItems += len(cards)
	}
	statusParts = append(statusParts, fmt.Sprintf("%d items", totalItems))

	if n := len(m.store.Unplaced()); n > 0 {
		statusParts = append(statusParts, fmt.Sprintf("%d not on this board", n))
	}
	if m.filterText != "" {
		statusParts = append(statusParts, fmt.Sprintf("/%s", m.filterText))
	}

	status := strings.Join(statusParts, " | ")
	return padBetween(titleStyle.Render(title), dimStyle.Render(status), width)
}

// renderSecondHeader renders hints on the left and drag or position info on
// the right.
func (m BoardModel) renderSecondHeader(width int) string {
	left := dimStyle.Render(m.help.ShortView(width / 2))

	right := ""
	if m.payload != nil {
		target := "no column"
		if hovered, ok := m.coord.Hovered(); ok {
			target = m.label(hovered)
		}
		right = dragBannerStyle.Render(fmt.Sprintf("moving #%s → %s", m.payload.CardID, target))
	} else if len(m.columns) > 0 {
		status := m.columns[m.selectedColumn]
		cards := m.filteredCards[status]
		right = fmt.Sprintf("col %d/%d", m.selectedColumn+1, len(m.columns))
		if len(cards) > 0 {
			right = fmt.Sprintf("%s | card %d/%d", right, m.selectedCard[status]+1, len(cards))
		}
	}

	return padBetween(left, right, width)
}

func padBetween(left, right string, width int) string {
	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	return left + strings.Repeat(" ", padding) + right
}

// boardLayout is the column geometry shared by rendering and hit testing.
type boardLayout struct {
	top           int // Screen row of the column top borders
	startCol      int
	endCol        int
	colWidth      int
	innerWidth    int
	contentHeight int // Lines inside the border
	leftIndicator bool
}

func (m BoardModel) layout() boardLayout {
	width, _ := m.size()
	totalHeight := m.boardHeight()

	l := boardLayout{top: m.boardTop()}

	// lipgloss Border adds 2 lines (top + bottom) to the content height
	l.contentHeight = totalHeight - 2
	if l.contentHeight < minColumnHeight {
		l.contentHeight = minColumnHeight
	}

	numCols := len(m.columns)
	if numCols == 0 {
		return l
	}

	maxVisibleCols := width / minColumnWidth
	if maxVisibleCols < 1 {
		maxVisibleCols = 1
	}
	visibleCols := maxVisibleCols
	if visibleCols > numCols {
		visibleCols = numCols
	}

	l.colWidth = width / visibleCols
	if l.colWidth > maxColumnWidth {
		l.colWidth = maxColumnWidth
	}
	if l.colWidth < minColumnWidth {
		l.colWidth = minColumnWidth
	}
	l.innerWidth = l.colWidth - columnChrome
	if l.innerWidth < 10 {
		l.innerWidth = 10
	}

	l.startCol = m.columnOffset
	l.endCol = l.startCol + visibleCols
	if l.endCol > numCols {
		l.endCol = numCols
		l.startCol = l.endCol - visibleCols
		if l.startCol < 0 {
			l.startCol = 0
		}
	}
	l.leftIndicator = l.startCol > 0
	return l
}

// columnX is the screen column where column i starts.
func (l boardLayout) columnX(i int) int {
	x := (i - l.startCol) * l.colWidth
	if l.leftIndicator {
		x += indicatorWidth
	}
	return x
}

// cardSlots is the number of lines available for cards and scroll
// indicators below the column header.
func (l boardLayout) cardSlots() int {
	slots := l.contentHeight - 1
	if slots < 1 {
		slots = 1
	}
	return slots
}

// visibleRange returns the card indexes [start, end) drawn for a column of
// n cards scrolled to offset, and whether scroll indicators are drawn.
func visibleRange(n, offset, slots int) (start, end int, up, down bool) {
	if offset > n-1 {
		offset = n - 1
	}
	if offset < 0 {
		offset = 0
	}
	up = offset > 0
	avail := slots
	if up {
		avail--
	}
	end = offset + avail
	if end > n {
		end = n
	}
	if end < n {
		down = true
		avail--
		end = offset + avail
	}
	if end < offset {
		end = offset
	}
	return offset, end, up, down
}

// columnIndexAt returns the index of the column drawn at screen cell (x, y).
func (m BoardModel) columnIndexAt(x, y int) (int, bool) {
	l := m.layout()
	if l.colWidth == 0 || y < l.top || y >= l.top+l.contentHeight+2 {
		return 0, false
	}
	for i := l.startCol; i < l.endCol; i++ {
		cx := l.columnX(i)
		if x >= cx && x < cx+l.colWidth {
			return i, true
		}
	}
	return 0, false
}

// cardAt returns the card drawn at screen cell (x, y) with its column and
// index within the filtered column.
func (m BoardModel) cardAt(x, y int) (string, int, int, bool) {
	col, ok := m.columnIndexAt(x, y)
	if !ok {
		return "", 0, 0, false
	}
	l := m.layout()
	status := m.columns[col]
	cards := m.filteredCards[status]
	start, end, up, _ := visibleRange(len(cards), m.scrollOffset[status], l.cardSlots())

	// Border, then the column header, then the optional "more" line
	firstRow := l.top + 2
	if up {
		firstRow++
	}
	idx := start + (y - firstRow)
	if y < firstRow || idx >= end {
		return "", 0, 0, false
	}
	return cards[idx], col, idx, true
}

// renderBoard renders the kanban columns within the terminal
// Implements horizontal scrolling (carousel) when columns overflow
func (m BoardModel) renderBoard() string {
	l := m.layout()
	if len(m.columns) == 0 {
		return ""
	}

	columnViews := make([]string, 0, l.endCol-l.startCol+2)

	if l.leftIndicator {
		columnViews = append(columnViews, m.renderIndicator("◀", l.contentHeight))
	}
	for i := l.startCol; i < l.endCol; i++ {
		columnViews = append(columnViews, m.renderColumn(i, l))
	}
	if l.endCol < len(m.columns) {
		columnViews = append(columnViews, m.renderIndicator("▶", l.contentHeight))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)
}

func (m BoardModel) renderIndicator(arrow string, contentHeight int) string {
	return lipgloss.NewStyle().
		Width(indicatorWidth).
		Height(contentHeight+2).
		Foreground(lipgloss.Color("205")).
		Align(lipgloss.Center, lipgloss.Center).
		Render(arrow)
}

// renderColumn renders a single column with proper sizing
func (m BoardModel) renderColumn(colIdx int, l boardLayout) string {
	status := m.columns[colIdx]
	cards := m.filteredCards[status]
	selected := colIdx == m.selectedColumn

	var dropTarget bool
	if hovered, ok := m.coord.Hovered(); ok && m.payload != nil {
		dropTarget = hovered == status
	}

	headerText := ansi.Truncate(fmt.Sprintf("%s (%d)", m.label(status), len(cards)), l.innerWidth, "…")

	start, end, up, down := visibleRange(len(cards), m.scrollOffset[status], l.cardSlots())
	selectedIdx := m.selectedCard[status]

	var lines []string
	if dropTarget {
		lines = append(lines, dropTargetHeaderStyle.Render(headerText))
	} else {
		lines = append(lines, columnHeaderStyle.Render(headerText))
	}

	if up {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↑ %d more", start)))
	}

	for i := start; i < end; i++ {
		req, err := m.store.Get(cards[i])
		if err != nil {
			continue
		}

		text := m.formatCardText(req, l.innerWidth-2) // "> " or "  " prefix
		card, _ := m.coord.Card(req.ID)
		switch {
		case card.Dragging:
			lines = append(lines, draggingCardStyle.Render("≡ "+text))
		case selected && i == selectedIdx:
			lines = append(lines, selectedCardStyle.Render("> "+text))
		default:
			lines = append(lines, cardStyle.Render("  "+text))
		}
	}

	if down {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("↓ %d more", len(cards)-end)))
	}

	if len(cards) == 0 {
		lines = append(lines, dimStyle.Render("(empty)"))
	}

	borderColor := lipgloss.Color("240")
	switch {
	case dropTarget:
		borderColor = lipgloss.Color("42")
	case selected:
		borderColor = lipgloss.Color("205")
	}

	// DO NOT use MaxHeight - it truncates the border!
	colStyle := lipgloss.NewStyle().
		Width(l.colWidth-2).
		Height(l.contentHeight).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor)

	return colStyle.Render(strings.Join(lines, "\n"))
}

// formatCardText formats a card for display with max width. The id is
// right-aligned; titles are cut by display width so wide runes fit.
func (m BoardModel) formatCardText(req domain.Requirement, maxWidth int) string {
	suffix := "#" + req.ID
	if req.Priority != "" {
		suffix = priorityStyle(req.Priority).Render("●") + " " + suffix
	}
	suffixLen := lipgloss.Width(suffix)

	availableForTitle := maxWidth - suffixLen - 1
	if availableForTitle < 5 {
		availableForTitle = 5
	}
	title := ansi.Truncate(req.Title, availableForTitle, "…")

	padding := maxWidth - ansi.StringWidth(title) - suffixLen
	if padding < 1 {
		padding = 1
	}
	// One line per card keeps mouse rows aligned with cards.
	return ansi.Truncate(title+strings.Repeat(" ", padding)+dimStyle.Render(suffix), maxWidth, "")
}

// applyFilter filters cards per column and clamps selection and scroll
func (m *BoardModel) applyFilter() {
	m.filteredCards = make(map[domain.Status][]string, len(m.columns))
	for _, status := range m.columns {
		m.filteredCards[status] = m.store.Filter(status, m.filterText)
	}

	for _, status := range m.columns {
		n := len(m.filteredCards[status])
		m.scrollOffset[status] = 0
		if m.selectedCard[status] >= n {
			if n > 0 {
				m.selectedCard[status] = n - 1
			} else {
				m.selectedCard[status] = 0
			}
		}
		m.adjustScroll(status)
	}
	if m.selectedColumn >= len(m.columns) {
		m.selectedColumn = 0
	}
}

// moveCardSelection moves the card selection up or down by delta
func (m *BoardModel) moveCardSelection(delta int) {
	if len(m.columns) == 0 {
		return
	}
	status := m.columns[m.selectedColumn]
	cards := m.filteredCards[status]
	if len(cards) == 0 {
		return
	}

	newIdx := m.selectedCard[status] + delta
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx >= len(cards) {
		newIdx = len(cards) - 1
	}

	m.selectedCard[status] = newIdx
	m.adjustScroll(status)
}

// jumpToCard jumps to a specific card index. Use -1 to jump to last card.
func (m *BoardModel) jumpToCard(idx int) {
	if len(m.columns) == 0 {
		return
	}
	status := m.columns[m.selectedColumn]
	cards := m.filteredCards[status]
	if len(cards) == 0 {
		return
	}

	if idx < 0 || idx >= len(cards) {
		idx = len(cards) - 1
	}
	m.selectedCard[status] = idx
	m.adjustScroll(status)
}

// scrollColumnAt moves the selection in the column under the mouse.
func (m *BoardModel) scrollColumnAt(x, y, delta int) {
	col, ok := m.columnIndexAt(x, y)
	if !ok {
		return
	}
	m.selectedColumn = col
	m.moveCardSelection(delta)
}

// adjustScroll ensures the selected card is visible
func (m *BoardModel) adjustScroll(status domain.Status) {
	selectedIdx := m.selectedCard[status]
	offset := m.scrollOffset[status]

	// Leave room for both "more" lines
	visibleCards := m.layout().cardSlots() - 2
	if visibleCards < 1 {
		visibleCards = 1
	}

	if selectedIdx < offset {
		m.scrollOffset[status] = selectedIdx
	}
	if selectedIdx >= offset+visibleCards {
		m.scrollOffset[status] = selectedIdx - visibleCards + 1
	}
}

// adjustColumnScroll ensures the selected column is visible (horizontal carousel)
func (m *BoardModel) adjustColumnScroll() {
	if len(m.columns) == 0 || m.width == 0 {
		return
	}

	visibleCols := m.width / minColumnWidth
	if visibleCols < 1 {
		visibleCols = 1
	}
	if visibleCols > len(m.columns) {
		visibleCols = len(m.columns)
	}

	if m.selectedColumn < m.columnOffset {
		m.columnOffset = m.selectedColumn
	}
	if m.selectedColumn >= m.columnOffset+visibleCols {
		m.columnOffset = m.selectedColumn - visibleCols + 1
	}
}

// getSelectedRequirement returns the currently selected requirement
func (m BoardModel) getSelectedRequirement() (domain.Requirement, bool) {
	if len(m.columns) == 0 {
		return domain.Requirement{}, false
	}
	status := m.columns[m.selectedColumn]
	cards := m.filteredCards[status]
	if len(cards) == 0 {
		return domain.Requirement{}, false
	}

	idx := m.selectedCard[status]
	if idx >= len(cards) {
		idx = 0
	}
	req, err := m.store.Get(cards[idx])
	if err != nil {
		return domain.Requirement{}, false
	}
	return req, true
}

// reload starts a load that supersedes any still in flight (manual refresh
// and reload after a transition).
func (m *BoardModel) reload() tea.Cmd {
	m.loadSeq++
	m.loading = true
	return tea.Batch(m.spinner.Tick, m.loadRequirements())
}

// loadRequirements fetches every requirement of the project, tagged with the
// current load sequence.
func (m BoardModel) loadRequirements() tea.Cmd {
	seq := m.loadSeq
	st, svc, ctx := m.store, m.svc, m.ctx
	return func() tea.Msg {
		projectID, err := st.Project()
		if err != nil {
			return requirementsLoadedMsg{seq: seq, err: err}
		}
		reqs, err := svc.ListRequirements(ctx, projectID)
		return requirementsLoadedMsg{seq: seq, reqs: reqs, err: err}
	}
}

// openBoardPage opens the service's own kanban page in the browser.
func (m BoardModel) openBoardPage() tea.Cmd {
	projectID, err := m.store.Project()
	if err != nil || m.openURL == nil {
		return nil
	}
	url := m.svc.KanbanPageURL(projectID)
	open := m.openURL
	return func() tea.Msg {
		if err := open(url); err != nil {
			return openFailedMsg{url: url, err: err}
		}
		return nil
	}
}
