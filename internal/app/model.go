package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"dalgoctl/internal/config"
	"dalgoctl/internal/logging"
	"dalgoctl/internal/notifications"
	"dalgoctl/internal/opform"
	"dalgoctl/internal/store"
	"dalgoctl/internal/types"
)

const (
	tickInterval    = 100 * time.Millisecond
	defaultWidth    = 100
	defaultHeight   = 30
	minContentWidth = 40
)

type Options struct {
	Notifications notifications.Backend
	Operations    opform.Backend
	// Location keeps the active tab; StoredLocation persists it.
	Location notifications.Location
	// State persists the active view and last node. Optional.
	State notifications.StateStore
	// Nodes remembers saved operation nodes. Optional.
	Nodes    store.NodeStore
	Logger   logging.Logger
	UI       config.UIConfig
	PageSize int
	Timeout  time.Duration
	View     types.ConsoleView
	// Node opens the operation form on start; nil leaves the form closed.
	Node *types.Node
	Mode types.OperationAction
	Now  func() time.Time
}

type Model struct {
	width  int
	height int
	view   types.ConsoleView

	logger  logging.Logger
	timeout time.Duration
	now     func() time.Time
	state   notifications.StateStore
	nodes   store.NodeStore

	notifications *notifications.Controller
	cursor        int
	detailOpen    bool
	prefsDraft    types.UserPreferences
	prefsFocus    prefsField
	webhookInput  *FieldInput

	opBackend opform.Backend
	form      *opform.Controller
	formGen   int
	formRow   int
	formField opform.Field
	newInput  *FieldInput
	lastSaved *types.OperationNode

	confirm *ConfirmController
	loader  spinner.Model

	toastText     string
	toastLevel    toastLevel
	toastUntil    time.Time
	toastDuration time.Duration
}

func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loader := spinner.New()
	loader.Spinner = spinner.Line
	loader.Style = lipgloss.NewStyle()
	setMarkdownBackgroundDark(opts.UI.MarkdownDark())

	m := &Model{
		width:         defaultWidth,
		height:        defaultHeight,
		view:          types.NormalizeConsoleView(string(opts.View)),
		logger:        logger.With(logging.F("component", "ui")),
		timeout:       opts.Timeout,
		now:           now,
		state:         opts.State,
		nodes:         opts.Nodes,
		opBackend:     opts.Operations,
		confirm:       NewConfirmController(),
		loader:        loader,
		toastDuration: opts.UI.ToastDuration(),
		webhookInput:  NewFieldInput(defaultWidth/2, "https://discord.com/api/webhooks/..."),
		newInput:      NewFieldInput(defaultWidth/3, "new name"),
	}
	if m.timeout <= 0 {
		m.timeout = defaultRequestTimeout
	}
	m.notifications = notifications.New(notifications.Options{
		Backend:  opts.Notifications,
		Notifier: toastSink{m: m},
		Logger:   logger,
		Location: opts.Location,
		PageSize: opts.PageSize,
	})
	if opts.Node != nil {
		m.openForm(*opts.Node, opts.Mode)
	}
	if m.form == nil {
		m.view = types.ConsoleViewNotifications
	}
	return m
}

func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts))
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.startupCmd(), tickCmd())
}

func (m *Model) startupCmd() tea.Cmd {
	cmds := []tea.Cmd{m.refreshNotificationsCmd()}
	if m.form != nil {
		cmds = append(cmds, m.initFormCmd())
	}
	if m.view == types.ConsoleViewOperation {
		cmds = append(cmds, m.focusNewInput())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyPressMsg:
		return m, m.handleKey(msg.String(), msg)
	case tickMsg:
		if m.busy() {
			m.loader, _ = m.loader.Update(spinner.TickMsg{Time: time.Time(msg), ID: m.loader.ID()})
		}
		return m, tickCmd()
	case notificationsListMsg:
		m.notifications.ApplyList(msg.result)
		m.clampCursor()
		return m, nil
	case unreadCountMsg:
		m.notifications.ApplyCount(msg.result)
		return m, nil
	case mutationMsg:
		_ = m.notifications.FinishMutation(msg.result)
		return m, m.refreshNotificationsCmd()
	case preferencesMsg:
		m.applyPreferences(msg.result)
		return m, nil
	case formInitMsg:
		if msg.gen != m.formGen || m.form == nil {
			return m, nil
		}
		m.form.FinishInit(msg.result)
		m.focusFormCell(0, opform.FieldOld)
		return m, nil
	case formSubmitMsg:
		return m, m.finishFormSubmit(msg)
	case nodeRememberedMsg:
		if msg.err != nil {
			m.logger.Warn("remember node failed", logging.F("error", msg.err.Error()))
		} else if msg.record != nil {
			m.logger.Debug("node remembered", logging.F("node_id", msg.record.Node.ID))
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(key string, msg tea.Msg) tea.Cmd {
	if key == "ctrl+c" {
		return tea.Quit
	}
	if m.confirm.IsOpen() {
		_, choice := m.confirm.HandleKey(key)
		return m.resolveConfirm(choice)
	}
	if m.view == types.ConsoleViewOperation && m.form != nil {
		return m.handleOperationKey(key, msg)
	}
	return m.handleNotificationsKey(key, msg)
}

func (m *Model) resolveConfirm(choice confirmChoice) tea.Cmd {
	action := m.confirm.Action()
	switch choice {
	case confirmChoiceCancel:
		m.confirm.Close()
	case confirmChoiceConfirm:
		m.confirm.Close()
		switch action {
		case confirmActionMarkAll:
			return m.markAll()
		case confirmActionResetForm:
			m.resetForm()
		}
	}
	return nil
}

func (m *Model) busy() bool {
	if m.notifications.Submitting() || m.notifications.SavingPreferences() {
		return true
	}
	return m.form != nil && m.form.Loading()
}

func (m *Model) resize(width, height int) {
	if width > 0 {
		m.width = width
	}
	if height > 0 {
		m.height = height
	}
	m.webhookInput.Resize(max(10, m.contentWidth()/2))
	m.newInput.Resize(max(10, m.contentWidth()/3))
}

func (m *Model) contentWidth() int {
	return max(minContentWidth, m.width)
}

// setView switches the visible view and records it in the console state.
func (m *Model) setView(view types.ConsoleView) {
	m.view = view
	if view == types.ConsoleViewOperation {
		m.focusFormCell(m.formRow, m.formField)
	} else {
		m.newInput.Blur()
	}
	m.persistState(func(state *types.ConsoleState) {
		state.ActiveView = view
		if m.form != nil && strings.TrimSpace(m.form.Node().ID) != "" {
			state.LastNodeID = m.form.Node().ID
		}
	})
}

// persistState applies mutate to the stored console state. Failures are
// logged; the view keeps working without persistence.
func (m *Model) persistState(mutate func(*types.ConsoleState)) {
	if m.state == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	current, err := m.state.Load(ctx)
	if err != nil {
		m.logger.Warn("load console state failed", logging.F("error", err.Error()))
		return
	}
	next := types.CloneConsoleState(current)
	mutate(next)
	if err := m.state.Save(ctx, next); err != nil {
		m.logger.Warn("save console state failed", logging.F("error", err.Error()))
	}
}

func (m *Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m *Model) render() string {
	width := m.contentWidth()
	var body string
	if m.view == types.ConsoleViewOperation && m.form != nil {
		body = m.renderOperation(width)
	} else {
		body = m.renderNotifications(width)
	}
	lines := []string{m.renderHeader(width), divider(width), body}
	if m.confirm.IsOpen() {
		lines = append(lines, "", indentBlock(m.confirm.View(width), 2))
	}
	if toast := m.toastLine(width); toast != "" {
		lines = append(lines, toast)
	}
	lines = append(lines, divider(width), helpStyle.Render(truncateToWidth(m.helpText(), width)))
	return strings.Join(lines, "\n")
}

func (m *Model) renderHeader(width int) string {
	title := "Notifications"
	if m.view == types.ConsoleViewOperation && m.form != nil {
		title = m.form.Operation().Label()
	}
	header := headerStyle.Render("dalgoctl") + statusStyle.Render(" · "+title)
	if count := m.notifications.UnreadCount(); count > 0 {
		header += " " + unreadBadgeStyle.Render(fmt.Sprintf("%d unread", count))
	}
	if m.busy() {
		header += " " + m.loader.View()
	}
	return truncateToWidth(header, width)
}

func (m *Model) helpText() string {
	if m.view == types.ConsoleViewOperation && m.form != nil {
		return m.operationHelp()
	}
	return m.notificationsHelp()
}
