package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"dalgoctl/internal/notifications"
	"dalgoctl/internal/sanitizer"
	"dalgoctl/internal/types"
)

type prefsField int

const (
	prefsFieldEmail prefsField = iota
	prefsFieldWebhook
)

const timestampLayout = "2006-01-02 15:04"

var tabLabels = map[types.NotificationTab]string{
	types.NotificationTabAll:    "All",
	types.NotificationTabRead:   "Read",
	types.NotificationTabUnread: "Unread",
}

func (m *Model) refreshNotificationsCmd() tea.Cmd {
	return tea.Batch(
		loadListCmd(m.notifications.LoadList(), m.timeout),
		loadCountCmd(m.notifications.LoadCount(), m.timeout),
	)
}

func (m *Model) handleNotificationsKey(key string, msg tea.Msg) tea.Cmd {
	if m.notifications.PreferencesOpen() {
		return m.handlePreferencesKey(key, msg)
	}
	switch key {
	case "q":
		return tea.Quit
	case "tab", "right", "l":
		return m.switchTab(types.NotificationTabAt((m.notifications.TabIndex() + 1) % len(types.NotificationTabs)))
	case "shift+tab", "left", "h":
		n := len(types.NotificationTabs)
		return m.switchTab(types.NotificationTabAt((m.notifications.TabIndex() + n - 1) % n))
	case "1", "2", "3":
		return m.switchTab(types.NotificationTabAt(int(key[0] - '1')))
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "space":
		if item, ok := m.currentNotification(); ok {
			m.notifications.Toggle(item.ID)
		}
	case "a":
		m.notifications.SelectAll()
	case "esc":
		if m.detailOpen {
			m.detailOpen = false
		} else {
			m.notifications.ClearSelection()
		}
	case "enter":
		if _, ok := m.currentNotification(); ok {
			m.detailOpen = !m.detailOpen
		}
	case "r":
		if !m.notifications.CanMarkRead() {
			return nil
		}
		return m.markSelected(true)
	case "u":
		if !m.notifications.CanMarkUnread() {
			return nil
		}
		return m.markSelected(false)
	case "A":
		if !m.notifications.CanMarkAll() {
			return nil
		}
		m.confirm.Open(confirmActionMarkAll, "Mark all as read",
			fmt.Sprintf("Mark all %d unread notifications as read?", m.notifications.UnreadCount()),
			"Mark all", "Cancel")
	case "]", "n":
		return m.setPage(m.notifications.Page() + 1)
	case "[", "b":
		return m.setPage(m.notifications.Page() - 1)
	case "ctrl+r":
		return m.refreshNotificationsCmd()
	case "y":
		if item, ok := m.currentNotification(); ok {
			m.copyWithToast(item.Message, "notification copied")
		}
	case "p":
		m.notifications.OpenPreferences()
		m.prefsFocus = prefsFieldEmail
		m.webhookInput.Blur()
		return preferencesCmd(m.notifications.LoadPreferencesFunc(), m.timeout)
	case "o":
		if m.form == nil {
			m.showWarningToast("no operation open; start with --node")
			return nil
		}
		m.setView(types.ConsoleViewOperation)
		return m.focusNewInput()
	}
	return nil
}

func (m *Model) switchTab(tab types.NotificationTab) tea.Cmd {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	needsLoad, err := m.notifications.SwitchTab(ctx, tab)
	if err != nil {
		m.showErrorToast("could not switch tab: " + err.Error())
		return nil
	}
	m.cursor = 0
	m.detailOpen = false
	if !needsLoad {
		return nil
	}
	return loadListCmd(m.notifications.LoadList(), m.timeout)
}

func (m *Model) setPage(page int) tea.Cmd {
	if !m.notifications.SetPage(page) {
		return nil
	}
	m.cursor = 0
	m.detailOpen = false
	return loadListCmd(m.notifications.LoadList(), m.timeout)
}

func (m *Model) markSelected(read bool) tea.Cmd {
	fn, err := m.notifications.BeginMark(read)
	if err != nil {
		m.reportMutationError(err)
		return nil
	}
	return mutationCmd(fn, m.timeout)
}

func (m *Model) markAll() tea.Cmd {
	fn, err := m.notifications.BeginMarkAll()
	if err != nil {
		m.reportMutationError(err)
		return nil
	}
	return mutationCmd(fn, m.timeout)
}

func (m *Model) reportMutationError(err error) {
	switch {
	case errors.Is(err, notifications.ErrEmptySelection):
		m.showWarningToast("select notifications first")
	case errors.Is(err, notifications.ErrBusy):
		m.showWarningToast("still working on the last update")
	default:
		m.showErrorToast(err.Error())
	}
}

func (m *Model) moveCursor(delta int) {
	items := m.notifications.Items()
	if len(items) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(0, m.cursor+delta), len(items)-1)
}

func (m *Model) clampCursor() {
	m.moveCursor(0)
	if _, ok := m.currentNotification(); !ok {
		m.detailOpen = false
	}
}

func (m *Model) currentNotification() (types.Notification, bool) {
	items := m.notifications.Items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return types.Notification{}, false
	}
	return items[m.cursor], true
}

func (m *Model) handlePreferencesKey(key string, msg tea.Msg) tea.Cmd {
	switch key {
	case "esc":
		m.notifications.ClosePreferences()
		m.webhookInput.Blur()
		return nil
	case "tab", "shift+tab", "up", "down":
		if m.prefsFocus == prefsFieldEmail {
			m.prefsFocus = prefsFieldWebhook
			return m.webhookInput.Focus()
		}
		m.prefsFocus = prefsFieldEmail
		m.webhookInput.Blur()
		return nil
	case "enter":
		draft := m.prefsDraft
		draft.DiscordWebhook = strings.TrimSpace(m.webhookInput.Value())
		fn, err := m.notifications.BeginSavePreferences(draft)
		if err != nil {
			m.showWarningToast("preferences are already being saved")
			return nil
		}
		return preferencesCmd(fn, m.timeout)
	}
	if m.prefsFocus == prefsFieldEmail {
		if key == "space" || key == "e" {
			m.prefsDraft.EnableEmailNotifications = !m.prefsDraft.EnableEmailNotifications
		}
		return nil
	}
	if msg == nil {
		return nil
	}
	return m.webhookInput.Update(msg)
}

func (m *Model) applyPreferences(res notifications.PreferencesResult) {
	if err := m.notifications.ApplyPreferences(res); err != nil {
		if !res.Saved {
			m.showWarningToast("could not load preferences")
		}
		return
	}
	if prefs := m.notifications.Preferences(); prefs != nil {
		m.prefsDraft = *prefs
		m.webhookInput.SetValue(prefs.DiscordWebhook)
	}
	if res.Saved {
		m.notifications.ClosePreferences()
		m.webhookInput.Blur()
	}
}

func (m *Model) renderNotifications(width int) string {
	lines := []string{m.renderTabs(width), ""}
	items := m.notifications.Items()
	switch {
	case len(items) == 0 && !m.notifications.Loaded(m.notifications.Tab()):
		lines = append(lines, statusStyle.Render("Loading notifications…"))
	case len(items) == 0:
		lines = append(lines, statusStyle.Render("No notifications."))
	default:
		for i, item := range items {
			lines = append(lines, m.renderNotificationRow(item, i == m.cursor, width))
		}
	}
	if selected := len(m.notifications.Selected()); selected > 0 {
		lines = append(lines, "", statusStyle.Render(fmt.Sprintf("%d selected", selected)))
	}
	if m.detailOpen {
		if item, ok := m.currentNotification(); ok {
			lines = append(lines, "", m.renderNotificationDetail(item, width))
		}
	}
	if m.notifications.PreferencesOpen() {
		lines = append(lines, "", m.renderPreferences(width))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTabs(width int) string {
	parts := make([]string, 0, len(types.NotificationTabs))
	for i, tab := range types.NotificationTabs {
		label := fmt.Sprintf("%d %s", i+1, tabLabels[tab])
		if tab == m.notifications.Tab() {
			parts = append(parts, tabActiveStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	bar := strings.Join(parts, " ")
	if total := m.notifications.TotalPages(); total > 1 {
		bar += statusStyle.Render(fmt.Sprintf("  page %d/%d", m.notifications.Page(), total))
	}
	return truncateToWidth(bar, width)
}

func (m *Model) renderNotificationRow(item types.Notification, current bool, width int) string {
	marker := "  "
	if current {
		marker = "> "
	}
	check := "[ ]"
	if m.notifications.IsSelected(item.ID) {
		check = checkedStyle.Render("[x]")
	}
	flag := " "
	if item.Urgent {
		flag = urgentStyle.Render("!")
	}
	authorWidth, timeWidth := 16, len(timestampLayout)
	messageWidth := max(8, width-len(marker)-3-1-authorWidth-timeWidth-5)
	firstLine, _, _ := strings.Cut(item.Message, "\n")
	text := strings.Join([]string{
		cell(sanitizer.Line(item.Author), authorWidth),
		cell(formatTimestamp(item), timeWidth),
		cell(sanitizer.Line(firstLine), messageWidth),
	}, " ")
	style := readRowStyle
	if !item.ReadStatus {
		style = unreadRowStyle
	}
	if current {
		style = selectedStyle
	}
	return marker + check + " " + flag + " " + style.Render(text)
}

func formatTimestamp(item types.Notification) string {
	if item.Timestamp.IsZero() {
		return ""
	}
	return item.Timestamp.Local().Format(timestampLayout)
}

func (m *Model) renderNotificationDetail(item types.Notification, width int) string {
	inner := max(10, width-4)
	meta := fmt.Sprintf("**%s** · %s", escapeMarkdown(sanitizer.Line(item.Author)), formatTimestamp(item))
	if item.Urgent {
		meta += " · urgent"
	}
	body := renderMarkdown(meta+"\n\n"+sanitizer.Block(item.Message), inner)
	return panelBorderStyle.Width(inner + 2).Render(body)
}

func (m *Model) renderPreferences(width int) string {
	inner := max(10, width-4)
	check := "[ ]"
	if m.prefsDraft.EnableEmailNotifications {
		check = "[x]"
	}
	email := check + " Email notifications"
	webhook := fieldLabelStyle.Render("Discord webhook ") + m.webhookInput.View()
	if m.prefsFocus == prefsFieldEmail {
		email = fieldFocusStyle.Render(email)
	}
	lines := []string{headerStyle.Render("Preferences")}
	if m.notifications.Preferences() == nil {
		lines = append(lines, statusStyle.Render("Loading preferences…"))
	}
	lines = append(lines, email, webhook)
	if m.notifications.SavingPreferences() {
		lines = append(lines, statusStyle.Render("Saving…"))
	}
	return panelBorderStyle.Width(inner + 2).Render(strings.Join(lines, "\n"))
}

func (m *Model) notificationsHelp() string {
	if m.notifications.PreferencesOpen() {
		return "space toggle email · tab webhook · enter save · esc close"
	}
	parts := []string{"tab switch", "space select", "a all"}
	if m.notifications.CanMarkRead() {
		parts = append(parts, "r mark read")
	}
	if m.notifications.CanMarkUnread() {
		parts = append(parts, "u mark unread")
	}
	if m.notifications.CanMarkAll() {
		parts = append(parts, "A mark all read")
	}
	parts = append(parts, "enter details", "[ ] page", "p prefs")
	if m.form != nil {
		parts = append(parts, "o operation")
	}
	parts = append(parts, "q quit")
	return strings.Join(parts, " · ")
}
