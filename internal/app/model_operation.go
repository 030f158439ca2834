package app

import (
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"dalgoctl/internal/logging"
	"dalgoctl/internal/opform"
	"dalgoctl/internal/types"
)

// openForm replaces the operation form. Bumping the generation drops any
// response still in flight for the previous form.
func (m *Model) openForm(node types.Node, mode types.OperationAction) {
	m.formGen++
	m.form = opform.New(node, mode, opform.Options{
		Backend:   m.opBackend,
		Notifier:  toastSink{m: m},
		Logger:    m.logger,
		OnSaved:   func(saved *types.OperationNode) { m.lastSaved = saved },
		FocusHook: m.focusFormCell,
	})
	m.formRow = 0
	m.formField = opform.FieldOld
	m.newInput.SetValue("")
}

func (m *Model) initFormCmd() tea.Cmd {
	if m.form == nil {
		return nil
	}
	fn := m.form.BeginInit()
	if fn == nil {
		return nil
	}
	return formInitCmd(m.formGen, fn, m.timeout)
}

func (m *Model) focusNewInput() tea.Cmd {
	if m.form == nil || m.formField != opform.FieldNew || m.form.ReadOnly() {
		return nil
	}
	return m.newInput.Focus()
}

// focusFormCell moves the cursor and loads the row's new value into the
// text field when that is the focused cell.
func (m *Model) focusFormCell(row int, field opform.Field) {
	if m.form == nil {
		return
	}
	rows := m.form.Rows()
	if len(rows) == 0 {
		m.formRow, m.formField = 0, opform.FieldOld
		m.newInput.Blur()
		return
	}
	m.formRow = min(max(0, row), len(rows)-1)
	m.formField = field
	if field == opform.FieldNew && !m.form.ReadOnly() {
		m.newInput.SetValue(rows[m.formRow].New)
		m.newInput.Focus()
		return
	}
	m.newInput.Blur()
}

func (m *Model) resetForm() {
	if m.form == nil {
		return
	}
	if err := m.form.SetRows(opform.BlankRows()); err != nil {
		m.showWarningToast(err.Error())
		return
	}
	m.focusFormCell(0, opform.FieldOld)
}

func (m *Model) handleOperationKey(key string, msg tea.Msg) tea.Cmd {
	switch key {
	case "esc":
		m.setView(types.ConsoleViewNotifications)
		return nil
	case "up":
		m.focusFormCell(m.formRow-1, m.formField)
		return nil
	case "down":
		m.focusFormCell(m.formRow+1, m.formField)
		return nil
	case "tab":
		m.stepFocus(1)
		return nil
	case "shift+tab":
		m.stepFocus(-1)
		return nil
	case "ctrl+y":
		data, err := opform.MappingYAML(m.form.Rows())
		if err != nil {
			m.showErrorToast(err.Error())
			return nil
		}
		m.copyWithToast(string(data), "mapping copied")
		return nil
	}
	if m.form.ReadOnly() || m.form.Loading() {
		return nil
	}
	switch key {
	case "ctrl+s":
		return m.submitForm()
	case "ctrl+n":
		m.appendRow()
		return nil
	case "ctrl+d":
		if err := m.form.Remove(m.formRow); err != nil {
			m.showWarningToast(err.Error())
			return nil
		}
		m.focusFormCell(m.formRow, m.formField)
		return nil
	case "ctrl+x":
		m.confirm.Open(confirmActionResetForm, "Reset form", "Discard every row of this form?", "Reset", "Keep")
		return nil
	}
	if len(m.form.Rows()) == 0 {
		return nil
	}
	if m.formField == opform.FieldOld {
		switch key {
		case "right", "space", "enter":
			m.cycleOld(1)
		case "left":
			m.cycleOld(-1)
		}
		return nil
	}
	if key == "enter" {
		m.appendRow()
		return nil
	}
	if msg == nil {
		return nil
	}
	cmd := m.newInput.Update(msg)
	if err := m.form.SetNew(m.formRow, m.newInput.Value()); err != nil {
		m.logger.Debug("set new value failed", logging.F("error", err.Error()))
	}
	return cmd
}

func (m *Model) stepFocus(delta int) {
	rows := len(m.form.Rows())
	if rows == 0 {
		return
	}
	pos := m.formRow*2 + int(m.formField) + delta
	pos = min(max(0, pos), rows*2-1)
	m.focusFormCell(pos/2, opform.Field(pos%2))
}

// cycleOld steps the focused row through the columns it may still pick.
func (m *Model) cycleOld(delta int) {
	options := m.form.Options(m.formRow)
	if len(options) == 0 {
		m.showWarningToast("no source columns available")
		return
	}
	current := strings.TrimSpace(m.form.Rows()[m.formRow].Old)
	next := 0
	for i, option := range options {
		if option == current {
			next = (i + delta + len(options)) % len(options)
			break
		}
	}
	if current == "" && delta < 0 {
		next = len(options) - 1
	}
	row := m.formRow
	if err := m.form.SetOld(row, options[next]); err != nil {
		m.showWarningToast(err.Error())
		return
	}
	// SetOld moves focus to the new value; stay on the picker while cycling.
	m.focusFormCell(row, opform.FieldOld)
}

func (m *Model) appendRow() {
	added, err := m.form.Append()
	if err != nil {
		m.showWarningToast(err.Error())
		return
	}
	if !added {
		m.showWarningToast("fill in the last row first, or every source column is used")
	}
}

func (m *Model) submitForm() tea.Cmd {
	fn, err := m.form.BeginSubmit()
	if err != nil {
		var verr *opform.ValidationError
		switch {
		case errors.As(err, &verr):
			m.showErrorToast(fmt.Sprintf("%d problem(s) to fix before saving", len(verr.Violations)))
		case errors.Is(err, opform.ErrBusy):
			m.showWarningToast("save already in progress")
		default:
			m.showErrorToast(err.Error())
		}
		return nil
	}
	return formSubmitCmd(m.formGen, fn, m.timeout)
}

// finishFormSubmit applies a save result. A saved operation becomes the next
// link of the chain: creates continue with a new form on the saved node,
// edits reload the node they changed.
func (m *Model) finishFormSubmit(msg formSubmitMsg) tea.Cmd {
	if msg.gen != m.formGen || m.form == nil {
		return nil
	}
	mode := m.form.Mode()
	if err := m.form.FinishSubmit(msg.result); err != nil {
		return nil
	}
	saved := msg.result.Node
	if saved == nil || strings.TrimSpace(saved.ID) == "" {
		m.focusFormCell(0, opform.FieldOld)
		return nil
	}
	m.showInfoToast(m.form.Operation().Label() + " saved")
	node := types.NodeFromOperation(saved)
	m.persistState(func(state *types.ConsoleState) {
		state.LastNodeID = node.ID
	})
	next := types.OperationActionCreate
	if mode == types.OperationActionEdit {
		next = types.OperationActionEdit
	}
	m.openForm(node, next)
	return tea.Batch(rememberNodeCmd(m.nodes, node, m.timeout), m.initFormCmd())
}

func (m *Model) renderOperation(width int) string {
	form := m.form
	lines := []string{chainStyle.Render(truncateToWidth(opform.ChainLine(form.Node(), form.Operation(), form.Mode()), width))}
	if m.lastSaved != nil {
		lines = append(lines, statusStyle.Render("last saved: "+m.lastSaved.ID))
	}
	lines = append(lines, "")
	if form.Loading() {
		lines = append(lines, m.loader.View()+" "+statusStyle.Render("Loading…"))
		return strings.Join(lines, "\n")
	}

	colWidth := max(12, (width-8)/2)
	lines = append(lines, "  "+fieldLabelStyle.Render(cell("Current name", colWidth))+"  "+fieldLabelStyle.Render(cell("New name", colWidth)))
	rows := form.Rows()
	if len(rows) == 0 {
		lines = append(lines, statusStyle.Render("  No rows. ctrl+n adds one."))
	}
	for i, row := range rows {
		lines = append(lines, m.renderFormRow(i, row, colWidth))
	}
	lines = append(lines, "")
	source := form.SourceColumns()
	info := fmt.Sprintf("%d source column(s)", len(source))
	if form.ReadOnly() {
		info += " · read-only"
	} else if form.CanAdd() {
		info += " · enter adds a row"
	}
	lines = append(lines, statusStyle.Render(info))
	for _, v := range form.Violations() {
		lines = append(lines, violationStyle.Render(truncateToWidth("• "+v.String(), width)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFormRow(i int, row opform.Row, colWidth int) string {
	current := i == m.formRow
	marker := "  "
	if current {
		marker = "> "
	}
	old := row.Old
	if strings.TrimSpace(old) == "" {
		old = "‹select column›"
	}
	oldCell := cell(old, colWidth)
	newCell := cell(row.New, colWidth)
	switch {
	case m.form.ReadOnly():
		oldCell = fieldDisabledStyle.Render(oldCell)
		newCell = fieldDisabledStyle.Render(newCell)
	case current && m.formField == opform.FieldOld:
		oldCell = fieldFocusStyle.Render(oldCell)
	case current && m.formField == opform.FieldNew:
		newCell = padToWidth(truncateToWidth(m.newInput.View(), colWidth), colWidth)
	}
	return marker + oldCell + "  " + newCell
}

func (m *Model) operationHelp() string {
	if m.form.ReadOnly() {
		return "↑/↓ rows · ctrl+y copy mapping · esc notifications · ctrl+c quit"
	}
	return "tab next field · ←/→ pick column · enter add row · ctrl+d remove · ctrl+s save · ctrl+x reset · ctrl+y copy · esc notifications"
}
