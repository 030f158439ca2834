package app

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// FieldInput is a single-line text field.
type FieldInput struct {
	input textinput.Model
}

func NewFieldInput(width int, placeholder string) *FieldInput {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = placeholder
	input.CharLimit = 256
	input.SetWidth(max(1, width))
	return &FieldInput{input: input}
}

func (f *FieldInput) Resize(width int) {
	f.input.SetWidth(max(1, width))
}

func (f *FieldInput) Focus() tea.Cmd {
	return f.input.Focus()
}

func (f *FieldInput) Blur() {
	f.input.Blur()
}

func (f *FieldInput) Focused() bool {
	return f.input.Focused()
}

func (f *FieldInput) SetValue(value string) {
	f.input.SetValue(value)
	f.input.CursorEnd()
}

func (f *FieldInput) Value() string {
	return f.input.Value()
}

func (f *FieldInput) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd
}

func (f *FieldInput) View() string {
	return f.input.View()
}
