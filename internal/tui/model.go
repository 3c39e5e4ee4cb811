// Package tui is a terminal rendition of the crop recommendation form built on
// bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"agroassist/croprec/croprec"
)

type area int

const (
	areaForm area = iota
	areaResults
)

type (
	snapshotMsg    croprec.Snapshot
	predictDoneMsg struct{ err error }
	saveDoneMsg    struct{ err error }
)

// Model is the bubbletea model for one session.
type Model struct {
	session *croprec.Session
	ctx     context.Context
	styles  Styles
	updates chan croprec.Snapshot

	inputs  []textinput.Model
	focus   int
	area    area
	cursor  int
	snap    croprec.Snapshot
	formErr string
	width   int
}

// New builds a model driving session. ctx bounds every request it issues.
func New(ctx context.Context, session *croprec.Session) Model {
	m := Model{
		session: session,
		ctx:     ctx,
		styles:  DefaultStyles(),
		updates: make(chan croprec.Snapshot, 16),
		inputs:  make([]textinput.Model, len(croprec.Fields)),
	}
	for i, field := range croprec.Fields {
		in := textinput.New()
		in.Placeholder = field.Label()
		in.Prompt = ""
		in.CharLimit = 32
		in.SetValue(session.Field(field))
		m.inputs[i] = in
	}
	m.inputs[0].Focus()

	updates := m.updates
	session.OnChange(func(s croprec.Snapshot) {
		select {
		case updates <- s:
		default:
		}
	})
	m.snap = session.Snapshot()
	return m
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, session *croprec.Session) error {
	_, err := tea.NewProgram(New(ctx, session), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForSnapshot())
}

func (m Model) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		return snapshotMsg(<-updates)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case snapshotMsg:
		m.applySnapshot(croprec.Snapshot(msg))
		return m, m.waitForSnapshot()
	case predictDoneMsg, saveDoneMsg:
		m.applySnapshot(m.session.Snapshot())
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocusedInput(msg)
}

func (m *Model) applySnapshot(s croprec.Snapshot) {
	if s.Rev < m.snap.Rev {
		return
	}
	m.snap = s
	if m.cursor >= len(s.Results) {
		m.cursor = 0
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+s":
		return m, m.saveCmd()
	case "tab", "shift+tab":
		return m.switchFocus(msg.String() == "tab"), nil
	}
	if m.area == areaResults {
		return m.handleResultsKey(msg)
	}
	switch msg.String() {
	case "up":
		return m.switchFocus(false), nil
	case "down":
		return m.switchFocus(true), nil
	case "enter":
		return m.submit()
	}
	return m.updateFocusedInput(msg)
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.snap.Results)-1 {
			m.cursor++
		}
	case " ", "x":
		if m.cursor < len(m.snap.Results) {
			m.session.Toggle(m.snap.Results[m.cursor].Crop)
			m.applySnapshot(m.session.Snapshot())
		}
	case "s", "enter":
		return m, m.saveCmd()
	}
	return m, nil
}

// switchFocus moves through the seven inputs and, once a prediction exists,
// the result list.
func (m Model) switchFocus(forward bool) Model {
	slots := len(m.inputs)
	if m.snap.HasResults && len(m.snap.Results) > 0 {
		slots++
	}
	pos := m.focus
	if m.area == areaResults {
		pos = len(m.inputs)
	}
	if forward {
		pos = (pos + 1) % slots
	} else {
		pos = (pos - 1 + slots) % slots
	}
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	if pos == len(m.inputs) {
		m.area = areaResults
		return m
	}
	m.area = areaForm
	m.focus = pos
	m.inputs[pos].Focus()
	return m
}

func (m Model) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.area != areaForm {
		return m, nil
	}
	var cmd tea.Cmd
	before := m.inputs[m.focus].Value()
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if value := m.inputs[m.focus].Value(); value != before {
		_ = m.session.SetField(croprec.Fields[m.focus], value)
		m.formErr = ""
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	for i, field := range croprec.Fields {
		if err := croprec.ValidateMeasurement(m.inputs[i].Value()); err != nil {
			m.formErr = fmt.Sprintf("%s: %v", field.Label(), err)
			m.inputs[m.focus].Blur()
			m.focus = i
			m.inputs[i].Focus()
			return m, nil
		}
	}
	m.formErr = ""
	if m.snap.Predicting {
		return m, nil
	}
	return m, m.predictCmd()
}

func (m Model) predictCmd() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return predictDoneMsg{err: session.Predict(ctx)}
	}
}

func (m Model) saveCmd() tea.Cmd {
	if m.snap.Saving {
		return nil
	}
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return saveDoneMsg{err: session.Save(ctx)}
	}
}

func (m Model) View() string {
	var b strings.Builder
	s := m.styles
	b.WriteString(s.Title.Render("Crop Recommendation"))
	b.WriteString("\n")

	for i, field := range croprec.Fields {
		label := s.Label.Render(field.Label())
		if m.area == areaForm && i == m.focus {
			label = s.Focused.Render(field.Label())
		}
		fmt.Fprintf(&b, "%s %s\n", label, m.inputs[i].View())
	}
	if m.formErr != "" {
		b.WriteString(s.Error.Render(m.formErr))
		b.WriteString("\n")
	}

	if m.snap.HasResults {
		b.WriteString(s.Section.Render("Recommended Crops"))
		b.WriteString("\n")
		for i, rec := range m.snap.Results {
			box := "[ ]"
			if m.snap.IsSelected(rec.Crop) {
				box = s.Checked.Render("[x]")
			}
			pointer := "  "
			if m.area == areaResults && i == m.cursor {
				pointer = s.Cursor.Render("> ")
			}
			fmt.Fprintf(&b, "%s%s %s\n", pointer, box, rec.Label())
		}
	}

	if m.snap.Status != "" {
		b.WriteString("\n")
		b.WriteString(s.Status.Render(m.snap.Status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.Help.Render(m.helpText()))
	doc := s.Document
	if m.width > 0 {
		doc = doc.MaxWidth(m.width)
	}
	return doc.Render(b.String())
}

func (m Model) helpText() string {
	if m.area == areaResults {
		return "↑/↓ move • space toggle • s save • tab form • esc quit"
	}
	return "tab/↑/↓ move • enter predict • ctrl+s save • esc quit"
}
