package bootstrap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var promptTitleStyle = lipgloss.NewStyle().Bold(true)

const (
	fieldTopology = iota
	fieldHost
	fieldPort
	fieldDB
	fieldPassword
	fieldCount
)

// TerminalPrompter collects store connection parameters through an
// interactive terminal form.
type TerminalPrompter struct{}

// NewTerminalPrompter creates a terminal-backed Prompter.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

// CollectDatabase runs the interactive form and returns the collected
// connection parameters.
func (p *TerminalPrompter) CollectDatabase() (*DatabaseAnswers, error) {
	final, err := tea.NewProgram(newDatabaseFormModel()).Run()
	if err != nil {
		return nil, err
	}

	form, ok := final.(databaseFormModel)
	if !ok || form.cancelled {
		return nil, errors.New("prompt cancelled")
	}
	return form.toAnswers()
}

type databaseFormModel struct {
	inputs    []textinput.Model
	focus     int
	cancelled bool
	done      bool
}

func newDatabaseFormModel() databaseFormModel {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 30
	}

	inputs[fieldTopology].Placeholder = TopologyStandalone
	inputs[fieldHost].Placeholder = "localhost"
	inputs[fieldPort].Placeholder = "6379"
	inputs[fieldDB].Placeholder = "0"
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '*'
	inputs[fieldTopology].Focus()

	return databaseFormModel{inputs: inputs}
}

func (m databaseFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m databaseFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateInputs(msg)
	}

	switch keyMsg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.cancelled = true
		return m, tea.Quit

	case tea.KeyEnter:
		if m.focus == len(m.inputs)-1 {
			m.done = true
			return m, tea.Quit
		}
		return m.moveFocus(1), nil

	case tea.KeyTab, tea.KeyDown:
		return m.moveFocus(1), nil

	case tea.KeyShiftTab, tea.KeyUp:
		return m.moveFocus(-1), nil
	}

	return m.updateInputs(msg)
}

func (m databaseFormModel) moveFocus(delta int) databaseFormModel {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
	return m
}

func (m databaseFormModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m databaseFormModel) View() string {
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render("No configuration file found. Configure the gateway store:"))
	b.WriteString("\n\n")
	b.WriteString("Topology (standalone/cluster): [" + m.inputs[fieldTopology].View() + "]\n")
	b.WriteString("Host:                          [" + m.inputs[fieldHost].View() + "]\n")
	b.WriteString("Port:                          [" + m.inputs[fieldPort].View() + "]\n")
	b.WriteString("Database index (optional):     [" + m.inputs[fieldDB].View() + "]\n")
	b.WriteString("Password (optional):           [" + m.inputs[fieldPassword].View() + "]\n\n")
	b.WriteString("esc cancel  tab next field  enter confirm\n")
	return b.String()
}

// toAnswers converts the form values into DatabaseAnswers, applying the
// placeholder defaults for empty fields.
func (m databaseFormModel) toAnswers() (*DatabaseAnswers, error) {
	topology := valueOrDefault(m.inputs[fieldTopology], TopologyStandalone)
	if topology != TopologyStandalone && topology != TopologyCluster {
		return nil, fmt.Errorf("unknown topology %q", topology)
	}

	port, err := strconv.Atoi(valueOrDefault(m.inputs[fieldPort], "6379"))
	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	db, err := strconv.Atoi(valueOrDefault(m.inputs[fieldDB], "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid database index: %w", err)
	}

	return &DatabaseAnswers{
		Topology: topology,
		Host:     valueOrDefault(m.inputs[fieldHost], "localhost"),
		Port:     port,
		DB:       db,
		Password: m.inputs[fieldPassword].Value(),
	}, nil
}

func valueOrDefault(input textinput.Model, def string) string {
	v := strings.TrimSpace(input.Value())
	if v == "" {
		return def
	}
	return v
}
