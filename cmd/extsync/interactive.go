package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/extsync/backend"
	"github.com/wippyai/extsync/backend/recorder"
	"github.com/wippyai/extsync/device"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	targetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// journalRows is how many trailing journal entries the view shows.
const journalRows = 16

type interactiveModel struct {
	err    error
	opts   scenarioOptions
	rec    *recorder.Context
	dev    *device.Device
	result string
	input  textinput.Model
}

func newInteractiveModel(opts scenarioOptions) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "create 2"
	ti.Prompt = "> "
	ti.Width = 40
	ti.Focus()

	m := &interactiveModel{opts: opts, input: ti}
	m.reset()
	return m
}

func (m *interactiveModel) reset() {
	if m.dev != nil {
		m.dev.Close()
	}
	m.rec = m.opts.recorder()
	m.dev = device.New(m.rec, &device.Config{Logger: m.opts.log})
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.dev.Close()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "quit" || line == "q" {
				m.dev.Close()
				return m, tea.Quit
			}
			m.result, m.err = m.exec(line)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// exec runs one command line against the device.
func (m *interactiveModel) exec(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	args := make([]uint32, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return "", fmt.Errorf("bad argument %q", f)
		}
		args = append(args, uint32(v))
	}
	one := func() (device.Name, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%s takes one semaphore name", fields[0])
		}
		return device.Name(args[0]), nil
	}

	switch fields[0] {
	case "create":
		if len(args) != 1 {
			return "", fmt.Errorf("create takes a count")
		}
		names, err := m.dev.CreateSemaphores(int(args[0]))
		return fmt.Sprintf("created %v", names), err

	case "delete":
		names := make([]device.Name, len(args))
		for i, a := range args {
			names[i] = device.Name(a)
		}
		m.dev.DeleteSemaphores(names)
		return fmt.Sprintf("deleted %v", names), nil

	case "import":
		name, err := one()
		if err != nil {
			return "", err
		}
		if err := importFD(m.dev, name); err != nil {
			return "", err
		}
		return fmt.Sprintf("imported %d", name), nil

	case "signal":
		name, err := one()
		if err != nil {
			return "", err
		}
		err = m.dev.ServerSignalSemaphore(name,
			[]backend.Resource{recorder.Buffer(1)},
			[]backend.Resource{recorder.Texture(2)},
			[]device.Layout{device.LayoutShaderReadOnly})
		return fmt.Sprintf("signalled %d", name), err

	case "wait":
		name, err := one()
		if err != nil {
			return "", err
		}
		err = m.dev.ServerWaitSemaphore(name,
			nil,
			[]backend.Resource{recorder.Texture(2)},
			[]device.Layout{device.LayoutShaderReadOnly})
		return fmt.Sprintf("waited on %d", name), err

	case "reset":
		m.reset()
		return "new device", nil

	default:
		return "", fmt.Errorf("unknown command %q", fields[0])
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("extsync"))
	b.WriteString(fmt.Sprintf(" %d semaphores, %d live primitives\n\n",
		m.dev.SemaphoreCount(), m.rec.Live()))

	journal := m.rec.Journal()
	if len(journal) > journalRows {
		journal = journal[len(journal)-journalRows:]
	}
	for _, c := range journal {
		b.WriteString(fmt.Sprintf("#%-4d %s", c.Seq, opStyle.Render(string(c.Op))))
		if c.Target != "" {
			b.WriteString(" " + targetStyle.Render(c.Target))
		}
		if c.Layout != "" {
			b.WriteString(" -> " + c.Layout)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.result != "" {
		b.WriteString(resultStyle.Render(m.result))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("create N • delete N... • import N • signal N • wait N • reset • quit"))

	return b.String()
}

func runInteractive(opts scenarioOptions) error {
	p := tea.NewProgram(newInteractiveModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
