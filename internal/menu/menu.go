// Package menu is the interactive shell of the CLI.
package menu

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Runner performs the menu actions that stay inside the shell.
type Runner interface {
	ProcessAll(ctx context.Context) (string, error)
	ProcessNamed(ctx context.Context, name string) (string, error)
	DescribeOutputs(ctx context.Context) (string, error)
}

// Action is what the shell asks the caller to do after it exits.
type Action int

const (
	ActionNone Action = iota
	ActionWatch
	ActionQuit
)

const (
	itemProcessAll = iota
	itemWatch
	itemProcessNamed
	itemOutputs
	itemExit
)

var items = []string{
	"Process all files in input folder",
	"Watch input folder for new files",
	"Process a specific file",
	"View outputs",
	"Exit",
}

// Key binding constants used in handleKey.
const (
	keyQuit  = "q"
	keyCtrlC = "ctrl+c"
	keyUp    = "up"
	keyDown  = "down"
	keyJ     = "j"
	keyK     = "k"
	keyEnter = "enter"
	keyEsc   = "esc"
	keyBack  = "backspace"
)

type resultMsg struct {
	text string
	err  error
}

type Model struct {
	ctx      context.Context
	runner   Runner
	inputDir string

	cursor    int
	inputMode bool
	input     string
	busy      bool

	output string
	err    string
	chosen Action
}

func New(ctx context.Context, runner Runner, inputDir string) Model {
	return Model{ctx: ctx, runner: runner, inputDir: inputDir}
}

// Chosen reports the action selected when the shell exited.
func (m Model) Chosen() Action { return m.chosen }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err.Error()
			m.output = ""
		} else {
			m.err = ""
			m.output = msg.text
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == keyCtrlC {
		m.chosen = ActionQuit
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}
	if m.inputMode {
		switch key {
		case keyEsc:
			m.inputMode = false
			m.input = ""
		case keyEnter:
			name := m.input
			m.inputMode = false
			m.input = ""
			m.busy = true
			return m, m.run(func(ctx context.Context) (string, error) { return m.runner.ProcessNamed(ctx, name) })
		case keyBack:
			if r := []rune(m.input); len(r) > 0 {
				m.input = string(r[:len(r)-1])
			}
		default:
			if msg.Type == tea.KeyRunes {
				m.input += string(msg.Runes)
			}
		}
		return m, nil
	}

	switch key {
	case keyQuit:
		m.chosen = ActionQuit
		return m, tea.Quit
	case keyUp, keyK:
		if m.cursor > 0 {
			m.cursor--
		}
	case keyDown, keyJ:
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "1", "2", "3", "4", "5":
		m.cursor = int(key[0] - '1')
		return m.selectItem()
	case keyEnter:
		return m.selectItem()
	}
	return m, nil
}

func (m Model) selectItem() (tea.Model, tea.Cmd) {
	switch m.cursor {
	case itemProcessAll:
		m.busy = true
		return m, m.run(m.runner.ProcessAll)
	case itemWatch:
		m.chosen = ActionWatch
		return m, tea.Quit
	case itemProcessNamed:
		m.inputMode = true
		m.input = ""
	case itemOutputs:
		m.busy = true
		return m, m.run(m.runner.DescribeOutputs)
	case itemExit:
		m.chosen = ActionQuit
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) run(fn func(context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		text, err := fn(ctx)
		return resultMsg{text: text, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ETL Pipeline"))
	b.WriteString("\n\n")
	for i, it := range items {
		line := fmt.Sprintf("%d. %s", i+1, it)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.inputMode:
		fmt.Fprintf(&b, "File name in %s: %s█\n", m.inputDir, m.input)
	case m.busy:
		b.WriteString("Processing...\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render("Error: "+m.err) + "\n")
	}
	if m.output != "" {
		b.WriteString(outputStyle.Render(strings.TrimRight(m.output, "\n")) + "\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ move • enter select • 1-5 shortcut • q quit"))
	b.WriteString("\n")
	return b.String()
}
