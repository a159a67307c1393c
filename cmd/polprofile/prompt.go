package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const promptText = "Enter the politician's name"

var errPromptCanceled = errors.New("prompt canceled")

// promptName asks for the name, with a text input on a terminal and a plain
// line read otherwise.
func (a *app) promptName() (string, error) {
	if !a.interactive {
		return readName(a.stdin, a.stderr)
	}

	program := tea.NewProgram(newPromptModel(), tea.WithInput(a.stdin), tea.WithOutput(a.stderr))
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}
	model := final.(promptModel)
	if model.canceled {
		return "", errPromptCanceled
	}
	return strings.TrimSpace(model.input.Value()), nil
}

func readName(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintf(out, "%s: ", promptText)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read name: %w", err)
	}
	return strings.TrimSpace(line), nil
}

type promptModel struct {
	input     textinput.Model
	submitted bool
	canceled  bool
}

func newPromptModel() promptModel {
	input := textinput.New()
	input.Placeholder = "e.g. Amit Shah"
	input.Prompt = "│ "
	input.CharLimit = 120
	input.Width = 60
	input.Focus()
	return promptModel{input: input}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.submitted || m.canceled {
		return ""
	}
	return promptText + "\n" + m.input.View() + "\n"
}
