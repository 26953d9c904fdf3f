package picker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrCancelled = errors.New("no file selected")

// Model lets the user browse to a CSV dataset, the program quits as soon
// as a file is chosen or the user backs out.
type Model struct {
	filepicker filepicker.Model
	// absolute path of the chosen file
	Selected  string
	Cancelled bool
	err       error
}

func New(dir string) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv"}
	fp.CurrentDirectory = dir
	return Model{filepicker: fp}
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.Cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		return m.choose(path)
	}
	if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		m.err = fmt.Errorf("%s is not a .csv file", filepath.Base(path))
		return m, cmd
	}
	return m, cmd
}

func (m Model) choose(path string) (tea.Model, tea.Cmd) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		m.err = fmt.Errorf("%s is not a .csv file", filepath.Base(path))
		return m, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.Selected = abs
	m.err = nil
	return m, tea.Quit
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select the existing eSIM devices CSV"))
	b.WriteString("\n")
	b.WriteString(directoryStyle.Render(m.filepicker.CurrentDirectory))
	b.WriteString("\n\n")
	b.WriteString(m.filepicker.View())
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
	}
	b.WriteString(helpStyle.Render("enter: select  esc/q: cancel"))
	return b.String()
}

// Pick runs the picker in the terminal and returns the chosen file.
func Pick(ctx context.Context, dir string) (string, error) {
	p := tea.NewProgram(
		New(dir),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	m := final.(Model)
	if m.Cancelled || m.Selected == "" {
		return "", ErrCancelled
	}
	return m.Selected, nil
}
