package picker

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestCancelKeys(t *testing.T) {
	testCases := []tea.KeyMsg{
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
	}

	for _, msg := range testCases {
		t.Run(msg.String(), func(t *testing.T) {
			updated, cmd := New(t.TempDir()).Update(msg)
			require.True(t, updated.(Model).Cancelled)
			require.Empty(t, updated.(Model).Selected)
			require.NotNil(t, cmd)
			require.Equal(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestChoose(t *testing.T) {
	dir := t.TempDir()

	updated, cmd := New(dir).choose(filepath.Join(dir, "devices.CSV"))
	m := updated.(Model)
	require.Equal(t, filepath.Join(dir, "devices.CSV"), m.Selected)
	require.False(t, m.Cancelled)
	require.Equal(t, tea.QuitMsg{}, cmd())

	updated, cmd = New(dir).choose(filepath.Join(dir, "notes.txt"))
	m = updated.(Model)
	require.Empty(t, m.Selected)
	require.Nil(t, cmd)
	require.Error(t, m.err)
	require.Contains(t, m.View(), "notes.txt is not a .csv file")
}

func TestView(t *testing.T) {
	dir := t.TempDir()
	view := New(dir).View()
	require.Contains(t, view, "Select the existing eSIM devices CSV")
	require.Contains(t, view, dir)
}
