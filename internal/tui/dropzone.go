package tui

import (
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/csheth/leafscan/internal/errors"
	"github.com/csheth/leafscan/internal/selection"
)

// dropZone is the file-drop surface. Terminals deliver a dropped file as its
// path typed into the focused input; active mirrors that focus.
type dropZone struct {
	input        textinput.Model
	active       bool
	lastError    string
	onFileSelect func(*selection.Candidate)
}

func newDropZone(onFileSelect func(*selection.Candidate)) dropZone {
	input := textinput.New()
	input.Placeholder = dropZonePlaceholder
	input.CharLimit = 1024
	input.Width = 70
	d := dropZone{input: input, onFileSelect: onFileSelect}
	d.SetActive(true)
	return d
}

func (d *dropZone) Active() bool {
	return d.active
}

// SetActive focuses or blurs the input.
func (d *dropZone) SetActive(active bool) {
	d.active = active
	if active {
		d.input.Focus()
		return
	}
	d.input.Blur()
}

func (d *dropZone) SetWidth(width int) {
	d.input.Width = width
}

func (d *dropZone) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	d.input, cmd = d.input.Update(msg)
	return cmd
}

// Submit loads the typed path and hands the candidate to onFileSelect. A path
// that cannot be read is reported as a missing candidate.
func (d *dropZone) Submit() bool {
	path := strings.TrimSpace(d.input.Value())
	if path == "" {
		return false
	}
	d.input.SetValue("")
	candidate, err := selection.Load(path)
	if err != nil {
		log.Printf("[dropzone] load %q: %v", path, err)
		d.lastError = apperrors.UserMessage(err)
		candidate = nil
	} else {
		d.lastError = ""
	}
	if d.onFileSelect != nil {
		d.onFileSelect(candidate)
	}
	return true
}

func (d *dropZone) View() string {
	return d.input.View()
}
