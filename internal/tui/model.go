package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/csheth/leafscan/internal/analysis"
	"github.com/csheth/leafscan/internal/detail"
	apperrors "github.com/csheth/leafscan/internal/errors"
	"github.com/csheth/leafscan/internal/selection"
	"github.com/csheth/leafscan/internal/session"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Analyzer    analysis.Analyzer
	Detail      detail.Generator
	ExportDir   string
	Timeout     time.Duration
	InitialPath string
}

// New returns a tea.Model ready to be mounted into a Program. Pass it to
// Shutdown once the program exits.
func New(config Config) tea.Model {
	return newModel(config)
}

func newModel(config Config) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	m := &model{
		config:         config,
		session:        session.New(),
		jobs:           newJobBus(config.Timeout),
		jobStates:      map[jobKind]jobSnapshot{},
		layout:         newPageLayout(),
		spinner:        spin,
		viewport:       vp,
		viewportDirty:  true,
		sectionAnchors: map[string]int{},
		infoMessage:    "Drop a leaf image to begin.",
	}
	m.dropZone = newDropZone(m.selectFile)
	if config.InitialPath != "" {
		m.dropZone.input.SetValue(config.InitialPath)
		m.submitDropZone()
	}
	return m
}

// Shutdown releases resources held by a model returned from New.
func Shutdown(tm tea.Model) {
	if m, ok := tm.(*model); ok {
		m.session.Close()
	}
}

type model struct {
	config  Config
	session *session.State
	jobs    *jobBus

	jobStates map[jobKind]jobSnapshot
	layout    pageLayout
	dropZone  dropZone
	spinner   spinner.Model
	viewport  viewport.Model

	viewportContent    string
	viewportDirty      bool
	lineCount          int
	sectionAnchors     map[string]int
	pendingFocusAnchor string

	previewVisible bool
	helpVisible    bool
	exporting      bool
	lastExport     string
	infoMessage    string
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) selectFile(c *selection.Candidate) {
	m.session.SelectFile(c)
	m.previewVisible = false
	m.viewport.SetYOffset(0)
	m.markViewportDirty()
}

func (m *model) submitDropZone() {
	if !m.dropZone.Submit() {
		m.infoMessage = "Type or drop a file path first."
		return
	}
	if m.dropZone.lastError != "" {
		m.infoMessage = m.dropZone.lastError
		return
	}
	if img := m.session.Image(); img != nil {
		m.dropZone.SetActive(false)
		m.infoMessage = fmt.Sprintf("Selected %s (%s). Press a to analyze.", img.Name, img.MIMEType)
		return
	}
	m.infoMessage = ""
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.session.Busy() || m.exporting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.markViewportDirty()
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case jobSignalMsg:
		m.jobStates[msg.Snapshot.Kind] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		m.jobStates[msg.Snapshot.Kind] = msg.Snapshot
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case analyzeResultMsg:
		m.session.CompleteAnalyze(msg.ticket, msg.result, msg.err)
		if msg.err == nil && m.session.Result() != nil {
			m.infoMessage = "Analysis ready. Press d for treatment detail, x to export."
			m.pendingFocusAnchor = anchorClassification
		} else {
			m.infoMessage = ""
		}
		m.markViewportDirty()
		return m, nil
	case detailResultMsg:
		m.session.CompleteDetail(msg.ticket, msg.result, msg.err)
		m.infoMessage = ""
		m.markViewportDirty()
		return m, nil
	case exportResultMsg:
		m.exporting = false
		if msg.err != nil {
			m.session.Notify(session.Failure("Export failed: " + apperrors.UserMessage(msg.err)))
			m.infoMessage = ""
			return m, nil
		}
		m.lastExport = msg.dir
		m.session.Notify(session.Success("Report saved to " + msg.dir))
		m.infoMessage = ""
		return m, nil
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		m.dropZone.SetWidth(m.layout.viewportWidth - 4)
		m.markViewportDirty()
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dropZone.Active() {
		switch key.Type {
		case tea.KeyEnter:
			m.submitDropZone()
			return m, nil
		case tea.KeyEsc, tea.KeyTab:
			m.dropZone.SetActive(false)
			return m, nil
		}
		return m, m.dropZone.Update(key)
	}

	switch key.String() {
	case "tab", "i":
		m.dropZone.SetActive(true)
		return m, textinput.Blink
	case "a":
		return m, m.actionAnalyzeCmd()
	case "d":
		return m, m.actionDetailCmd()
	case "p":
		return m, m.actionPreviewCmd()
	case "x":
		return m, m.actionExportCmd()
	case "?":
		m.helpVisible = !m.helpVisible
		return m, nil
	case "g", "home":
		m.scrollToTop()
		return m, nil
	case "G", "end":
		m.scrollToBottom()
		return m, nil
	case "]":
		m.jumpToRelativeSection(1)
		return m, nil
	case "[":
		m.jumpToRelativeSection(-1)
		return m, nil
	case "esc", "q":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(key)
	return m, cmd
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if m.viewportDirty {
		m.refreshViewport()
	}
}

func (m *model) refreshViewport() {
	m.viewportDirty = false
	prevYOffset := m.viewport.YOffset
	view := m.buildDisplayContent()
	m.viewportContent = view.content
	m.sectionAnchors = view.anchors
	m.lineCount = len(splitLinesPreserve(view.content))
	m.viewport.SetContent(view.content)

	target := prevYOffset
	if m.pendingFocusAnchor != "" {
		if line, ok := view.anchors[m.pendingFocusAnchor]; ok {
			target = line
			m.pendingFocusAnchor = ""
		}
	}
	m.viewport.SetYOffset(m.clampYOffset(target))
}

func (m *model) clampYOffset(offset int) int {
	maxOffset := m.lineCount - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	if offset < 0 {
		return 0
	}
	return offset
}

func (m *model) scrollToTop() {
	m.refreshViewportIfDirty()
	m.viewport.SetYOffset(0)
}

func (m *model) scrollToBottom() {
	m.refreshViewportIfDirty()
	m.viewport.SetYOffset(m.clampYOffset(m.lineCount))
}

func (m *model) availableSections() []string {
	m.refreshViewportIfDirty()
	sections := make([]string, 0, len(sectionSequence))
	for _, anchor := range sectionSequence {
		if _, ok := m.sectionAnchors[anchor]; ok {
			sections = append(sections, anchor)
		}
	}
	return sections
}

func (m *model) jumpToRelativeSection(delta int) {
	sections := m.availableSections()
	if len(sections) == 0 {
		m.infoMessage = "Analyze an image to jump between sections."
		return
	}
	current := 0
	for i, anchor := range sections {
		if m.sectionAnchors[anchor] <= m.viewport.YOffset {
			current = i
		}
	}
	next := current + delta
	if next < 0 {
		next = 0
	}
	if next >= len(sections) {
		next = len(sections) - 1
	}
	anchor := sections[next]
	m.viewport.SetYOffset(m.clampYOffset(m.sectionAnchors[anchor]))
	m.infoMessage = "Jumped to " + sectionLabel(anchor) + "."
}

var (
	subtitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	fieldLabelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	fieldValueStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))

	heroAccentColor        = lipgloss.Color("#4caf50")
	heroMossColor          = lipgloss.Color("#0d2410")
	heroTextColor          = lipgloss.Color("#e8f5e9")
	heroSecondaryTextColor = lipgloss.Color("#a5d6a7")

	taglineStyle       = lipgloss.NewStyle().Foreground(heroSecondaryTextColor).Italic(true)
	compactTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(heroTextColor).Background(heroMossColor).Padding(0, 1)
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#a5d6a7")).Padding(0, 1)
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	disabledKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e6a86")).Background(lipgloss.Color("#26233a")).Padding(0, 1)
	legendBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
	helpBoxStyle       = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(heroAccentColor).Padding(1, 2)
	dropZoneStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
	dropZoneActive     = dropZoneStyle.Copy().BorderForeground(heroAccentColor)
	logoFaceStyle      = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor).Background(heroMossColor)
	logoShadowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#061208"))
	logoContainerStyle = lipgloss.NewStyle().Padding(0, 1)
	logoArtLines       = []string{
		"██╗      ███████╗  █████╗  ███████╗ ███████╗  ██████╗  █████╗  ███╗   ██╗ ",
		"██║      ██╔════╝ ██╔══██╗ ██╔════╝ ██╔════╝ ██╔════╝ ██╔══██╗ ████╗  ██║ ",
		"██║      █████╗   ███████║ █████╗   ███████╗ ██║      ███████║ ██╔██╗ ██║ ",
		"██║      ██╔══╝   ██╔══██║ ██╔══╝   ╚════██║ ██║      ██╔══██║ ██║╚██╗██║ ",
		"███████╗ ███████╗ ██║  ██║ ██║      ███████║ ╚██████╗ ██║  ██║ ██║ ╚████║ ",
		"╚══════╝ ╚══════╝ ╚═╝  ╚═╝ ╚═╝      ╚══════╝  ╚═════╝ ╚═╝  ╚═╝ ╚═╝  ╚═══╝ ",
	}
)
