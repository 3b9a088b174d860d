package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/csheth/leafscan/internal/session"
)

func (m *model) View() string {
	m.refreshViewportIfDirty()
	parts := []string{m.heroView(), m.dropZonePanel(), m.viewport.View(), m.sessionMeterView()}
	if notice := m.noticeView(); notice != "" {
		parts = append(parts, notice)
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.session.Busy() || m.exporting {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView(), m.helpView())
	}
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	if m.layout.compactHero {
		return lipgloss.JoinHorizontal(lipgloss.Center, compactTitleStyle.Render("LEAFSCAN"), " ", taglineStyle.Render(heroTagline))
	}
	return lipgloss.JoinVertical(lipgloss.Left, renderLogo(), taglineStyle.Render(heroTagline))
}

func (m *model) dropZonePanel() string {
	style := dropZoneStyle
	var title string
	if m.dropZone.Active() {
		style = dropZoneActive
		title = "Drop zone · active (Enter to load, Esc to leave)"
	} else if img := m.session.Image(); img != nil {
		title = "Drop zone · " + img.Name + " (Tab to replace)"
	} else {
		title = "Drop zone · Tab to activate"
	}
	width := m.layout.viewportWidth - 2
	if width < minViewportWidth-2 {
		width = minViewportWidth - 2
	}
	return style.Width(width).Render(subtitleStyle.Render(title) + "\n" + m.dropZone.View())
}

func (m *model) noticeView() string {
	n := m.session.Notice()
	switch n.Kind {
	case session.NoticeSuccess:
		return successStyle.Render("✔ " + n.Text)
	case session.NoticeError:
		return errorStyle.Render("✖ " + n.Text)
	default:
		return ""
	}
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func (m *model) sessionMeterView() string {
	stats := []string{fmt.Sprintf("Phase %s", m.session.Phase())}
	if r := m.session.Result(); r != nil {
		stats = append(stats, "Class "+r.PredictedClass(), "Severity "+r.SeverityLabel())
	}
	if m.lastExport != "" {
		stats = append(stats, "Last export "+m.lastExport)
	}
	stats = append(stats, m.jobStatusBadges()...)
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) jobStatusBadges() []string {
	kinds := make([]string, 0, len(m.jobStates))
	for kind, snap := range m.jobStates {
		if snap.Status == jobStatusRunning {
			kinds = append(kinds, string(kind))
		}
	}
	sort.Strings(kinds)
	badges := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		badges = append(badges, kind+"…")
	}
	return badges
}

type keyHint struct {
	Key         string
	Description string
	Action      *action
}

func actionRef(a action) *action {
	return &a
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"Enter", "Load dropped path", nil},
		{"Tab", "Toggle drop zone", nil},
		{"a", "Analyze", actionRef(actionAnalyze)},
		{"d", "Treatment detail", actionRef(actionDetail)},
		{"p", "Preview image", actionRef(actionPreview)},
		{"x", "Export report", actionRef(actionExport)},
		{"[/]", "Jump sections", nil},
		{"g/G", "Top or bottom", nil},
		{"?", "Toggle cheatsheet", nil},
	}
	rows := []string{sectionHeaderStyle.Render("Keys")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			if hint.Action != nil && !m.commandAvailable(*hint.Action) {
				key = disabledKeyStyle.Render(hint.Key)
			}
			desc := keyDescStyle.Render(" " + hint.Description + "  ")
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func (m *model) helpView() string {
	lines := []string{
		sectionHeaderStyle.Render("How it works"),
		helperStyle.Render("• drop a leaf photo onto the terminal (or type its path) while the drop zone is active and press Enter."),
		helperStyle.Render("• press a to upload it for classification and segmentation; d then asks for treatment advice."),
		helperStyle.Render("• dimmed keys are disabled until their preconditions hold or the current request finishes."),
		helperStyle.Render("• press x to save report.json, charts and returned images under the export directory."),
		helperStyle.Render("• Ctrl+C quits from anywhere; q or Esc quits outside the drop zone."),
	}
	return helpBoxStyle.Render(strings.Join(lines, "\n"))
}

func renderLogo() string {
	if len(logoArtLines) == 0 {
		return ""
	}
	width := 0
	lineRunes := make([][]rune, len(logoArtLines))
	for i, line := range logoArtLines {
		runes := []rune(line)
		lineRunes[i] = runes
		if len(runes) > width {
			width = len(runes)
		}
	}
	width += 1
	height := len(logoArtLines) + 1

	type cell struct {
		r     rune
		style lipgloss.Style
	}

	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
	}

	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			if y+1 < height && x+1 < width {
				grid[y+1][x+1] = cell{r: r, style: logoShadowStyle}
			}
		}
	}

	for y, runes := range lineRunes {
		for x, r := range runes {
			if r == ' ' {
				continue
			}
			grid[y][x] = cell{r: r, style: logoFaceStyle}
		}
	}

	lines := make([]string, height)
	for y, row := range grid {
		var b strings.Builder
		for _, c := range row {
			if c.r == 0 {
				b.WriteRune(' ')
				continue
			}
			b.WriteString(c.style.Render(string(c.r)))
		}
		lines[y] = b.String()
	}
	return logoContainerStyle.Render(strings.Join(lines, "\n"))
}
