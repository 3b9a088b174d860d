package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/leafscan/internal/chart"
	"github.com/csheth/leafscan/internal/projector"
	"github.com/csheth/leafscan/internal/thumb"
)

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
	thumbWidth     int
	compactHero    bool
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 20,
		thumbWidth:     40,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth

	l.thumbWidth = innerWidth / 2
	if l.thumbWidth > maxThumbWidth {
		l.thumbWidth = maxThumbWidth
	}
	if l.thumbWidth < minThumbWidth {
		l.thumbWidth = minThumbWidth
	}

	l.compactHero = height < compactHeroBelowHeight
	// hero, drop zone panel, status bar, notice and helper lines with their gaps
	chrome := 20
	if l.compactHero {
		chrome = 13
	}
	usable := height - chrome
	if usable < 6 {
		usable = 6
	}
	l.viewportHeight = usable
}

type displayView struct {
	content string
	anchors map[string]int
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

func (m *model) buildDisplayContent() displayView {
	cb := &contentBuilder{}
	anchors := map[string]int{}
	result := m.session.Result()

	section := func(anchor, title string) {
		if cb.Line() > 0 {
			cb.WriteRune('\n')
		}
		anchors[anchor] = cb.Line()
		cb.WriteString(sectionHeaderStyle.Render(title))
		cb.WriteRune('\n')
	}
	block := func(s string) {
		cb.WriteString(s)
		cb.WriteRune('\n')
	}

	if img := m.session.Image(); img != nil && m.previewVisible {
		section(anchorPreview, "Preview · "+img.Name)
		block(thumb.RenderRaw(img.Data, m.layout.thumbWidth))
		if ref := img.PreviewRef(); ref != "" {
			block(helperStyle.Render("file://" + ref))
		}
	}

	if result == nil {
		m.writeIdleContent(cb)
		return displayView{content: cb.String(), anchors: anchors}
	}

	section(anchorClassification, "Disease Classification")
	block(chart.RenderBars(projector.Bars(result), m.wrapWidth(2)))

	section(anchorSeverity, "Leaf Severity")
	block(chart.RenderDonut(projector.Donut(result), m.wrapWidth(2)))

	section(anchorMetrics, "Segmentation Metrics")
	block(renderFields(projector.Fields(result)))

	section(anchorImages, "Images")
	for _, slot := range projector.Images(result) {
		block(subtitleStyle.Render(slot.Title))
		if !slot.Present {
			block(helperStyle.Render(slot.Placeholder))
			continue
		}
		block(thumb.RenderEncoded(slot.Encoded, m.layout.thumbWidth))
	}

	section(anchorDetail, "Treatment Detail")
	switch text, ok := m.session.DetailText(); {
	case m.session.DetailLoading():
		block(helperStyle.Render(fmt.Sprintf("%s Generating…", m.spinner.View())))
	case ok:
		block(renderMarkdown(text, m.wrapWidth(4)))
	default:
		block(helperStyle.Render(noDetailText))
		if m.commandAvailable(actionDetail) {
			block(helperStyle.Render("Press d to ask for treatment advice."))
		}
	}

	return displayView{content: cb.String(), anchors: anchors}
}

func (m *model) writeIdleContent(cb *contentBuilder) {
	if cb.Line() > 0 {
		cb.WriteRune('\n')
	}
	switch {
	case m.session.AnalysisLoading():
		cb.WriteString(helperStyle.Render(fmt.Sprintf("%s Analyzing leaf…", m.spinner.View())))
		cb.WriteRune('\n')
	case m.session.Image() != nil:
		cb.WriteString(sectionHeaderStyle.Render("Ready to analyze " + m.session.Image().Name))
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render("Press a to upload it, p to toggle the preview, Tab to pick another file."))
		cb.WriteRune('\n')
	default:
		cb.WriteString(sectionHeaderStyle.Render("Drop a leaf image into the drop zone"))
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render("Drag a file onto the terminal or type its path, then press Enter."))
		cb.WriteRune('\n')
		cb.WriteString(helperStyle.Render("Supported: any image/* file such as PNG, JPEG, WebP or BMP."))
		cb.WriteRune('\n')
	}
}

func renderFields(fields []projector.Field) string {
	labelWidth := 0
	for _, f := range fields {
		if w := lipgloss.Width(f.Label); w > labelWidth {
			labelWidth = w
		}
	}
	rows := make([]string, 0, len(fields))
	for _, f := range fields {
		label := fieldLabelStyle.Width(labelWidth + 2).Render(f.Label)
		rows = append(rows, label+fieldValueStyle.Render(f.Value))
	}
	return strings.Join(rows, "\n")
}

// renderMarkdown handles the subset of markdown generation endpoints tend to
// return: headings, bullets and bold markers.
func renderMarkdown(text string, width int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			out = append(out, subtitleStyle.Render(stripEmphasis(heading)))
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			body := wordwrap.String(stripEmphasis(trimmed[2:]), width-3)
			out = append(out, " • "+strings.TrimPrefix(indent.String(body, 3), "   "))
		default:
			out = append(out, wordwrap.String(stripEmphasis(trimmed), width))
		}
	}
	return strings.Join(out, "\n")
}

func stripEmphasis(s string) string {
	return strings.NewReplacer("**", "", "__", "").Replace(s)
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func splitLinesPreserve(content string) []string {
	if content == "" {
		return []string{""}
	}
	return strings.Split(content, "\n")
}

func sectionLabel(anchor string) string {
	switch anchor {
	case anchorPreview:
		return "Preview"
	case anchorClassification:
		return "Disease Classification"
	case anchorSeverity:
		return "Leaf Severity"
	case anchorMetrics:
		return "Segmentation Metrics"
	case anchorImages:
		return "Images"
	case anchorDetail:
		return "Treatment Detail"
	default:
		return "section"
	}
}
