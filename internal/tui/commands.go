package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/leafscan/internal/analysis"
	"github.com/csheth/leafscan/internal/detail"
	"github.com/csheth/leafscan/internal/report"
	"github.com/csheth/leafscan/internal/selection"
	"github.com/csheth/leafscan/internal/session"
)

type analyzeResultMsg struct {
	ticket session.Ticket
	result *analysis.Result
	err    error
}

type detailResultMsg struct {
	ticket session.Ticket
	result detail.Result
	err    error
}

type exportResultMsg struct {
	dir string
	err error
}

func analyzeJob(client analysis.Analyzer, ticket session.Ticket, img *selection.Image) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		result, err := client.Analyze(ctx, img)
		return analyzeResultMsg{ticket: ticket, result: result, err: err}, err
	}
}

func detailJob(client detail.Generator, ticket session.Ticket, req detail.Request) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		result, err := client.Generate(ctx, req)
		return detailResultMsg{ticket: ticket, result: result, err: err}, err
	}
}

func exportJob(dir string, snap report.Snapshot) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		out, err := report.Save(dir, snap)
		return exportResultMsg{dir: out, err: err}, err
	}
}

// commandAvailable reports whether the trigger for a is enabled.
func (m *model) commandAvailable(a action) bool {
	switch a {
	case actionAnalyze:
		return m.config.Analyzer != nil && m.session.CanAnalyze()
	case actionDetail:
		return m.config.Detail != nil && m.session.CanRequestDetail()
	case actionPreview:
		return m.session.Image() != nil
	case actionExport:
		return m.config.ExportDir != "" && m.session.Result() != nil && !m.exporting
	default:
		return false
	}
}

func (m *model) actionAnalyzeCmd() tea.Cmd {
	if m.config.Analyzer == nil {
		m.infoMessage = "No analysis endpoint configured."
		return nil
	}
	if m.session.Busy() {
		m.infoMessage = busyHelperText
		return nil
	}
	ticket, img, err := m.session.BeginAnalyze()
	if err != nil {
		m.markViewportDirty()
		return nil
	}
	m.infoMessage = "Analyzing " + img.Name + "…"
	m.markViewportDirty()
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindAnalyze, analyzeJob(m.config.Analyzer, ticket, img)))
}

func (m *model) actionDetailCmd() tea.Cmd {
	if m.config.Detail == nil {
		m.infoMessage = "No detail endpoint configured."
		return nil
	}
	if m.session.Busy() {
		m.infoMessage = busyHelperText
		return nil
	}
	ticket, req, err := m.session.BeginDetail()
	if err != nil {
		m.markViewportDirty()
		return nil
	}
	m.infoMessage = "Requesting treatment detail…"
	m.pendingFocusAnchor = anchorDetail
	m.markViewportDirty()
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindDetail, detailJob(m.config.Detail, ticket, req)))
}

func (m *model) actionPreviewCmd() tea.Cmd {
	if _, ok := m.session.Preview(); !ok {
		m.previewVisible = false
		return nil
	}
	m.previewVisible = !m.previewVisible
	if m.previewVisible {
		m.pendingFocusAnchor = anchorPreview
	}
	m.markViewportDirty()
	return nil
}

func (m *model) actionExportCmd() tea.Cmd {
	result := m.session.Result()
	if result == nil {
		m.session.Notify(session.Failure(session.MsgNoAnalysis))
		return nil
	}
	if m.config.ExportDir == "" {
		m.session.Notify(session.Failure("No export directory configured"))
		return nil
	}
	if m.exporting {
		m.infoMessage = busyHelperText
		return nil
	}
	snap := report.Snapshot{Result: result}
	if img := m.session.Image(); img != nil {
		snap.FileName = img.Name
		snap.MIMEType = img.MIMEType
		snap.Source = img.Data
	}
	snap.Detail, snap.HasDetail = m.session.DetailText()
	m.exporting = true
	m.infoMessage = "Exporting report…"
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindExport, exportJob(m.config.ExportDir, snap)))
}
