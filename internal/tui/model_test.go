package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/csheth/leafscan/internal/errors"
	"github.com/csheth/leafscan/internal/report"
	"github.com/csheth/leafscan/internal/session"
)

func TestDropZoneStartsActive(t *testing.T) {
	m := newTestModel(t, Config{})
	if !m.dropZone.Active() {
		t.Fatal("drop zone should start active")
	}
	press(m, "a")
	if got := m.dropZone.input.Value(); got != "a" {
		t.Fatalf("keys should type into the active drop zone, got %q", got)
	}

	press(m, "esc")
	if m.dropZone.Active() {
		t.Fatal("esc should leave the drop zone")
	}
	press(m, "tab")
	if !m.dropZone.Active() {
		t.Fatal("tab should reactivate the drop zone")
	}
}

func TestDropZoneSubmitSelectsImage(t *testing.T) {
	m := newTestModel(t, Config{})
	m.dropZone.input.SetValue(writeImage(t, "leaf.png"))

	press(m, "enter")

	if m.session.Image() == nil || m.session.Image().Name != "leaf.png" {
		t.Fatalf("expected leaf.png selected, got %+v", m.session.Image())
	}
	if got := m.session.Notice(); got != session.Success(session.MsgImageUpdated) {
		t.Fatalf("unexpected notice %+v", got)
	}
	if m.dropZone.Active() {
		t.Fatal("drop zone should deactivate after a valid selection")
	}
	if !strings.Contains(m.View(), session.MsgImageUpdated) {
		t.Fatal("view should show the success notice")
	}
}

func TestDropZoneRejectsNonImage(t *testing.T) {
	m := newTestModel(t, Config{})
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("just some text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	m.dropZone.input.SetValue(path)

	press(m, "enter")

	if m.session.Image() != nil {
		t.Fatal("non-image should not be selected")
	}
	if got := m.session.Notice(); got != session.Failure(session.MsgInvalidFile) {
		t.Fatalf("unexpected notice %+v", got)
	}
	if !m.dropZone.Active() {
		t.Fatal("drop zone should stay active after a rejection")
	}
}

func TestDropZoneMissingFile(t *testing.T) {
	m := newTestModel(t, Config{})
	m.dropZone.input.SetValue(filepath.Join(t.TempDir(), "missing.png"))

	press(m, "enter")

	if got := m.session.Notice(); got != session.Failure(session.MsgInvalidFile) {
		t.Fatalf("unexpected notice %+v", got)
	}
	if !strings.Contains(m.infoMessage, "cannot open file") {
		t.Fatalf("expected load reason in helper line, got %q", m.infoMessage)
	}
}

func TestInitialPathIsLoaded(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	m := newModel(Config{InitialPath: writeImage(t, "start.png")})
	defer Shutdown(m)

	if m.session.Image() == nil || m.session.Image().Name != "start.png" {
		t.Fatalf("expected initial path selected, got %+v", m.session.Image())
	}
}

func TestAnalyzeWithoutImage(t *testing.T) {
	analyzer := &fakeAnalyzer{raw: sampleAnalysis}
	m := newTestModel(t, Config{Analyzer: analyzer})
	m.dropZone.SetActive(false)

	if cmd := press(m, "a"); cmd != nil {
		t.Fatalf("analyze without image should not start a job, got %T", cmd)
	}
	if got := m.session.Notice(); got != session.Failure(session.MsgSelectImage) {
		t.Fatalf("unexpected notice %+v", got)
	}
	if analyzer.calls != 0 {
		t.Fatalf("analyzer should not be called, got %d", analyzer.calls)
	}
}

func TestAnalyzeRendersResult(t *testing.T) {
	m := newTestModel(t, Config{Analyzer: &fakeAnalyzer{raw: sampleAnalysis}})
	selectImage(t, m, "leaf.png")

	cmd := press(m, "a")
	if cmd == nil {
		t.Fatal("analyze should start a job")
	}
	if !m.session.AnalysisLoading() {
		t.Fatal("analysis should be loading until the job completes")
	}
	runCmd(m, cmd)

	if m.session.AnalysisLoading() {
		t.Fatal("loading flag should clear on completion")
	}
	if m.session.Result() == nil || m.session.Result().PredictedClass() != "Rust" {
		t.Fatalf("unexpected result %+v", m.session.Result())
	}
	if got := m.jobStates[jobKindAnalyze].Status; got != jobStatusSucceeded {
		t.Fatalf("expected analyze job succeeded, got %q", got)
	}
	m.refreshViewport()
	for _, want := range []string{"Disease Classification", "90.00%", "Leaf Severity", "Boundary pixels", "Total leaf area", "N/A", "No original image available", noDetailText} {
		if !strings.Contains(m.viewportContent, want) {
			t.Fatalf("expected %q in viewport content:\n%s", want, m.viewportContent)
		}
	}
}

func TestAnalyzeFailureSurfacesNotice(t *testing.T) {
	m := newTestModel(t, Config{Analyzer: &fakeAnalyzer{err: apperrors.Remote("test", 500, "bad image", "Failed to process image")}})
	selectImage(t, m, "leaf.png")

	runCmd(m, press(m, "a"))

	n := m.session.Notice()
	if !n.IsError() || !strings.Contains(n.Text, "bad image") || !strings.Contains(n.Text, "500") {
		t.Fatalf("unexpected notice %+v", n)
	}
	if m.session.Result() != nil || m.session.AnalysisLoading() {
		t.Fatal("failed analyze should leave no result and no loading flag")
	}
	if got := m.jobStates[jobKindAnalyze].Status; got != jobStatusFailed {
		t.Fatalf("expected analyze job failed, got %q", got)
	}
}

func TestTriggersDisabledWhileLoading(t *testing.T) {
	analyzer := &fakeAnalyzer{raw: sampleAnalysis}
	m := newTestModel(t, Config{Analyzer: analyzer, Detail: &fakeGenerator{text: "ok"}})
	selectImage(t, m, "leaf.png")

	pending := press(m, "a")
	if cmd := press(m, "a"); cmd != nil {
		t.Fatalf("second analyze should be refused, got %T", cmd)
	}
	if cmd := press(m, "d"); cmd != nil {
		t.Fatalf("detail should be refused while analyzing, got %T", cmd)
	}
	if m.infoMessage != busyHelperText {
		t.Fatalf("expected busy helper line, got %q", m.infoMessage)
	}

	runCmd(m, pending)
	if analyzer.calls != 1 {
		t.Fatalf("expected exactly one request, got %d", analyzer.calls)
	}
}

func TestDetailFlow(t *testing.T) {
	gen := &fakeGenerator{text: "## Treatment\n- Remove **infected** leaves\n- Apply copper fungicide"}
	m := newTestModel(t, Config{Analyzer: &fakeAnalyzer{raw: sampleAnalysis}, Detail: gen})
	selectImage(t, m, "leaf.png")
	runCmd(m, press(m, "a"))

	runCmd(m, press(m, "d"))

	if gen.calls != 1 {
		t.Fatalf("expected one detail request, got %d", gen.calls)
	}
	text, ok := m.session.DetailText()
	if !ok || !strings.Contains(text, "copper") {
		t.Fatalf("unexpected detail %q", text)
	}
	m.refreshViewport()
	if !strings.Contains(m.viewportContent, "Remove infected leaves") || strings.Contains(m.viewportContent, "**") {
		t.Fatalf("expected rendered markdown in viewport:\n%s", m.viewportContent)
	}
}

func TestDetailFailureKeepsAnalysis(t *testing.T) {
	m := newTestModel(t, Config{
		Analyzer: &fakeAnalyzer{raw: sampleAnalysis},
		Detail:   &fakeGenerator{err: apperrors.Wrap(apperrors.KindTransport, "test", "request failed", errors.New("connection refused"))},
	})
	selectImage(t, m, "leaf.png")
	runCmd(m, press(m, "a"))

	runCmd(m, press(m, "d"))

	if m.session.Result() == nil {
		t.Fatal("analysis should survive a detail failure")
	}
	if got := m.session.Notice().Text; got != "Network error: connection refused" {
		t.Fatalf("unexpected notice %q", got)
	}
	if m.session.DetailLoading() {
		t.Fatal("detail loading flag leaked")
	}
}

func TestDetailWithoutAnalysis(t *testing.T) {
	gen := &fakeGenerator{text: "x"}
	m := newTestModel(t, Config{Detail: gen})
	selectImage(t, m, "leaf.png")

	if cmd := press(m, "d"); cmd != nil {
		t.Fatalf("detail without analysis should not start a job, got %T", cmd)
	}
	if got := m.session.Notice(); got != session.Failure(session.MsgNoAnalysis) {
		t.Fatalf("unexpected notice %+v", got)
	}
	if gen.calls != 0 {
		t.Fatalf("generator should not be called, got %d", gen.calls)
	}
}

func TestPreviewToggle(t *testing.T) {
	m := newTestModel(t, Config{})
	m.dropZone.SetActive(false)

	press(m, "p")
	if got := m.session.Notice(); got != session.Failure(session.MsgNoPreview) {
		t.Fatalf("unexpected notice %+v", got)
	}

	selectImage(t, m, "leaf.png")
	press(m, "p")
	if !m.previewVisible {
		t.Fatal("preview should be visible")
	}
	m.refreshViewport()
	if !strings.Contains(m.viewportContent, "file://"+m.session.Image().PreviewRef()) {
		t.Fatalf("expected preview reference in viewport:\n%s", m.viewportContent)
	}
	if _, ok := m.sectionAnchors[anchorPreview]; !ok {
		t.Fatal("expected preview anchor")
	}
}

func TestStaleAnalysisIsDropped(t *testing.T) {
	m := newTestModel(t, Config{Analyzer: &fakeAnalyzer{raw: sampleAnalysis}})
	selectImage(t, m, "first.png")
	pending := press(m, "a")

	selectImage(t, m, "second.png")
	runCmd(m, pending)

	if m.session.Result() != nil {
		t.Fatal("result for a superseded image should be dropped")
	}
	if m.session.AnalysisLoading() {
		t.Fatal("loading flag should clear even for stale completions")
	}
	if m.session.Image().Name != "second.png" {
		t.Fatalf("unexpected image %s", m.session.Image().Name)
	}
}

func TestExportWritesReport(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel(t, Config{Analyzer: &fakeAnalyzer{raw: sampleAnalysis}, ExportDir: dir})
	selectImage(t, m, "leaf.png")

	press(m, "x")
	if got := m.session.Notice(); got != session.Failure(session.MsgNoAnalysis) {
		t.Fatalf("export before analysis should fail, got %+v", got)
	}

	runCmd(m, press(m, "a"))
	runCmd(m, press(m, "x"))

	n := m.session.Notice()
	if n.Kind != session.NoticeSuccess || !strings.HasPrefix(n.Text, "Report saved to ") {
		t.Fatalf("unexpected notice %+v", n)
	}
	if m.exporting {
		t.Fatal("exporting flag leaked")
	}
	if _, err := os.Stat(filepath.Join(m.lastExport, report.ReportFile)); err != nil {
		t.Fatalf("expected report file: %v", err)
	}
	entries, err := report.Load(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one index entry, got %v %v", entries, err)
	}
}

func TestSectionJumps(t *testing.T) {
	m := newTestModel(t, Config{Analyzer: &fakeAnalyzer{raw: sampleAnalysis}})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	selectImage(t, m, "leaf.png")
	runCmd(m, press(m, "a"))

	press(m, "g")
	if m.viewport.YOffset != 0 {
		t.Fatalf("expected top, got %d", m.viewport.YOffset)
	}
	press(m, "]")
	if !strings.HasPrefix(m.infoMessage, "Jumped to ") {
		t.Fatalf("unexpected helper line %q", m.infoMessage)
	}
}

func TestQuitKeys(t *testing.T) {
	m := newTestModel(t, Config{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("ctrl+c should produce a quit message")
	}
}
