package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/csheth/leafscan/internal/analysis"
	"github.com/csheth/leafscan/internal/detail"
	apperrors "github.com/csheth/leafscan/internal/errors"
	"github.com/csheth/leafscan/internal/selection"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n")

func leaf(name string) *selection.Candidate {
	return &selection.Candidate{Name: name, Data: pngHeader, MIMEType: "image/png"}
}

func newState(t *testing.T) *State {
	t.Helper()
	t.Setenv("TMPDIR", t.TempDir())
	s := New()
	t.Cleanup(s.Close)
	return s
}

func decodeResult(t *testing.T, raw string) *analysis.Result {
	t.Helper()
	var r analysis.Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return &r
}

type stubAnalyzer struct {
	result *analysis.Result
	err    error
	calls  int
}

func (a *stubAnalyzer) Analyze(_ context.Context, img *selection.Image) (*analysis.Result, error) {
	a.calls++
	if img == nil {
		return nil, errors.New("nil image")
	}
	return a.result, a.err
}

type stubGenerator struct {
	result detail.Result
	err    error
	last   detail.Request
	calls  int
}

func (g *stubGenerator) Generate(_ context.Context, req detail.Request) (detail.Result, error) {
	g.calls++
	g.last = req
	return g.result, g.err
}

func TestSelectValidFileClearsResults(t *testing.T) {
	s := newState(t)
	s.SelectFile(leaf("a.png"))
	if err := s.Analyze(context.Background(), &stubAnalyzer{result: decodeResult(t, `{}`)}); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if err := s.RequestDetail(context.Background(), &stubGenerator{result: detail.Result{Text: "rust"}}); err != nil {
		t.Fatalf("detail: %v", err)
	}

	s.SelectFile(leaf("b.png"))

	if s.Image() == nil || s.Image().Name != "b.png" {
		t.Fatalf("expected b.png selected, got %+v", s.Image())
	}
	if s.Result() != nil {
		t.Fatalf("expected result cleared")
	}
	if _, ok := s.Detail(); ok {
		t.Fatalf("expected detail cleared")
	}
	if got := s.Notice(); got != Success(MsgImageUpdated) {
		t.Fatalf("unexpected notice %+v", got)
	}
	if s.Phase() != PhaseImageSelected {
		t.Fatalf("expected image selected phase, got %s", s.Phase())
	}
}

func TestSelectInvalidFileClearsImage(t *testing.T) {
	for name, c := range map[string]*selection.Candidate{
		"nil":  nil,
		"text": {Name: "notes.txt", Data: []byte("hello"), MIMEType: "text/plain"},
		"pdf":  {Name: "doc.pdf", Data: []byte("%PDF-1.4"), MIMEType: "application/pdf"},
	} {
		t.Run(name, func(t *testing.T) {
			s := newState(t)
			s.SelectFile(leaf("a.png"))
			prev := s.Image().PreviewRef()

			s.SelectFile(c)

			if s.Image() != nil {
				t.Fatalf("expected image cleared")
			}
			if got := s.Notice(); got != Failure(MsgInvalidFile) {
				t.Fatalf("unexpected notice %+v", got)
			}
			if s.Phase() != PhaseErrorNoticeOnly {
				t.Fatalf("expected error phase, got %s", s.Phase())
			}
			if prev != "" {
				if _, err := os.Stat(prev); !os.IsNotExist(err) {
					t.Fatalf("expected preview %s released, stat err %v", prev, err)
				}
			}
		})
	}
}

func TestSelectReleasesSupersededPreview(t *testing.T) {
	s := newState(t)
	s.SelectFile(leaf("a.png"))
	first := s.Image()
	ref := first.PreviewRef()
	if ref == "" {
		t.Fatalf("expected a preview reference")
	}

	s.SelectFile(leaf("b.png"))

	if first.PreviewRef() != "" {
		t.Fatalf("expected old reference revoked")
	}
	if _, err := os.Stat(ref); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err %v", ref, err)
	}
	if s.Image().PreviewRef() == "" {
		t.Fatalf("expected new reference")
	}
}

func TestPreviewWithoutImage(t *testing.T) {
	s := newState(t)
	if _, ok := s.Preview(); ok {
		t.Fatalf("expected no preview")
	}
	if got := s.Notice(); got != Failure(MsgNoPreview) {
		t.Fatalf("unexpected notice %+v", got)
	}

	s.SelectFile(leaf("a.png"))
	img, ok := s.Preview()
	if !ok || img.Name != "a.png" {
		t.Fatalf("expected preview of a.png")
	}
}

func TestAnalyzeWithoutImageNeverReachesNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()
	s := newState(t)

	err := s.Analyze(context.Background(), analysis.New(analysis.Config{Endpoint: srv.URL}))

	if !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no request, got %d", hits)
	}
	if got := s.Notice(); got != Failure(MsgSelectImage) {
		t.Fatalf("unexpected notice %+v", got)
	}
	if s.AnalysisLoading() {
		t.Fatalf("loading flag leaked")
	}
}

func TestAnalyzeRejectionSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"bad image"}`))
	}))
	defer srv.Close()
	s := newState(t)
	s.SelectFile(leaf("a.png"))

	err := s.Analyze(context.Background(), analysis.New(analysis.Config{Endpoint: srv.URL}))

	if err == nil {
		t.Fatalf("expected error")
	}
	n := s.Notice()
	if !n.IsError() || !strings.Contains(n.Text, "bad image") || !strings.Contains(n.Text, "500") {
		t.Fatalf("unexpected notice %+v", n)
	}
	if s.AnalysisLoading() {
		t.Fatalf("loading flag leaked")
	}
	if s.Phase() != PhaseImageSelected {
		t.Fatalf("expected image selected phase after failure, got %s", s.Phase())
	}
}

func TestFailedAnalyzeClearsPriorResult(t *testing.T) {
	s := newState(t)
	s.SelectFile(leaf("a.png"))
	_ = s.Analyze(context.Background(), &stubAnalyzer{result: decodeResult(t, `{}`)})
	_ = s.RequestDetail(context.Background(), &stubGenerator{result: detail.Result{Text: "x"}})

	err := s.Analyze(context.Background(), &stubAnalyzer{err: apperrors.New(apperrors.KindTransport, "test", "connection refused")})

	if err == nil {
		t.Fatalf("expected error")
	}
	if s.Result() != nil {
		t.Fatalf("expected result cleared after failed analyze")
	}
	if _, ok := s.Detail(); ok {
		t.Fatalf("expected detail cleared after failed analyze")
	}
	if !strings.HasPrefix(s.Notice().Text, "Network error") {
		t.Fatalf("unexpected notice %+v", s.Notice())
	}
}

func TestAnalyzeSuccessClearsNoticeAndDetail(t *testing.T) {
	s := newState(t)
	s.SelectFile(leaf("a.png"))
	a := &stubAnalyzer{result: decodeResult(t, `{"disease_classification":{"predicted_class":"Rust"}}`)}

	if err := s.Analyze(context.Background(), a); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if !s.Notice().Empty() {
		t.Fatalf("expected notice cleared, got %+v", s.Notice())
	}
	if s.Result().PredictedClass() != "Rust" {
		t.Fatalf("unexpected result %+v", s.Result())
	}
	if s.Phase() != PhaseAnalyzed {
		t.Fatalf("expected analyzed phase, got %s", s.Phase())
	}
	if !s.CanRequestDetail() {
		t.Fatalf("expected detail trigger enabled")
	}
}

func TestRequestDetailWithoutResultNeverReachesNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()
	s := newState(t)
	s.SelectFile(leaf("a.png"))

	err := s.RequestDetail(context.Background(), detail.New(detail.Config{Endpoint: srv.URL}))

	if !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no request, got %d", hits)
	}
	if got := s.Notice(); got != Failure(MsgNoAnalysis) {
		t.Fatalf("unexpected notice %+v", got)
	}
}

func TestRequestDetailUsesFallbacks(t *testing.T) {
	s := newState(t)
	s.SelectFile(leaf("a.png"))
	_ = s.Analyze(context.Background(), &stubAnalyzer{result: decodeResult(t, `{"disease_segmentation":{}}`)})
	g := &stubGenerator{result: detail.Result{Text: "Apply fungicide.", Key: "response"}}

	if err := s.RequestDetail(context.Background(), g); err != nil {
		t.Fatalf("detail: %v", err)
	}

	if g.last.PredictedClass != "Unknown" || g.last.Severity != 0 || g.last.SeverityClass != "Unknown" {
		t.Fatalf("unexpected request %+v", g.last)
	}
	text, ok := s.DetailText()
	if !ok || text != "Apply fungicide." {
		t.Fatalf("unexpected detail %q %v", text, ok)
	}
	if s.Phase() != PhaseDetailed {
		t.Fatalf("expected detailed phase, got %s", s.Phase())
	}
}

func TestRequestDetailEmptyResponse(t *testing.T) {
	s := newState(t)
	s.SelectFile(leaf("a.png"))
	_ = s.Analyze(context.Background(), &stubAnalyzer{result: decodeResult(t, `{}`)})

	if err := s.RequestDetail(context.Background(), &stubGenerator{}); err != nil {
		t.Fatalf("detail: %v", err)
	}

	text, ok := s.DetailText()
	if !ok || text != MsgNoDetailOutput {
		t.Fatalf("unexpected detail %q %v", text, ok)
	}
	if s.Notice().IsError() {
		t.Fatalf("empty detail must not be an error")
	}
}

func TestFailedDetailKeepsAnalysis(t *testing.T) {
	s := newState(t)
	s.SelectFile(leaf("a.png"))
	_ = s.Analyze(context.Background(), &stubAnalyzer{result: decodeResult(t, `{}`)})
	_ = s.RequestDetail(context.Background(), &stubGenerator{result: detail.Result{Text: "old"}})

	err := s.RequestDetail(context.Background(), &stubGenerator{err: apperrors.Remote("test", http.StatusBadGateway, "", detail.FallbackErrorMessage)})

	if err == nil {
		t.Fatalf("expected error")
	}
	if s.Result() == nil {
		t.Fatalf("expected analysis result kept")
	}
	if _, ok := s.Detail(); ok {
		t.Fatalf("expected detail cleared")
	}
	if got := s.Notice().Text; got != "Failed to get RAG output (HTTP 502)" {
		t.Fatalf("unexpected notice %q", got)
	}
	if s.DetailLoading() {
		t.Fatalf("loading flag leaked")
	}
	if s.Phase() != PhaseAnalyzed {
		t.Fatalf("expected analyzed phase, got %s", s.Phase())
	}
}

func TestTriggersDisabledWhileLoading(t *testing.T) {
	s := newState(t)
	s.SelectFile(leaf("a.png"))
	if !s.CanAnalyze() {
		t.Fatalf("expected analyze enabled")
	}

	ticket, _, err := s.BeginAnalyze()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if s.CanAnalyze() || s.CanRequestDetail() {
		t.Fatalf("expected triggers disabled while analyzing")
	}
	if _, _, err := s.BeginAnalyze(); err == nil {
		t.Fatalf("expected second analyze refused")
	}
	if _, _, err := s.BeginDetail(); err == nil {
		t.Fatalf("expected detail refused while analyzing")
	}

	s.CompleteAnalyze(ticket, decodeResult(t, `{}`), nil)

	dt, _, err := s.BeginDetail()
	if err != nil {
		t.Fatalf("begin detail: %v", err)
	}
	if s.CanAnalyze() {
		t.Fatalf("expected analyze disabled while fetching detail")
	}
	s.CompleteDetail(dt, detail.Result{Text: "ok"}, nil)
	if !s.CanAnalyze() || !s.CanRequestDetail() {
		t.Fatalf("expected triggers enabled after completion")
	}
}

func TestStaleCompletionOnlyClearsLoading(t *testing.T) {
	s := newState(t)
	s.SelectFile(leaf("a.png"))
	ticket, _, err := s.BeginAnalyze()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	s.SelectFile(leaf("b.png"))
	s.CompleteAnalyze(ticket, decodeResult(t, `{}`), nil)

	if s.AnalysisLoading() {
		t.Fatalf("loading flag leaked")
	}
	if s.Result() != nil {
		t.Fatalf("stale result must be dropped")
	}
	if got := s.Notice(); got != Success(MsgImageUpdated) {
		t.Fatalf("unexpected notice %+v", got)
	}
}

func TestNotify(t *testing.T) {
	s := newState(t)
	s.Notify(Failure("export failed"))
	if s.Phase() != PhaseErrorNoticeOnly {
		t.Fatalf("expected error phase, got %s", s.Phase())
	}
}
