// Package session holds the state of one leafscan session: the selected
// image, the latest analysis and detail results, the loading flags and the
// single notice line. It is not safe for concurrent use; the TUI owns it on
// its update loop and applies job completions there.
package session

import (
	"context"
	"log"

	"github.com/csheth/leafscan/internal/analysis"
	"github.com/csheth/leafscan/internal/detail"
	apperrors "github.com/csheth/leafscan/internal/errors"
	"github.com/csheth/leafscan/internal/selection"
)

const (
	MsgImageUpdated   = "Image updated successfully"
	MsgInvalidFile    = "Invalid file: please select an image file"
	MsgNoPreview      = "No image to preview"
	MsgNoAnalysis     = "No analysis data available"
	MsgSelectImage    = "Please select an image first"
	MsgBusy           = "A request is already in progress"
	MsgNoDetailOutput = "No content available"
)

// Ticket identifies the selection a request was started for.
type Ticket struct {
	generation uint64
}

// State is the session state machine. The zero value is an idle session.
type State struct {
	image      *selection.Image
	generation uint64

	analysisLoading bool
	detailLoading   bool

	result *analysis.Result
	detail *detail.Result
	notice Notice
}

// New returns an idle session.
func New() *State {
	return &State{}
}

// SelectFile replaces the current image. Invalid candidates clear the image
// and every result and leave an error notice. It never fails.
func (s *State) SelectFile(c *selection.Candidate) {
	img, err := selection.Validate(c)
	s.image.Release()
	s.generation++
	s.result = nil
	s.detail = nil
	if err != nil {
		log.Printf("[session] rejected selection: %v", err)
		s.image = nil
		s.notice = Failure(MsgInvalidFile)
		return
	}
	s.image = img
	s.notice = Success(MsgImageUpdated)
}

// Preview returns the current image. Without one it sets an error notice.
func (s *State) Preview() (*selection.Image, bool) {
	if s.image == nil {
		s.notice = Failure(MsgNoPreview)
		return nil, false
	}
	return s.image, true
}

// BeginAnalyze checks the preconditions for an analysis and marks it in
// flight. The returned image is what must be uploaded.
func (s *State) BeginAnalyze() (Ticket, *selection.Image, error) {
	if s.image == nil {
		s.notice = Failure(MsgSelectImage)
		return Ticket{}, nil, apperrors.New(apperrors.KindValidation, "session.analyze", MsgSelectImage)
	}
	if s.Busy() {
		return Ticket{}, nil, apperrors.New(apperrors.KindValidation, "session.analyze", MsgBusy)
	}
	s.analysisLoading = true
	s.notice = Notice{}
	return Ticket{generation: s.generation}, s.image, nil
}

// CompleteAnalyze applies an analysis outcome. The loading flag is always
// cleared; outcomes for a superseded selection are otherwise ignored.
func (s *State) CompleteAnalyze(t Ticket, r *analysis.Result, err error) {
	s.analysisLoading = false
	if t.generation != s.generation {
		log.Printf("[session] dropped stale analysis (ticket %d, current %d)", t.generation, s.generation)
		return
	}
	s.detail = nil
	if err != nil {
		s.result = nil
		s.notice = Failure(apperrors.UserMessage(err))
		return
	}
	if r == nil {
		r = &analysis.Result{}
	}
	s.result = r
	s.notice = Notice{}
}

// Analyze runs one analysis synchronously.
func (s *State) Analyze(ctx context.Context, a analysis.Analyzer) error {
	t, img, err := s.BeginAnalyze()
	if err != nil {
		return err
	}
	r, err := a.Analyze(ctx, img)
	s.CompleteAnalyze(t, r, err)
	return err
}

// BeginDetail checks that an analysis exists and marks a detail request in
// flight.
func (s *State) BeginDetail() (Ticket, detail.Request, error) {
	req, err := detail.NewRequest(s.result)
	if err != nil {
		s.notice = Failure(MsgNoAnalysis)
		return Ticket{}, detail.Request{}, err
	}
	if s.Busy() {
		return Ticket{}, detail.Request{}, apperrors.New(apperrors.KindValidation, "session.detail", MsgBusy)
	}
	s.detailLoading = true
	s.notice = Notice{}
	return Ticket{generation: s.generation}, req, nil
}

// CompleteDetail applies a detail outcome. A failure keeps the analysis
// result and only drops the detail text.
func (s *State) CompleteDetail(t Ticket, r detail.Result, err error) {
	s.detailLoading = false
	if t.generation != s.generation {
		log.Printf("[session] dropped stale detail (ticket %d, current %d)", t.generation, s.generation)
		return
	}
	if err != nil {
		s.detail = nil
		s.notice = Failure(apperrors.UserMessage(err))
		return
	}
	s.detail = &r
	s.notice = Notice{}
}

// RequestDetail runs one detail request synchronously.
func (s *State) RequestDetail(ctx context.Context, g detail.Generator) error {
	t, req, err := s.BeginDetail()
	if err != nil {
		return err
	}
	r, err := g.Generate(ctx, req)
	s.CompleteDetail(t, r, err)
	return err
}

// Notify replaces the notice line. Used for outcomes outside the analysis
// cycle such as report export.
func (s *State) Notify(n Notice) {
	s.notice = n
}

// Close releases the preview reference of the current image.
func (s *State) Close() {
	s.image.Release()
}

func (s *State) Image() *selection.Image { return s.image }
func (s *State) Result() *analysis.Result { return s.result }
func (s *State) Notice() Notice { return s.notice }
func (s *State) AnalysisLoading() bool { return s.analysisLoading }
func (s *State) DetailLoading() bool { return s.detailLoading }
func (s *State) Busy() bool { return s.analysisLoading || s.detailLoading }
func (s *State) CanAnalyze() bool { return s.image != nil && !s.Busy() }
func (s *State) CanRequestDetail() bool { return s.result != nil && !s.Busy() }

// Detail returns the detail result, if one has been fetched.
func (s *State) Detail() (detail.Result, bool) {
	if s.detail == nil {
		return detail.Result{}, false
	}
	return *s.detail, true
}

// DetailText is the text to display for the detail section. A fetched
// response without any accepted key yields MsgNoDetailOutput.
func (s *State) DetailText() (string, bool) {
	d, ok := s.Detail()
	if !ok {
		return "", false
	}
	if d.Empty() {
		return MsgNoDetailOutput, true
	}
	return d.Text, true
}

// Phase derives the state machine phase from the fields.
func (s *State) Phase() Phase {
	switch {
	case s.analysisLoading:
		return PhaseAnalyzing
	case s.detailLoading:
		return PhaseDetailFetching
	case s.detail != nil:
		return PhaseDetailed
	case s.result != nil:
		return PhaseAnalyzed
	case s.image != nil:
		return PhaseImageSelected
	case s.notice.Kind == NoticeError:
		return PhaseErrorNoticeOnly
	default:
		return PhaseIdle
	}
}
