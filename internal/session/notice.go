package session

// NoticeKind tags the single notice line.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is the one user-visible status message. Success and error are
// mutually exclusive.
type Notice struct {
	Kind NoticeKind
	Text string
}

func Success(text string) Notice {
	return Notice{Kind: NoticeSuccess, Text: text}
}

func Failure(text string) Notice {
	return Notice{Kind: NoticeError, Text: text}
}

func (n Notice) IsError() bool {
	return n.Kind == NoticeError
}

func (n Notice) Empty() bool {
	return n.Kind == NoticeNone
}

// Phase is the state machine position derived from State.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseImageSelected
	PhaseAnalyzing
	PhaseAnalyzed
	PhaseDetailFetching
	PhaseDetailed
	PhaseErrorNoticeOnly
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseImageSelected:
		return "image selected"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseAnalyzed:
		return "analyzed"
	case PhaseDetailFetching:
		return "fetching detail"
	case PhaseDetailed:
		return "detailed"
	case PhaseErrorNoticeOnly:
		return "error"
	default:
		return "unknown"
	}
}
