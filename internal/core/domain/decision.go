package domain

// DecisionSource names the part of the response that settled the exit code.
type DecisionSource string

const (
	SourceDefault      DecisionSource = "default"
	SourceStatus       DecisionSource = "status"
	SourceFailOpen     DecisionSource = "fail_open"
	SourceFailClosed   DecisionSource = "fail_closed"
	SourceContinue     DecisionSource = "continue"
	SourceDecision     DecisionSource = "decision"
	SourceHookSpecific DecisionSource = "hook_specific_output"
	SourceValidation   DecisionSource = "validation"
)

// NoticeKind classifies an informational message produced while interpreting
// a response.
type NoticeKind string

const (
	NoticeBlocked NoticeKind = "blocked"
	NoticeAllowed NoticeKind = "allowed"
	NoticeDenied  NoticeKind = "denied"
	NoticeAskUser NoticeKind = "ask_user"
	NoticeStopped NoticeKind = "stopped"
)

// Notice is a reason string surfaced alongside a decision. Notices never
// change the decision itself.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Decision is the resolved outcome of one dispatch sequence.
type Decision struct {
	Continue        bool
	SuppressOutput  bool
	ExitCode        ExitCode
	ModifiedPayload []byte
	Source          DecisionSource
	Notices         []Notice

	// Cause is set when the outcome came from fail-open or fail-closed
	// handling rather than from an understood response.
	Cause error
}

// NewDecision returns the default decision: continue, allow, echo output.
func NewDecision() Decision {
	return Decision{
		Continue: true,
		ExitCode: ExitAllow,
		Source:   SourceDefault,
	}
}

// Modified reports whether the server substituted the payload.
func (d Decision) Modified() bool {
	return d.ModifiedPayload != nil
}

// FailurePolicyDecision resolves an unusable outcome through the fail-open
// switch.
func FailurePolicyDecision(failOpen bool, cause error) Decision {
	d := NewDecision()
	d.Cause = cause
	if failOpen {
		d.Source = SourceFailOpen
		d.ExitCode = ExitAllow
		return d
	}
	d.Source = SourceFailClosed
	d.ExitCode = ExitBlock
	return d
}
