// Package interpret turns a policy server response into a Decision.
package interpret

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

// Decision values accepted in the top-level decision field.
const (
	DecisionBlock    = "block"
	DecisionApprove  = "approve"
	DecisionAllow    = "allow"
	DecisionModify   = "modify"
	DecisionContinue = "continue"
)

// Permission values accepted in hookSpecificOutput.
const (
	PermissionDeny  = "deny"
	PermissionAllow = "allow"
	PermissionAsk   = "ask"
)

// fields is a decoded response object with camelCase and snake_case lookup.
type fields map[string]json.RawMessage

// get returns the camelCase key when present, else its snake_case alias.
func (f fields) get(camel, snake string) (json.RawMessage, bool) {
	if v, ok := f[camel]; ok {
		return v, true
	}
	if snake == "" {
		return nil, false
	}
	v, ok := f[snake]
	return v, ok
}

func (f fields) str(camel, snake string) (string, bool) {
	raw, ok := f.get(camel, snake)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (f fields) boolean(camel, snake string) (bool, bool) {
	raw, ok := f.get(camel, snake)
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

func (f fields) object(camel, snake string) (fields, bool) {
	raw, ok := f.get(camel, snake)
	if !ok || len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj fields
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// source inspects one part of the response. It reports false when that part
// is absent or yields no decision.
type source struct {
	name  domain.DecisionSource
	apply func(f fields, d *domain.Decision) (domain.ExitCode, bool)
}

// decisionSources are consulted in order; the last one yielding a code wins.
var decisionSources = []source{
	{name: domain.SourceDecision, apply: fromDecisionField},
	{name: domain.SourceHookSpecific, apply: fromHookSpecificOutput},
}

// Interpret resolves a response. It never fails: unusable responses are
// resolved through failOpen and the reason is kept in Decision.Cause.
func Interpret(status int, body []byte, failOpen bool) domain.Decision {
	switch {
	case status >= 400 && status <= 499:
		d := domain.NewDecision()
		d.ExitCode = domain.ExitBlock
		d.Source = domain.SourceStatus
		d.Cause = fmt.Errorf("policy server rejected the request with status %d", status)
		return d
	case status != http.StatusOK:
		return domain.FailurePolicyDecision(failOpen, fmt.Errorf("policy server returned status %d", status))
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return domain.FailurePolicyDecision(failOpen, &domain.ProtocolError{Kind: domain.ProtocolEmptyBody, Status: status})
	}
	var f fields
	if err := json.Unmarshal(trimmed, &f); err != nil || f == nil {
		kind := domain.ProtocolNotObject
		if !json.Valid(trimmed) {
			kind = domain.ProtocolInvalidJSON
		}
		return domain.FailurePolicyDecision(failOpen, &domain.ProtocolError{Kind: kind, Status: status, Err: err})
	}

	return fromFields(f)
}

func fromFields(f fields) domain.Decision {
	d := domain.NewDecision()

	if cont, ok := f.boolean("continue", ""); ok && !cont {
		d.Continue = false
		d.ExitCode = domain.ExitBlock
		d.Source = domain.SourceContinue
		if reason, ok := f.str("stopReason", "stop_reason"); ok && reason != "" {
			d.Notices = append(d.Notices, domain.Notice{Kind: domain.NoticeStopped, Text: reason})
		}
		return d
	}

	if suppress, ok := f.boolean("suppressOutput", "suppress_output"); ok {
		d.SuppressOutput = suppress
	}

	for _, src := range decisionSources {
		if code, ok := src.apply(f, &d); ok {
			d.ExitCode = code
			d.Source = src.name
		}
	}

	return d
}

func fromDecisionField(f fields, d *domain.Decision) (domain.ExitCode, bool) {
	decision, ok := f.str("decision", "action")
	if !ok {
		return 0, false
	}
	reason, _ := f.str("reason", "")

	switch decision {
	case DecisionBlock:
		addNotice(d, domain.NoticeBlocked, reason)
		return domain.ExitBlock, true
	case DecisionApprove, DecisionAllow:
		addNotice(d, domain.NoticeAllowed, reason)
		return domain.ExitAllow, true
	case DecisionModify:
		// Any JSON value replaces the input, an explicit null included.
		raw, ok := f.get("modified_data", "modifiedData")
		if !ok {
			return 0, false
		}
		var compacted bytes.Buffer
		if err := json.Compact(&compacted, raw); err != nil {
			return 0, false
		}
		d.ModifiedPayload = compacted.Bytes()
		return domain.ExitAllow, true
	default:
		// "continue" and unrecognized values leave the decision untouched.
		return 0, false
	}
}

func fromHookSpecificOutput(f fields, d *domain.Decision) (domain.ExitCode, bool) {
	out, ok := f.object("hookSpecificOutput", "hook_specific_output")
	if !ok {
		return 0, false
	}
	if name, _ := out.str("hookEventName", "hook_event_name"); name != domain.EventPreToolUse {
		return 0, false
	}
	perm, ok := out.str("permissionDecision", "permission_decision")
	if !ok {
		return 0, false
	}
	reason, _ := out.str("permissionDecisionReason", "permission_decision_reason")

	switch perm {
	case PermissionDeny:
		addNotice(d, domain.NoticeDenied, reason)
		return domain.ExitBlock, true
	case PermissionAllow:
		addNotice(d, domain.NoticeAllowed, reason)
		return domain.ExitAllow, true
	case PermissionAsk:
		addNotice(d, domain.NoticeAskUser, reason)
		return domain.ExitAskUser, true
	default:
		return 0, false
	}
}

func addNotice(d *domain.Decision, kind domain.NoticeKind, text string) {
	if text == "" {
		return
	}
	d.Notices = append(d.Notices, domain.Notice{Kind: kind, Text: text})
}
