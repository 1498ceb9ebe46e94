// Package pipeline runs one hook event through transform, dispatch and
// interpret and reports the resulting decision.
//
// # Wire Contract
//
// The event producer writes a hook event to the pipeline:
//
//	{
//	  "hook_event_name": "PreToolUse",
//	  "session_id": "...",
//	  "tool_name": "Bash",          // tool events only
//	  "correlation_id": "...",      // optional
//	  ...
//	}
//
// Each configured policy server receives the event wrapped in an envelope:
//
//	POST <server_url>
//	Content-Type: application/json
//	Authorization: Bearer <api_key>  // when configured
//
//	{
//	  "specversion": "1.0",
//	  "type": "com.claudecode.hook.PreToolUse",
//	  "source": "/claude-code/hooks",
//	  "id": "<hex seconds>-<hex nanoseconds>",
//	  "time": "2024-05-01T12:30:45Z",
//	  "datacontenttype": "application/json",
//	  "sessionid": "...",
//	  "data": { ... original event ... }
//	}
//
// A 200 response carries the decision:
//
//	{
//	  "continue": true,
//	  "stopReason": "...",
//	  "suppressOutput": false,
//	  "decision": "block" | "approve" | "allow" | "modify" | "continue",
//	  "reason": "...",
//	  "modified_data": { ... },
//	  "hookSpecificOutput": {
//	    "hookEventName": "PreToolUse",
//	    "permissionDecision": "allow" | "deny" | "ask",
//	    "permissionDecisionReason": "..."
//	  }
//	}
//
// # Exit Codes
//
// 0 allows, 1 blocks and 2 asks the user. Everything else is an error band
// described by domain.ExitCode. Unless the decision suppresses output, the
// pipeline hands back either the original event or the server's modified
// payload.
package pipeline
