package domain

import "fmt"

// ExitCode is the process exit status handed back to the event producer.
// Codes are grouped into reserved bands so callers can classify a failure
// without matching on message text.
type ExitCode int

const (
	// Decision codes (0-2)
	ExitAllow   ExitCode = 0
	ExitBlock   ExitCode = 1
	ExitAskUser ExitCode = 2

	// Input and configuration errors (3-9)
	ExitInvalidArg    ExitCode = 3
	ExitInvalidURL    ExitCode = 4
	ExitInvalidJSON   ExitCode = 5
	ExitInvalidHook   ExitCode = 6
	ExitConfig        ExitCode = 7
	ExitConfigParse   ExitCode = 8
	ExitConfigInvalid ExitCode = 9

	// Network errors (10-19)
	ExitNetwork    ExitCode = 10
	ExitConnection ExitCode = 11
	ExitTimeout    ExitCode = 12
	ExitTLS        ExitCode = 13
	ExitDNS        ExitCode = 14
	ExitHTTPClient ExitCode = 15
	ExitHTTPServer ExitCode = 16
	ExitRateLimit  ExitCode = 17
	ExitAuth       ExitCode = 18
	ExitProxy      ExitCode = 19

	// System errors (20-29)
	ExitMemory     ExitCode = 20
	ExitIO         ExitCode = 21
	ExitPermission ExitCode = 22
	ExitInternal   ExitCode = 23
	ExitThreading  ExitCode = 24
	ExitResource   ExitCode = 25
	ExitSignal     ExitCode = 26

	// Server response errors (30-39)
	ExitServerInvalid    ExitCode = 30
	ExitServerModify     ExitCode = 31
	ExitAllServersFailed ExitCode = 32
	ExitProtocol         ExitCode = 33
	ExitJSONMissingField ExitCode = 34
	ExitJSONTypeMismatch ExitCode = 35
	ExitServerBusy       ExitCode = 36
	ExitUnsupported      ExitCode = 37
)

// ExitBand names the reserved range an exit code belongs to.
type ExitBand string

const (
	BandDecision ExitBand = "decision"
	BandInput    ExitBand = "input"
	BandNetwork  ExitBand = "network"
	BandSystem   ExitBand = "system"
	BandServer   ExitBand = "server"
	BandUnknown  ExitBand = "unknown"
)

// Band returns the reserved range the code falls in.
func (c ExitCode) Band() ExitBand {
	switch {
	case c >= 0 && c <= 2:
		return BandDecision
	case c >= 3 && c <= 9:
		return BandInput
	case c >= 10 && c <= 19:
		return BandNetwork
	case c >= 20 && c <= 29:
		return BandSystem
	case c >= 30 && c <= 39:
		return BandServer
	default:
		return BandUnknown
	}
}

// IsDecision reports whether the code is one of allow, block or ask.
func (c ExitCode) IsDecision() bool {
	return c.Band() == BandDecision
}

var exitDescriptions = map[ExitCode]string{
	ExitAllow:            "allowed",
	ExitBlock:            "blocked",
	ExitAskUser:          "user approval required",
	ExitInvalidArg:       "invalid argument",
	ExitInvalidURL:       "invalid server URL",
	ExitInvalidJSON:      "invalid JSON input",
	ExitInvalidHook:      "invalid hook event",
	ExitConfig:           "configuration error",
	ExitConfigParse:      "configuration parse error",
	ExitConfigInvalid:    "invalid configuration",
	ExitNetwork:          "network error",
	ExitConnection:       "connection failed",
	ExitTimeout:          "request timed out",
	ExitTLS:              "TLS error",
	ExitDNS:              "DNS resolution failed",
	ExitHTTPClient:       "HTTP client error",
	ExitHTTPServer:       "HTTP server error",
	ExitRateLimit:        "rate limited",
	ExitAuth:             "authentication failed",
	ExitProxy:            "proxy error",
	ExitMemory:           "out of memory",
	ExitIO:               "I/O error",
	ExitPermission:       "permission denied",
	ExitInternal:         "internal error",
	ExitThreading:        "threading error",
	ExitResource:         "resource exhausted",
	ExitSignal:           "interrupted",
	ExitServerInvalid:    "invalid server response",
	ExitServerModify:     "server modification failed",
	ExitAllServersFailed: "all servers failed",
	ExitProtocol:         "protocol error",
	ExitJSONMissingField: "missing JSON field",
	ExitJSONTypeMismatch: "JSON type mismatch",
	ExitServerBusy:       "server busy",
	ExitUnsupported:      "unsupported operation",
}

// String returns a short human-readable description.
func (c ExitCode) String() string {
	if s, ok := exitDescriptions[c]; ok {
		return s
	}
	return fmt.Sprintf("exit code %d", int(c))
}

// Status returns the label used in structured output for this code.
func (c ExitCode) Status() string {
	switch c {
	case ExitAllow:
		return "allowed"
	case ExitBlock:
		return "blocked"
	case ExitAskUser:
		return "ask_user"
	default:
		return "error"
	}
}
