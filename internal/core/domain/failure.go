package domain

// FailureClass buckets the outcome of a single delivery attempt. Each class
// carries its own retry budget and backoff curve.
type FailureClass int

const (
	ClassNone FailureClass = iota
	ClassConnection
	ClassDNS
	ClassTimeout
	ClassNetwork
	ClassInvalidURL
	ClassTLS
	ClassServerError
	ClassRateLimited
	ClassClientError
	ClassUnexpectedStatus
	ClassInvalidResponse
	ClassCanceled
)

var failureClassNames = map[FailureClass]string{
	ClassNone:             "none",
	ClassConnection:       "connection",
	ClassDNS:              "dns",
	ClassTimeout:          "timeout",
	ClassNetwork:          "network",
	ClassInvalidURL:       "invalid_url",
	ClassTLS:              "tls",
	ClassServerError:      "server_error",
	ClassRateLimited:      "rate_limited",
	ClassClientError:      "client_error",
	ClassUnexpectedStatus: "unexpected_status",
	ClassInvalidResponse:  "invalid_response",
	ClassCanceled:         "canceled",
}

func (c FailureClass) String() string {
	if s, ok := failureClassNames[c]; ok {
		return s
	}
	return "unknown"
}

// IsNetwork reports whether the class describes a failure below HTTP, where
// no status code was received.
func (c FailureClass) IsNetwork() bool {
	switch c {
	case ClassConnection, ClassDNS, ClassTimeout, ClassNetwork, ClassInvalidURL, ClassTLS, ClassCanceled:
		return true
	default:
		return false
	}
}

// Retryable reports whether another attempt against the same endpoint may help.
func (c FailureClass) Retryable() bool {
	switch c {
	case ClassConnection, ClassDNS, ClassTimeout, ClassNetwork, ClassServerError, ClassRateLimited:
		return true
	default:
		return false
	}
}

// ExitCode maps the class onto the network or server-response exit band.
func (c FailureClass) ExitCode() ExitCode {
	switch c {
	case ClassNone:
		return ExitAllow
	case ClassConnection:
		return ExitConnection
	case ClassDNS:
		return ExitDNS
	case ClassTimeout:
		return ExitTimeout
	case ClassInvalidURL:
		return ExitInvalidURL
	case ClassTLS:
		return ExitTLS
	case ClassServerError:
		return ExitHTTPServer
	case ClassRateLimited:
		return ExitRateLimit
	case ClassClientError, ClassUnexpectedStatus:
		return ExitHTTPClient
	case ClassInvalidResponse:
		return ExitServerInvalid
	case ClassCanceled:
		return ExitSignal
	default:
		return ExitNetwork
	}
}

// Status encodes a network-level failure as a negative internal status so a
// single integer can carry either an HTTP status or a failure kind.
func (c FailureClass) Status() int {
	if !c.IsNetwork() {
		return 0
	}
	return -int(c.ExitCode())
}
