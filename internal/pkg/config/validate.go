package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
	"github.com/tjfontaine/hookrelay/internal/pkg/logging"
	"github.com/tjfontaine/hookrelay/internal/pkg/safehttp"
)

// Validate checks the loaded values and records warnings.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return &Error{Code: domain.ExitConfigInvalid, Path: c.Path, Err: fmt.Errorf(format, args...)}
	}

	eps := c.ResolvedEndpoints()
	if len(eps) == 0 {
		return invalid("no policy servers configured")
	}
	if len(eps) > MaxEndpoints {
		return invalid("%d policy servers configured, at most %d allowed", len(eps), MaxEndpoints)
	}

	c.Warnings = nil
	for _, ep := range eps {
		insecure, err := ValidateServerURL(ep.URL)
		if err != nil {
			return &Error{Code: domain.ExitInvalidURL, Path: c.Path, Err: err}
		}
		if insecure && !c.Insecure {
			c.Warnings = append(c.Warnings, fmt.Sprintf("%s sends hook events over plain HTTP", ep.URL))
		}
	}

	if c.TimeoutMS > maxTimeoutMS {
		return invalid("timeout_ms %d exceeds %d", c.TimeoutMS, maxTimeoutMS)
	}
	for _, e := range c.Endpoints {
		if e.TimeoutMS < 0 || e.TimeoutMS > maxTimeoutMS {
			return invalid("endpoint %s: timeout_ms %d out of range", e.URL, e.TimeoutMS)
		}
	}
	if c.DeadlineMS < 0 {
		return invalid("deadline_ms must not be negative")
	}
	if c.Retry.NetworkAttempts < 1 || c.Retry.ServerAttempts < 1 {
		return invalid("retry attempts must be at least 1")
	}

	switch c.Output {
	case OutputDefault, OutputPlain, OutputJSON:
	default:
		return invalid("output %q must be one of default, plain, json", c.Output)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("%v", err)
	}

	return nil
}

// ValidateServerURL checks a policy server URL. It reports whether the URL
// sends events in clear text to a host other than the local machine.
func ValidateServerURL(raw string) (insecure bool, err error) {
	if raw == "" {
		return false, errors.New("server URL is empty")
	}
	if len(raw) > MaxURLLength {
		return false, fmt.Errorf("server URL longer than %d characters", MaxURLLength)
	}
	if strings.ContainsAny(raw, " \t\r\n") {
		return false, fmt.Errorf("server URL %q contains whitespace", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false, fmt.Errorf("server URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return false, fmt.Errorf("server URL %q must use http or https", raw)
	}
	if u.Hostname() == "" {
		return false, fmt.Errorf("server URL %q has no host", raw)
	}

	return u.Scheme == "http" && !safehttp.IsLoopbackHost(u.Hostname()), nil
}

// LogValue keeps credentials out of logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("endpoints", len(c.ResolvedEndpoints())),
		slog.Int("timeout_ms", c.TimeoutMS),
		slog.Int("deadline_ms", c.DeadlineMS),
		slog.Bool("fail_open", c.FailOpen),
		slog.String("output", c.Output),
		slog.String("path", c.Path),
		slog.Bool("api_key_set", c.APIKey != ""),
	)
}
