package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
)

// printer writes human-facing messages to stderr.
type printer struct {
	w       io.Writer
	silent  bool
	symbols bool

	errorColor *color.Color
	okColor    *color.Color
	warnColor  *color.Color
	infoColor  *color.Color
}

func newPrinter(w io.Writer, silent, colored, symbols bool) *printer {
	p := &printer{
		w:          w,
		silent:     silent,
		symbols:    symbols,
		errorColor: color.New(color.FgRed, color.Bold),
		okColor:    color.New(color.FgGreen, color.Bold),
		warnColor:  color.New(color.FgYellow),
		infoColor:  color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.errorColor, p.okColor, p.warnColor, p.infoColor} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) line(c *color.Color, symbol, format string, args ...any) {
	if p.silent {
		return
	}
	if p.symbols && symbol != "" {
		format = symbol + " " + format
	}
	c.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) Error(format string, args ...any) {
	p.line(p.errorColor, "✗", format, args...)
}

func (p *printer) Warn(format string, args ...any) {
	p.line(p.warnColor, "⚠", format, args...)
}

func (p *printer) Info(format string, args ...any) {
	p.line(p.infoColor, "", format, args...)
}

// Notices prints the reasons attached to a decision.
func (p *printer) Notices(d domain.Decision) {
	for _, n := range d.Notices {
		switch n.Kind {
		case domain.NoticeBlocked:
			p.line(p.errorColor, "✗", "Blocked: %s", n.Text)
		case domain.NoticeDenied:
			p.line(p.errorColor, "✗", "Denied: %s", n.Text)
		case domain.NoticeAllowed:
			p.line(p.okColor, "✓", "Allowed: %s", n.Text)
		case domain.NoticeAskUser:
			p.line(p.warnColor, "⚠", "User approval required: %s", n.Text)
		case domain.NoticeStopped:
			p.line(p.warnColor, "", "Stopped: %s", n.Text)
		}
	}
}

// Unavailable explains a fail-closed block and hints at the likely cause.
func (p *printer) Unavailable(urls []string, err error) {
	if p.silent {
		return
	}
	p.Error("Server unavailable (fail-closed mode)")
	if len(urls) == 1 {
		fmt.Fprintf(p.w, "\nThe operation was blocked because the server at\n%s is not responding.\n\n", urls[0])
	} else {
		fmt.Fprintf(p.w, "\nThe operation was blocked because the servers are not responding:\n")
		for _, u := range urls {
			fmt.Fprintf(p.w, "  • %s\n", u)
		}
		fmt.Fprintln(p.w)
	}

	var te *domain.TransportError
	if errors.As(err, &te) {
		switch te.LastClass {
		case domain.ClassConnection:
			fmt.Fprintln(p.w, "Is the policy server running?")
		case domain.ClassDNS:
			fmt.Fprintln(p.w, "Check the server host name.")
		case domain.ClassTLS:
			fmt.Fprintln(p.w, "Check the server certificate, or pass --insecure for testing.")
		case domain.ClassTimeout:
			fmt.Fprintln(p.w, "The server did not answer in time; consider raising --timeout.")
		}
	}
	fmt.Fprintln(p.w, "To allow operations when the server is down:")
	fmt.Fprintln(p.w, "  • Pass --fail-open")
	fmt.Fprintln(p.w, "  • Or fix the server connection")
}

func (p *printer) Connecting(endpoint string, fallback bool) {
	if fallback {
		p.Info("Trying fallback server %s...", endpoint)
		return
	}
	p.Info("Connecting to %s...", endpoint)
}

func (p *printer) Retrying(status, attempt, maxAttempts int) {
	p.Info("Request failed (HTTP %d, attempt %d/%d), retrying...", status, attempt, maxAttempts)
}

func (p *printer) ClientError(status int) {
	p.Warn("Client error (HTTP %d) - not retrying", status)
}

func (p *printer) EndpointUnavailable(endpoint string) {
	p.Warn("Server %s unavailable, trying next server...", endpoint)
}

func (p *printer) FallbackConnected() {
	p.line(p.okColor, "✓", "Successfully connected to fallback server")
}
