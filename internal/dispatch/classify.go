package dispatch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"

	"github.com/tjfontaine/hookrelay/internal/core/domain"
	"github.com/tjfontaine/hookrelay/internal/pkg/safehttp"
)

// ClassifyStatus buckets an HTTP status. 200 is the only success.
func ClassifyStatus(status int) domain.FailureClass {
	switch {
	case status == http.StatusOK:
		return domain.ClassNone
	case status == http.StatusTooManyRequests:
		return domain.ClassRateLimited
	case status >= 500 && status <= 599:
		return domain.ClassServerError
	case status >= 400 && status <= 499:
		return domain.ClassClientError
	default:
		return domain.ClassUnexpectedStatus
	}
}

// Classify buckets a transport error returned by the HTTP client.
func Classify(err error) domain.FailureClass {
	if err == nil {
		return domain.ClassNone
	}

	if errors.Is(err, context.Canceled) {
		return domain.ClassCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ClassTimeout
	}
	if errors.Is(err, safehttp.ErrPrivateAddress) {
		return domain.ClassInvalidURL
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return domain.ClassTimeout
		}
		return domain.ClassDNS
	}

	if isTLS(err) {
		return domain.ClassTLS
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return domain.ClassConnection
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ClassTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return domain.ClassConnection
	}

	// resets, short reads and everything else below HTTP
	return domain.ClassNetwork
}

func isTLS(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		alertErr    tls.AlertError
		authority   x509.UnknownAuthorityError
		hostname    x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &authority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalidCert)
}

// ValidateURL rejects endpoint URLs that can never be dialed.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("unsupported scheme " + u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
