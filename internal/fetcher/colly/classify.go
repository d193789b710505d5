package collyfetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/sitesearch/internal/search"
)

// Classify maps a fetch error onto a NetworkErrorKind.
func Classify(err error) search.NetworkErrorKind {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, colly.ErrRobotsTxtBlocked):
		return search.ErrKindRobotsBlocked
	case errors.Is(err, colly.ErrMissingURL), isInvalidURL(err):
		return search.ErrKindInvalidURL
	case errors.Is(err, errTooManyRedirects):
		return search.ErrKindTooManyRedirects
	case errors.Is(err, context.DeadlineExceeded):
		return search.ErrKindTimeout
	case errors.Is(err, context.Canceled):
		return search.ErrKindCanceled
	case isDNSFailure(err):
		return search.ErrKindDNS
	case isTimeout(err):
		return search.ErrKindTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		return search.ErrKindConnectionRefused
	case isTLSFailure(err):
		return search.ErrKindSSL
	default:
		return search.ErrKindConnection
	}
}

func isInvalidURL(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return true
	}
	var escapeErr url.EscapeError
	if errors.As(err, &escapeErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unsupported protocol scheme") ||
		strings.Contains(msg, "no Host in request URL")
}

func isDNSFailure(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && !dnsErr.IsTimeout
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTLSFailure(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		authorityEr x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &authorityEr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) ||
		strings.Contains(err.Error(), "tls: ")
}
