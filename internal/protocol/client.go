// Package protocol implements the smart-HTTP client side of the
// repository transfer protocol: reference discovery and the single
// negotiation request that retrieves the object graph as one packed
// payload. There is no retry policy: any protocol or network failure is
// terminal for the analysis run.
package protocol

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"churnmap/internal/errors"
	"churnmap/internal/logging"
)

const (
	// ServiceName is the transfer service both endpoints are derived from
	ServiceName = "git-upload-pack"

	// DefaultUserAgent identifies this client during negotiation
	DefaultUserAgent = "churnmap/1.0"

	advertisementType = "application/x-" + ServiceName + "-advertisement"
	requestType       = "application/x-" + ServiceName + "-request"
	resultType        = "application/x-" + ServiceName + "-result"
)

// Client speaks the smart transfer protocol against one repository base
// URL at a time.
type Client struct {
	http   *http.Client
	agent  string
	logger *logging.Logger
}

// NewClient creates a protocol client. A zero timeout disables the
// transport-level bound; callers may still cancel through the context.
func NewClient(timeout time.Duration, agent string, logger *logging.Logger) *Client {
	if agent == "" {
		agent = DefaultUserAgent
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		agent:  agent,
		logger: logger,
	}
}

// repoEndpoint joins the repository base URL with a service path
func repoEndpoint(repoURL, suffix string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", errors.New(errors.ProtocolViolation, "invalid repository URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Newf(errors.ProtocolViolation, "unsupported repository URL scheme %q", u.Scheme)
	}
	return strings.TrimSuffix(u.String(), "/") + suffix, nil
}

// requireContentType enforces an exact content-kind match
func requireContentType(resp *http.Response, want string) error {
	got := resp.Header.Get("Content-Type")
	if got != want {
		return errors.Newf(errors.ProtocolViolation,
			"server does not speak the expected protocol: content type %q, want %q", got, want)
	}
	return nil
}
