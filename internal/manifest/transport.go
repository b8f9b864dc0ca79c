package manifest

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport fetches a URL and returns the HTTP status and body. It is
// an interface so tests can script (status, body) pairs without a
// network.
type Transport interface {
	Get(url string) (status int, body []byte, err error)
}

// HTTPTransport fetches over plain HTTP or TLS depending on the URL
// scheme.
//
// When insecure is set the TLS client accepts any certificate: trust in
// the update source is then by address, not by certificate chain.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport with the given per-request
// timeout. insecure disables TLS certificate validation.
func NewHTTPTransport(timeout time.Duration, insecure bool) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure},
			},
		},
	}
}

// Get fetches the URL. Any status is returned as-is; interpreting
// non-2xx as failure is the caller's concern.
func (t *HTTPTransport) Get(url string) (int, []byte, error) {
	resp, err := t.client.Get(url)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body from %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}

// Fetch retrieves and parses a manifest from the given URL. A non-2xx
// response is a fetch failure carrying the numeric status.
func Fetch(t Transport, url string) (Manifest, error) {
	status, body, err := t.Get(url)
	if err != nil {
		return Manifest{}, err
	}
	if status < 200 || status > 299 {
		return Manifest{}, fmt.Errorf("fetch %s: http status %d", url, status)
	}
	return Parse(string(body))
}
