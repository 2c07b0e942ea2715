package httputil

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Direct returns a plain client for unproxied calls: proxy-list fetches,
// media downloads.
func Direct(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Proxied returns a client that routes everything through proxyAddr and
// surfaces redirect responses to the caller instead of following them.
// HTTP/2 is forced off; free proxies garble the upgrade far more often
// than they fail outright.
func Proxied(proxyAddr string, timeout time.Duration) (*http.Client, error) {
	proxyURL, err := url.Parse(proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("parse proxy address %q: %w", proxyAddr, err)
	}

	transport := &http.Transport{
		Proxy:             http.ProxyURL(proxyURL),
		ForceAttemptHTTP2: false,
		TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}
