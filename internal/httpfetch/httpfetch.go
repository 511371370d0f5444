// Package httpfetch provides the synchronous GET used by the registry and
// image fetcher, with a hard per-request timeout and the scoped TLS
// exemption the BMKG endpoints require.
package httpfetch

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/MeKo-Tech/radarmosaic/internal/radarerr"
)

// Timeout is the hard per-request deadline. Callers own retry policy; this
// package never retries.
const Timeout = 20 * time.Second

// insecureHosts lists the BMKG hostnames whose certificates do not validate
// on their non-443 ports. TLS verification is skipped only for these hosts,
// never globally.
var insecureHosts = map[string]bool{
	"radar.bmkg.go.id":    true,
	"api-apps.bmkg.go.id": true,
}

var defaultClient = &http.Client{Timeout: Timeout}

var insecureClient = &http.Client{
	Timeout: Timeout,
	Transport: &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}
			// Only the two named BMKG hosts skip verification; any other
			// host reaching this transport is dialed normally.
			cfg := &tls.Config{InsecureSkipVerify: insecureHosts[host], ServerName: host}
			dialer := &net.Dialer{}
			return tls.DialWithDialer(dialer, network, addr, cfg)
		},
	},
}

// Get performs a synchronous GET with the given headers and the package's
// hard timeout. It selects the insecure (host-scoped) transport
// automatically for the two known BMKG hosts.
func Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &radarerr.NetworkError{URL: url, Cause: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := defaultClient
	if requiresInsecure(req) {
		client = insecureClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &radarerr.NetworkError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &radarerr.NetworkError{URL: url, Cause: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &radarerr.NetworkError{URL: url, Cause: &statusError{resp.StatusCode}}
	}

	return body, nil
}

func requiresInsecure(req *http.Request) bool {
	return insecureHosts[req.URL.Hostname()]
}

type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return http.StatusText(e.Code)
}
