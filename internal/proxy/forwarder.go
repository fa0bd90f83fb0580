package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// Hop-by-hop headers are consumed by each transport hop and must not be
// relayed in either direction.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// UpstreamResponse is the captured upstream response triple.
type UpstreamResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// ForwardError describes a transport-level failure reaching the upstream.
type ForwardError struct {
	Message        string
	Code           string
	UpstreamStatus *int
}

// ForwardResult is the uniform envelope of one forwarded exchange.
// Success is true iff the upstream call completed, regardless of the
// returned status code; transport failures leave Response nil.
type ForwardResult struct {
	Success  bool
	Response *UpstreamResponse
	Duration int64
	Err      *ForwardError
}

// Forwarder relays requests to a single fixed upstream.
type Forwarder struct {
	baseURL      string
	client       *http.Client
	healthClient *http.Client
}

func New(target string, timeout, healthTimeout time.Duration) (*Forwarder, error) {
	if _, err := url.Parse(target); err != nil {
		return nil, err
	}

	// Transparent decompression would hand back bytes that differ from what
	// the upstream sent; the relay must be byte-identical.
	transport := &http.Transport{
		DisableCompression: true,
	}

	return &Forwarder{
		baseURL: strings.TrimRight(target, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		healthClient: &http.Client{
			Timeout:   healthTimeout,
			Transport: transport,
		},
	}, nil
}

// Forward issues the equivalent outbound call to the upstream. The body is
// attached only for body-carrying methods; its absence is not an error.
func (f *Forwarder) Forward(ctx context.Context, method, path string, headers http.Header, query url.Values, body []byte) ForwardResult {
	start := time.Now()

	target := f.baseURL + path
	if enc := query.Encode(); enc != "" {
		target += "?" + enc
	}

	var reqBody io.Reader
	if len(body) > 0 && method != http.MethodGet && method != http.MethodHead {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return failure(start, err)
	}
	req.Header = sanitizeHeaders(headers)

	log.Printf("Forwarding request: %s %s", method, target)

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("Forward failed: %s %s: %v", method, target, err)
		return failure(start, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Forward failed reading upstream body: %s %s: %v", method, target, err)
		return failure(start, err)
	}

	return ForwardResult{
		Success: true,
		Response: &UpstreamResponse{
			Status:  resp.StatusCode,
			Headers: sanitizeHeaders(resp.Header),
			Body:    respBody,
		},
		Duration: time.Since(start).Milliseconds(),
	}
}

// HealthCheck probes the upstream base URL. True only on HTTP 200; every
// error collapses to false.
func (f *Forwarder) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := f.healthClient.Do(req)
	if err != nil {
		log.Printf("Upstream health check failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// BaseURL returns the configured upstream base URL.
func (f *Forwarder) BaseURL() string {
	return f.baseURL
}

func failure(start time.Time, err error) ForwardResult {
	return ForwardResult{
		Success:  false,
		Duration: time.Since(start).Milliseconds(),
		Err: &ForwardError{
			Message: err.Error(),
			Code:    classifyError(err),
		},
	}
}

func classifyError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return "connection_refused"
	}

	return "network"
}

func sanitizeHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}
	for _, key := range hopByHopHeaders {
		out.Del(key)
	}
	// The transport derives these from the outbound request itself.
	out.Del("Host")
	out.Del("Content-Length")
	return out
}
