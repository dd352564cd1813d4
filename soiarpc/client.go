package soiarpc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"
	ierrors "github.com/soiago/soia/internal/errors"
	"github.com/soiago/soia/soia"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// ClientOption configures a Client, following the same functional-options
// shape as ServiceOption.
type ClientOption func(*Client)

// WithClientLogger attaches a structured logger for retry and transport
// failures.
func WithClientLogger(l *zap.Logger) ClientOption { return func(c *Client) { c.logger = l } }

// WithHTTPClient overrides the transport. Defaults to http.DefaultClient.
func WithHTTPClient(h *http.Client) ClientOption { return func(c *Client) { c.http = h } }

// WithRateLimit caps outbound call rate, guarding against a client-side
// retry storm overwhelming a struggling server the way the teacher's own
// retry-budget concerns do for a misbehaving peer.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithMaxAttempts bounds retry attempts for calls that fail with a 500
// (server_error) response or a transport error. Bad-request (400)
// responses are never retried since retrying a malformed frame cannot
// succeed.
func WithMaxAttempts(n uint) ClientOption { return func(c *Client) { c.maxAttempts = n } }

// CallOption configures a single Call invocation.
type CallOption func(*callConfig)

type callConfig struct {
	httpMethod string
}

// WithHTTPMethod selects the HTTP method a Call uses to reach the service
// (spec §4.8's invoke_remote(method, request, http_method)). Defaults to
// POST, which carries the frame as the request body. GET instead
// URL-encodes the frame into the query string, doubling any literal '%' to
// '%25' so the server can unambiguously recover the original frame.
func WithHTTPMethod(method string) CallOption {
	return func(c *callConfig) { c.httpMethod = method }
}

// Client calls methods exposed by a Service over HTTP.
type Client struct {
	baseURL     string
	http        *http.Client
	logger      *zap.Logger
	limiter     *rate.Limiter
	maxAttempts uint

	// inflight deduplicates identical concurrent calls (same frame) so a
	// caller that fans out the same request to many goroutines only hits
	// the network once, the same role singleflight.Group plays in front
	// of a shared cache lookup.
	inflight singleflight.Group
}

// NewClient constructs a Client that POSTs request frames to baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		http:        http.DefaultClient,
		logger:      zap.NewNop(),
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call invokes method name with req, returning the decoded response.
// Format defaults to dense; the response is decoded in whichever flavor
// the server actually returned, in preserve-unknowns mode since spec §4.8
// considers a server's response trusted.
func Call[Req any, Res any](ctx context.Context, c *Client, name string, number int32, reqSer soia.Serializer[Req], resSer soia.Serializer[Res], req Req, opts ...CallOption) (Res, error) {
	var zero Res

	cfg := callConfig{httpMethod: http.MethodPost}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqJSON := string(soia.MarshalJSONValue(reqSer.ToJSON(req, soia.Dense), soia.Dense))
	frame := fmt.Sprintf("%s:%d:dense:%s", name, number, reqJSON)

	v, err, _ := c.inflight.Do(cfg.httpMethod+" "+frame, func() (any, error) {
		return c.doWithRetry(ctx, cfg.httpMethod, frame)
	})
	if err != nil {
		return zero, err
	}
	reply := v.(httpReply)

	respJ, _, err := parseResponseFrame(reply.status, reply.body)
	if err != nil {
		return zero, err
	}
	return resSer.FromJSON(respJ, true)
}

type httpReply struct {
	status int
	body   string
}

func (c *Client) doWithRetry(ctx context.Context, httpMethod, frame string) (httpReply, error) {
	op := func() (httpReply, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return httpReply{}, err
			}
		}
		body, status, err := c.send(ctx, httpMethod, frame)
		if err != nil {
			return httpReply{}, err
		}
		if status == http.StatusInternalServerError {
			return httpReply{}, fmt.Errorf("soiarpc: server error: %s", body)
		}
		return httpReply{status: status, body: body}, nil
	}

	result, err := backoff.Retry(ctx, op, backoff.WithMaxTries(c.maxAttempts))
	if err != nil {
		c.logger.Warn("soiarpc: call failed after retries", zap.Error(err))
		return httpReply{}, err
	}
	return result, nil
}

// send transmits frame using httpMethod. POST carries frame as the request
// body; GET URL-encodes it into the query string, doubling any literal '%'
// to '%25' first so decodeQueryFrame can recover the exact original frame
// on the server side (spec §4.8's client semantics).
func (c *Client) send(ctx context.Context, httpMethod, frame string) (body string, status int, err error) {
	var httpReq *http.Request
	if httpMethod == http.MethodGet {
		fullURL := c.baseURL + "?" + encodeQueryFrame(frame)
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(frame))
		if err == nil {
			httpReq.Header.Set("Content-Type", "text/plain; charset=utf-8")
		}
	}
	if err != nil {
		return "", 0, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	return string(raw), resp.StatusCode, nil
}

// encodeQueryFrame doubles every literal '%' in frame to '%25' so the frame
// can be placed directly in a URL's query string without a general
// percent-encoding pass that would also escape the frame's ':' separators.
func encodeQueryFrame(frame string) string {
	return strings.ReplaceAll(frame, "%", "%25")
}

// decodeQueryFrame reverses encodeQueryFrame.
func decodeQueryFrame(query string) string {
	return strings.ReplaceAll(query, "%25", "%")
}

// parseResponseFrame parses "ok:format:json" / "error:message" /
// "bad_request:message" / "server_error:message" into either a decoded
// JSON value or an *ierrors.RPCError. The error's Status comes from the
// actual HTTP status code the server returned, not guessed from the frame
// prefix — a handler-rejected request ("error:...") carries whatever
// status the handler chose (e.g. 400), which the frame text alone can't
// distinguish from the framing-level "bad_request:"/"server_error:" cases.
func parseResponseFrame(status int, body string) (soia.JSONValue, soia.JSONFlavor, error) {
	parts := strings.SplitN(body, ":", 2)
	if len(parts) != 2 {
		return nil, soia.Dense, ierrors.RPC(http.StatusInternalServerError, "malformed response frame")
	}
	if parts[0] != "ok" {
		return nil, soia.Dense, ierrors.RPC(status, "%s", parts[1])
	}
	inner := strings.SplitN(parts[1], ":", 2)
	if len(inner) != 2 {
		return nil, soia.Dense, ierrors.RPC(http.StatusInternalServerError, "malformed ok frame")
	}
	flavor := soia.Dense
	if inner[0] == "readable" {
		flavor = soia.Readable
	}
	j, err := soia.ParseJSON([]byte(inner[1]))
	if err != nil {
		return nil, flavor, ierrors.RPC(http.StatusInternalServerError, "invalid response JSON: %v", err)
	}
	return j, flavor, nil
}
