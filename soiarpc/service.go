// Package soiarpc implements the RPC envelope spec §4.8 describes on top
// of the soia codecs: a Service dispatches named, numbered methods over a
// single HTTP endpoint, and a Client calls them. The method-number
// derivation, wire framing and method-listing/explorer surface are
// grounded on the teacher's grpc-style single-endpoint dispatch shape
// (reflect/protoregistry's name->descriptor table, generalized here to
// name->handler) plus the textproto-ish colon-delimited framing used
// throughout the example pack's lightweight RPC layers.
package soiarpc

import (
	"context"
	stderrors "errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/soiago/soia/internal/descriptor"
	ierrors "github.com/soiago/soia/internal/errors"
	"github.com/soiago/soia/soia"
	"go.uber.org/zap"
)

// MethodNumber derives a method's wire number from its name via FNV-1a.
// This is the one deliberately stdlib-only ambient choice in this module
// (see DESIGN.md): every other identifier in the engine is assigned
// explicitly by a schema author (struct/enum field numbers), but an RPC
// method name has no such author-assigned number to reuse, and nothing in
// the teacher or the rest of the example pack hashes short strings into a
// dispatch key, so there is no third-party convention to ground an
// alternative on.
func MethodNumber(name string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int32(h.Sum32() & 0x7fffffff)
}

type registeredMethod struct {
	name    string
	number  int32
	reqDesc *descriptor.Descriptor
	resDesc *descriptor.Descriptor
	invoke  func(ctx context.Context, j soia.JSONValue, flavor soia.JSONFlavor) (soia.JSONValue, error)
}

// Service dispatches a fixed set of named, numbered methods over a single
// HTTP handler (spec §4.8).
type Service struct {
	byName   map[string]*registeredMethod
	byNumber map[int32]*registeredMethod
	logger   *zap.Logger
}

// ServiceOption configures a Service at construction time, the
// functional-options idiom the ambient config layer uses throughout this
// module (spec §7).
type ServiceOption func(*Service)

// WithLogger attaches a structured logger for handler failures (errors that
// are not an RPCError). Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) ServiceOption { return func(s *Service) { s.logger = l } }

// NewService constructs an empty Service ready for RegisterMethod calls.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		byName:   map[string]*registeredMethod{},
		byNumber: map[int32]*registeredMethod{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterMethod adds a method identified by name (and, derived from it
// unless overridden, number) whose request and response are described by
// the given serializers. Passing number 0 derives it via MethodNumber.
func RegisterMethod[Req any, Res any](
	svc *Service,
	name string,
	number int32,
	reqSer soia.Serializer[Req],
	resSer soia.Serializer[Res],
	handler func(ctx context.Context, req Req) (Res, error),
) error {
	if number == 0 {
		number = MethodNumber(name)
	}
	if _, dup := svc.byName[name]; dup {
		return ierrors.Registration("method %q already registered", name)
	}
	if _, dup := svc.byNumber[number]; dup {
		return ierrors.Registration("method number %d already registered", number)
	}
	m := &registeredMethod{
		name:    name,
		number:  number,
		reqDesc: reqSer.TypeDescriptor(),
		resDesc: resSer.TypeDescriptor(),
		invoke: func(ctx context.Context, j soia.JSONValue, flavor soia.JSONFlavor) (soia.JSONValue, error) {
			req, err := reqSer.FromJSON(j, false)
			if err != nil {
				return nil, ierrors.RPC(http.StatusBadRequest, "invalid request for method %q: %v", name, err)
			}
			res, err := handler(ctx, req)
			if err != nil {
				return nil, err
			}
			return resSer.ToJSON(res, flavor), nil
		},
	}
	svc.byName[name] = m
	svc.byNumber[number] = m
	return nil
}

// HandleRequest dispatches one request body (spec §4.8) and returns the
// HTTP status, content type and response body the caller should write out.
// A body of "" or "list" returns the JSON method listing; "restudio"
// returns the fixed explorer page; anything else is parsed as the framed
// form "name:number:format:json". number may be empty; when present it
// must match the registered method's derived/assigned number, catching a
// stale client that cached a method descriptor from before a rename.
func (s *Service) HandleRequest(ctx context.Context, body string) (status int, contentType string, respBody string) {
	switch body {
	case "", "list":
		return http.StatusOK, "application/json; charset=utf-8", s.methodListJSON()
	case "restudio":
		return http.StatusOK, "text/html; charset=utf-8", restudioHTML
	}

	const plain = "text/plain; charset=utf-8"

	parts := strings.SplitN(body, ":", 4)
	if len(parts) != 4 {
		return http.StatusBadRequest, plain, "bad_request:malformed request frame"
	}
	name, numStr, format, payload := parts[0], parts[1], parts[2], parts[3]

	m, ok := s.byName[name]
	if !ok {
		return http.StatusBadRequest, plain, fmt.Sprintf("bad_request:unknown method %q", name)
	}
	if numStr != "" {
		n, err := strconv.ParseInt(numStr, 10, 32)
		if err != nil || int32(n) != m.number {
			return http.StatusBadRequest, plain, "bad_request:method number mismatch"
		}
	}

	flavor := soia.Dense
	formatCode := "dense"
	if format == "readable" {
		flavor = soia.Readable
		formatCode = "readable"
	}

	j, err := soia.ParseJSON([]byte(payload))
	if err != nil {
		return http.StatusBadRequest, plain, fmt.Sprintf("bad_request:invalid JSON payload: %v", err)
	}

	respJ, err := m.invoke(ctx, j, flavor)
	if err != nil {
		var rpcErr *ierrors.RPCError
		if stderrors.As(err, &rpcErr) {
			return rpcErr.Status, plain, fmt.Sprintf("error:%s", rpcErr.Err.Error())
		}
		s.logger.Error("soiarpc: handler failed", zap.String("method", name), zap.Error(err))
		return http.StatusInternalServerError, plain, "server_error:internal error"
	}

	encoded := string(soia.MarshalJSONValue(respJ, flavor))
	return http.StatusOK, plain, fmt.Sprintf("ok:%s:%s", formatCode, encoded)
}

// ServeHTTP exposes the service over HTTP. POST bodies carry the request
// body verbatim; GET requests carry it URL-encoded into the query string
// (spec §4.8's client semantics), doubling any literal '%' to '%25', which
// decodeQueryFrame reverses.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body string
	if r.Method == http.MethodGet {
		body = decodeQueryFrame(r.URL.RawQuery)
	} else {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "soiarpc: cannot read request body", http.StatusBadRequest)
			return
		}
		body = string(raw)
	}

	status, contentType, resp := s.HandleRequest(r.Context(), body)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp)
}

// methodListJSON renders the {"methods":[{method, number, request,
// response}]} document spec §4.8/§6 requires, where request/response are
// each method's full asJson() type descriptor (transitive record closure
// included), grounded on the teacher's reflect/protoregistry self-describing
// service listing generalized from a `.proto` file's message set to this
// module's own descriptor.Descriptor tree.
func (s *Service) methodListJSON() string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	methods := make([]any, 0, len(names))
	for _, name := range names {
		m := s.byName[name]
		methods = append(methods, map[string]any{
			"method":   m.name,
			"number":   m.number,
			"request":  m.reqDesc.AsJSON(),
			"response": m.resDesc.AsJSON(),
		})
	}
	return string(soia.MarshalJSONValue(map[string]any{"methods": methods}, soia.Dense))
}

const restudioHTML = `<!DOCTYPE html>
<html>
<head><title>soia RPC explorer</title></head>
<body>
<h1>soia RPC explorer</h1>
<p>POST a "name:number:format:json" frame to this endpoint, or send an
empty/"list" body for the method table.</p>
</body>
</html>
`
