package soiarpc

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ierrors "github.com/soiago/soia/internal/errors"
	"github.com/soiago/soia/soia"
	"github.com/stretchr/testify/require"
)

func newEchoService(t *testing.T) *Service {
	t.Helper()
	svc := NewService()
	err := RegisterMethod(svc, "echo", 0, soia.Int32Serializer(), soia.Int32Serializer(),
		func(ctx context.Context, req int32) (int32, error) { return req * 2, nil })
	if err != nil {
		t.Fatalf("RegisterMethod: %v", err)
	}
	err = RegisterMethod(svc, "fail", 0, soia.Int32Serializer(), soia.Int32Serializer(),
		func(ctx context.Context, req int32) (int32, error) {
			return 0, ierrors.RPC(http.StatusBadRequest, "rejected %d", req)
		})
	if err != nil {
		t.Fatalf("RegisterMethod: %v", err)
	}
	err = RegisterMethod(svc, "panic_handler", 0, soia.Int32Serializer(), soia.Int32Serializer(),
		func(ctx context.Context, req int32) (int32, error) {
			return 0, fmt.Errorf("boom")
		})
	if err != nil {
		t.Fatalf("RegisterMethod: %v", err)
	}
	return svc
}

func TestHandleRequestOK(t *testing.T) {
	svc := newEchoService(t)
	number := MethodNumber("echo")
	frame := fmt.Sprintf("echo:%d:dense:21", number)

	status, contentType, resp := svc.HandleRequest(context.Background(), frame)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200, resp=%q", status, resp)
	}
	if contentType != "text/plain; charset=utf-8" {
		t.Fatalf("contentType = %q", contentType)
	}
	if !strings.HasPrefix(resp, "ok:dense:42") {
		t.Fatalf("resp = %q, want ok:dense:42", resp)
	}
}

func TestHandleRequestBadRequestFromHandler(t *testing.T) {
	svc := newEchoService(t)
	frame := fmt.Sprintf("fail::dense:5")

	status, _, resp := svc.HandleRequest(context.Background(), frame)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, resp=%q", status, resp)
	}
	if !strings.HasPrefix(resp, "error:") {
		t.Fatalf("resp = %q, want an error: frame", resp)
	}
}

func TestHandleRequestServerErrorFromHandler(t *testing.T) {
	svc := newEchoService(t)
	frame := "panic_handler::dense:5"

	status, _, resp := svc.HandleRequest(context.Background(), frame)
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500, resp=%q", status, resp)
	}
	if !strings.HasPrefix(resp, "server_error:") {
		t.Fatalf("resp = %q, want a server_error: frame", resp)
	}
}

func TestHandleRequestUnknownMethod(t *testing.T) {
	svc := newEchoService(t)
	status, _, resp := svc.HandleRequest(context.Background(), "nope::dense:1")
	if status != http.StatusBadRequest || !strings.HasPrefix(resp, "bad_request:") {
		t.Fatalf("resp=%q status=%d", resp, status)
	}
}

func TestHandleRequestMalformedFrame(t *testing.T) {
	svc := newEchoService(t)
	status, _, resp := svc.HandleRequest(context.Background(), "not-enough-parts")
	if status != http.StatusBadRequest || !strings.HasPrefix(resp, "bad_request:") {
		t.Fatalf("resp=%q status=%d", resp, status)
	}
}

func TestHandleRequestMethodNumberMismatch(t *testing.T) {
	svc := newEchoService(t)
	frame := "echo:999999:dense:1"
	status, _, resp := svc.HandleRequest(context.Background(), frame)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, resp=%q", status, resp)
	}
}

func TestHandleRequestMethodListDescribesRequestAndResponse(t *testing.T) {
	svc := newEchoService(t)
	for _, body := range []string{"", "list"} {
		status, contentType, resp := svc.HandleRequest(context.Background(), body)
		if status != http.StatusOK {
			t.Fatalf("body=%q status = %d, want 200", body, status)
		}
		if contentType != "application/json; charset=utf-8" {
			t.Fatalf("body=%q contentType = %q", body, contentType)
		}
		j, err := soia.ParseJSON([]byte(resp))
		if err != nil {
			t.Fatalf("ParseJSON: %v", err)
		}
		doc, ok := j.(map[string]any)
		if !ok {
			t.Fatalf("expected a JSON object, got %T", j)
		}
		methods, ok := doc["methods"].([]any)
		if !ok || len(methods) != 3 {
			t.Fatalf("expected 3 methods, got %+v", doc["methods"])
		}
		for _, raw := range methods {
			m, ok := raw.(map[string]any)
			if !ok {
				t.Fatalf("expected a method object, got %T", raw)
			}
			if _, ok := m["request"].(map[string]any); !ok {
				t.Fatalf("method %v missing its request type descriptor", m["method"])
			}
			if _, ok := m["response"].(map[string]any); !ok {
				t.Fatalf("method %v missing its response type descriptor", m["method"])
			}
		}
	}
}

func TestHandleRequestRestudioExplorer(t *testing.T) {
	svc := newEchoService(t)
	status, contentType, resp := svc.HandleRequest(context.Background(), "restudio")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if contentType != "text/html; charset=utf-8" {
		t.Fatalf("contentType = %q", contentType)
	}
	if !strings.Contains(resp, "<html>") {
		t.Fatalf("resp = %q, want an HTML document", resp)
	}
}

func TestServeHTTPMethodList(t *testing.T) {
	svc := newEchoService(t)
	srv := httptest.NewServer(svc)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content-type = %q", ct)
	}
}

func TestClientCallRoundTrip(t *testing.T) {
	svc := newEchoService(t)
	srv := httptest.NewServer(svc)
	defer srv.Close()

	client := NewClient(srv.URL)
	res, err := Call[int32, int32](context.Background(), client, "echo", 0, soia.Int32Serializer(), soia.Int32Serializer(), 10)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res != 20 {
		t.Fatalf("res = %d, want 20", res)
	}
}

func TestClientCallRoundTripOverGET(t *testing.T) {
	svc := newEchoService(t)
	srv := httptest.NewServer(svc)
	defer srv.Close()

	client := NewClient(srv.URL)
	res, err := Call[int32, int32](context.Background(), client, "echo", 0, soia.Int32Serializer(), soia.Int32Serializer(), 11, WithHTTPMethod(http.MethodGet))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res != 22 {
		t.Fatalf("res = %d, want 22", res)
	}
}

func TestClientCallPropagatesBadRequest(t *testing.T) {
	svc := newEchoService(t)
	srv := httptest.NewServer(svc)
	defer srv.Close()

	client := NewClient(srv.URL, WithMaxAttempts(1))
	_, err := Call[int32, int32](context.Background(), client, "fail", 0, soia.Int32Serializer(), soia.Int32Serializer(), 1)
	require.Error(t, err)

	var rpcErr *ierrors.RPCError
	require.True(t, stderrors.As(err, &rpcErr), "expected an *ierrors.RPCError, got %v (%T)", err, err)
	require.Equal(t, http.StatusBadRequest, rpcErr.Status)
}

func TestDuplicateMethodRegistrationRejected(t *testing.T) {
	svc := NewService()
	noop := func(ctx context.Context, req int32) (int32, error) { return req, nil }
	if err := RegisterMethod(svc, "dup", 0, soia.Int32Serializer(), soia.Int32Serializer(), noop); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := RegisterMethod(svc, "dup", 0, soia.Int32Serializer(), soia.Int32Serializer(), noop); err == nil {
		t.Fatal("expected the duplicate registration to be rejected")
	}
}

func TestMethodNumberIsStableAndDeterministic(t *testing.T) {
	a := MethodNumber("echo")
	b := MethodNumber("echo")
	if a != b {
		t.Fatalf("MethodNumber should be deterministic: %d != %d", a, b)
	}
	if a < 0 {
		t.Fatalf("MethodNumber should be non-negative, got %d", a)
	}
}
