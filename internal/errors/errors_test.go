package errors

import (
	stderrors "errors"
	"testing"
)

func TestDecodeErrorUnwraps(t *testing.T) {
	inner := stderrors.New("truncated")
	err := WrapDecode("string", inner)
	if !stderrors.Is(err, inner) {
		t.Fatal("expected Unwrap to expose the inner error")
	}
	var de *DecodeError
	if !stderrors.As(err, &de) {
		t.Fatal("expected errors.As to match *DecodeError")
	}
}

func TestRegistrationErrorMessage(t *testing.T) {
	err := Registration("module %q already registered", "examplepb")
	want := `soia: registration: module "examplepb" already registered`
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestRPCErrorCarriesStatus(t *testing.T) {
	err := RPC(400, "bad frame")
	if err.Status != 400 {
		t.Fatalf("got status %d, want 400", err.Status)
	}
	var rpcErr *RPCError
	if !stderrors.As(error(err), &rpcErr) {
		t.Fatal("expected errors.As to match *RPCError")
	}
}
