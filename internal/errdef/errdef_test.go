package errdef

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestWrapKeepsCodeAndCause(t *testing.T) {
	err := Wrap(CodePersistence, io.ErrUnexpectedEOF, "write %s", "history")
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got != "write history: unexpected EOF" {
		t.Fatalf("unexpected message %q", got)
	}
	if CodeOf(err) != CodePersistence {
		t.Fatalf("expected persistence code, got %q", CodeOf(err))
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected cause to be reachable")
	}
	if Message(err) != "write history" {
		t.Fatalf("unexpected outer message %q", Message(err))
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(CodeHTTP, nil, "noop") != nil {
		t.Fatalf("expected nil for nil cause")
	}
}

func TestIsWalksNestedCodes(t *testing.T) {
	inner := New(CodeValidation, "name is required")
	outer := fmt.Errorf("save: %w", Wrap(CodePersistence, inner, "persist"))
	if !Is(outer, CodeValidation) {
		t.Fatalf("expected nested validation code to match")
	}
	if !Is(outer, CodePersistence) {
		t.Fatalf("expected outer persistence code to match")
	}
	if Is(outer, CodeHTTP) {
		t.Fatalf("did not expect http code")
	}
	if !errors.Is(outer, &Error{Code: CodePersistence}) {
		t.Fatalf("expected errors.Is to match by code")
	}
}
