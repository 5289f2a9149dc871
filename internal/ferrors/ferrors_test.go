package ferrors

import (
	"errors"
	"testing"
)

func TestBuildProducesClassifiedError(t *testing.T) {
	err := New(UndeclaredAccess, "insert on undeclared kind").With("kind", "foo").Build()
	if err.Category() != UndeclaredAccess {
		t.Fatalf("expected category %s, got %s", UndeclaredAccess, err.Category())
	}
	if err.Policy() != PolicySkipAndLog {
		t.Fatalf("expected policy %s, got %s", PolicySkipAndLog, err.Policy())
	}
	if v, ok := err.Context().Get("kind"); !ok || v != "foo" {
		t.Fatalf("expected context kind=foo, got %v ok=%v", v, ok)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, SchemaValidation, "model failed schema").Build()
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to unwrap to cause")
	}
}

func TestMissingProjectIsFatal(t *testing.T) {
	if !MissingProject.IsFatal() {
		t.Fatalf("expected MissingProject to be a fatal category")
	}
	if TransformFailure.IsFatal() {
		t.Fatalf("expected TransformFailure to not be fatal")
	}
}

func TestPolicyForUnknownCategoryDefaultsFatal(t *testing.T) {
	if PolicyFor(Category("made-up")) != PolicyFatal {
		t.Fatalf("expected unknown category to default to fatal policy")
	}
}

func TestIsMatchesSameCategoryAndMessage(t *testing.T) {
	a := NewUndeclaredAccess("x").Build()
	b := NewUndeclaredAccess("x").Build()
	c := NewUndeclaredAccess("y").Build()
	if !errors.Is(a, b) {
		t.Fatalf("expected equal category/message classified errors to match")
	}
	if errors.Is(a, c) {
		t.Fatalf("expected different message to not match")
	}
}
