package schema

import "testing"

const greetingSchema = `{
	"type": "object",
	"properties": {"text": {"type": "string"}},
	"required": ["text"]
}`

func TestValidateWithoutBoundSchemaAlwaysPasses(t *testing.T) {
	r := NewRepository()
	if err := r.Validate("greeting", []byte(`{"anything":1}`)); err != nil {
		t.Fatalf("expected no error for unbound kind, got %v", err)
	}
}

func TestAddFromDescriptionThenValidate(t *testing.T) {
	r := NewRepository()
	if err := r.AddFromDescription("greeting", []byte(greetingSchema)); err != nil {
		t.Fatalf("AddFromDescription: %v", err)
	}
	if !r.Exists("greeting") {
		t.Fatalf("expected schema to be bound")
	}
	if err := r.Validate("greeting", []byte(`{"text":"hello"}`)); err != nil {
		t.Fatalf("expected valid document to pass, got %v", err)
	}
	if err := r.Validate("greeting", []byte(`{"nope":1}`)); err == nil {
		t.Fatalf("expected missing required field to fail validation")
	}
}

func TestAddFromDescriptionRejectsMalformedSchema(t *testing.T) {
	r := NewRepository()
	if err := r.AddFromDescription("broken", []byte(`{"type": "not-a-real-type"`)); err == nil {
		t.Fatalf("expected malformed schema document to fail to compile")
	}
	if r.Exists("broken") {
		t.Fatalf("expected malformed schema to remain unbound")
	}
}

func TestRemoveUnbindsSchema(t *testing.T) {
	r := NewRepository()
	if err := r.AddFromDescription("greeting", []byte(greetingSchema)); err != nil {
		t.Fatalf("AddFromDescription: %v", err)
	}
	r.Remove("greeting")
	if r.Exists("greeting") {
		t.Fatalf("expected schema to be unbound after Remove")
	}
	if err := r.Validate("greeting", []byte(`{"nope":1}`)); err != nil {
		t.Fatalf("expected removed schema to no longer constrain writes, got %v", err)
	}
}
