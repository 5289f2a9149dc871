// Package schema holds the JSON-Schema documents bound to model kinds and
// validates documents against them before they are written to the model
// store. Grounded on original_source/fashion/schema.py's SchemaRepository.
package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Repository holds one compiled schema per kind.
type Repository struct {
	mu       sync.RWMutex
	schemas  map[string]*gojsonschema.Schema
	rawByKind map[string]json.RawMessage
}

// NewRepository constructs an empty schema repository.
func NewRepository() *Repository {
	return &Repository{
		schemas:   make(map[string]*gojsonschema.Schema),
		rawByKind: make(map[string]json.RawMessage),
	}
}

// AddFromDescription compiles and binds a JSON-Schema document to kind.
// A structurally invalid schema is logged and not bound — callers then
// validate with no schema present for that kind, which Validate treats as
// "no constraint, always valid" per the Python original's best-effort
// repository behavior.
func (r *Repository) AddFromDescription(kind string, schemaDoc json.RawMessage) error {
	loader := gojsonschema.NewBytesLoader(schemaDoc)
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		slog.Error("schema compile failed, kind left unbound", "kind", kind, "error", err)
		return fmt.Errorf("schema: compile kind %s: %w", kind, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[kind] = compiled
	r.rawByKind[kind] = schemaDoc
	return nil
}

// Remove unbinds any schema for kind.
func (r *Repository) Remove(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schemas, kind)
	delete(r.rawByKind, kind)
}

// Exists reports whether a schema is bound for kind.
func (r *Repository) Exists(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[kind]
	return ok
}

// Validate checks doc against the schema bound to kind. A kind with no
// bound schema always validates — write-time validation is opportunistic,
// not mandatory, matching the original's "validate if we can" design.
func (r *Repository) Validate(kind string, doc []byte) error {
	r.mu.RLock()
	compiled, ok := r.schemas[kind]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	result, err := compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema: validate kind %s: %w", kind, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return &ValidationError{Kind: kind, Errors: msgs}
	}
	return nil
}

// ValidationError reports why a document failed validation against kind's
// bound schema.
type ValidationError struct {
	Kind   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: kind %s failed validation: %v", e.Kind, e.Errors)
}
