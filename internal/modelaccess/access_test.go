package modelaccess

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fashionforge/fashion/internal/modelstore"
	"github.com/fashionforge/fashion/internal/schema"
)

func newFixture(t *testing.T) (*modelstore.Store, *schema.Repository) {
	t.Helper()
	store, err := modelstore.Open(":memory:")
	if err != nil {
		t.Fatalf("modelstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, schema.NewRepository()
}

func TestInsertRejectsUndeclaredOutputKind(t *testing.T) {
	store, schemas := newFixture(t)
	ctx := context.Background()
	a := New(store, schemas, ContextSpec{Name: "t", OutputKinds: nil})
	if err := a.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, ok := a.Insert(ctx, "foo", map[string]string{"a": "b"})
	if ok || id != 0 {
		t.Fatalf("expected undeclared outputKind write to be rejected, got id=%d ok=%v", id, ok)
	}
	rows, err := store.All(ctx, "foo")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no row written for undeclared kind, got %v", rows)
	}
}

func TestInsertRecordsIDInContextOnClose(t *testing.T) {
	store, schemas := newFixture(t)
	ctx := context.Background()
	a := New(store, schemas, ContextSpec{Name: "t", OutputKinds: []string{"greeting"}})
	if err := a.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, ok := a.Insert(ctx, "greeting", map[string]string{"text": "hi"})
	if !ok {
		t.Fatalf("expected declared outputKind write to succeed")
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, err := store.All(ctx, "fashion.core.context")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one context record, got %d", len(rows))
	}
	var rec struct {
		Name   string             `json:"name"`
		Insert map[string][]int64 `json:"insert"`
	}
	if err := json.Unmarshal(rows[0].Doc, &rec); err != nil {
		t.Fatalf("unmarshal context record: %v", err)
	}
	if rec.Name != "t" {
		t.Fatalf("expected context name t, got %s", rec.Name)
	}
	if len(rec.Insert["greeting"]) != 1 || rec.Insert["greeting"][0] != id {
		t.Fatalf("expected insert set to record id %d, got %v", id, rec.Insert)
	}
}

func TestReopenDeletesPriorInsertsBeforeNewWrites(t *testing.T) {
	store, schemas := newFixture(t)
	ctx := context.Background()

	// First run: insert two models under "greeting".
	first := New(store, schemas, ContextSpec{Name: "t", OutputKinds: []string{"greeting"}})
	if err := first.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	id1, _ := first.Insert(ctx, "greeting", map[string]string{"text": "a"})
	id2, _ := first.Insert(ctx, "greeting", map[string]string{"text": "b"})
	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows, _ := store.All(ctx, "greeting")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after first run, got %d", len(rows))
	}

	// Second run under the same context name: Open must clear id1/id2 first.
	second := New(store, schemas, ContextSpec{Name: "t", OutputKinds: []string{"greeting"}})
	if err := second.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	rows, _ = store.All(ctx, "greeting")
	if len(rows) != 0 {
		t.Fatalf("expected reopen to clear prior inserts before new writes, still have %v", rows)
	}
	for _, id := range []int64{id1, id2} {
		if _, ok, _ := store.Get(ctx, "greeting", id); ok {
			t.Fatalf("expected id %d to be removed on reopen", id)
		}
	}

	id3, ok := second.Insert(ctx, "greeting", map[string]string{"text": "c"})
	if !ok {
		t.Fatalf("expected new insert after reopen to succeed")
	}
	if err := second.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	rows, _ = store.All(ctx, "greeting")
	if len(rows) != 1 || rows[0].ID != id3 {
		t.Fatalf("expected exactly the fresh insert to remain, got %v", rows)
	}
}

func TestGetByKindRejectsUndeclaredInputKind(t *testing.T) {
	store, schemas := newFixture(t)
	ctx := context.Background()
	a := New(store, schemas, ContextSpec{Name: "t", InputKinds: nil})
	if err := a.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, ok := a.GetByKind(ctx, "greeting")
	if ok {
		t.Fatalf("expected read of undeclared inputKind to be rejected")
	}
}

func TestGetByKindReadsDeclaredInput(t *testing.T) {
	store, schemas := newFixture(t)
	ctx := context.Background()

	writer := New(store, schemas, ContextSpec{Name: "w", OutputKinds: []string{"greeting"}})
	writer.Open(ctx)
	writer.Insert(ctx, "greeting", map[string]string{"text": "hi"})
	writer.Close(ctx)

	reader := New(store, schemas, ContextSpec{Name: "r", InputKinds: []string{"greeting"}})
	if err := reader.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	rows, ok := reader.GetByKind(ctx, "greeting")
	if !ok {
		t.Fatalf("expected declared inputKind read to succeed")
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
}

func TestSetSingletonPurgesPriorRows(t *testing.T) {
	store, schemas := newFixture(t)
	ctx := context.Background()
	a := New(store, schemas, ContextSpec{Name: "t", OutputKinds: []string{"cfg"}})
	a.Open(ctx)
	a.Insert(ctx, "cfg", map[string]string{"v": "1"})
	a.Insert(ctx, "cfg", map[string]string{"v": "2"})

	id, ok := a.SetSingleton(ctx, "cfg", map[string]string{"v": "3"})
	if !ok {
		t.Fatalf("expected SetSingleton to succeed")
	}
	rows, err := store.All(ctx, "cfg")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != id {
		t.Fatalf("expected exactly the singleton row to remain, got %v", rows)
	}
}

func TestSchemaViolationRejectsInsert(t *testing.T) {
	store, schemas := newFixture(t)
	if err := schemas.AddFromDescription("greeting", []byte(`{
		"type": "object",
		"properties": {"text": {"type": "string"}},
		"required": ["text"]
	}`)); err != nil {
		t.Fatalf("AddFromDescription: %v", err)
	}

	ctx := context.Background()
	a := New(store, schemas, ContextSpec{Name: "t", OutputKinds: []string{"greeting"}})
	a.Open(ctx)
	_, ok := a.Insert(ctx, "greeting", map[string]string{"nope": "x"})
	if ok {
		t.Fatalf("expected schema violation to reject the write")
	}
	rows, _ := store.All(ctx, "greeting")
	if len(rows) != 0 {
		t.Fatalf("expected no row written on schema violation, got %v", rows)
	}
}

func TestTraceRequiresTraceOutputKind(t *testing.T) {
	store, schemas := newFixture(t)
	ctx := context.Background()
	a := New(store, schemas, ContextSpec{Name: "t", OutputKinds: []string{"greeting"}})
	a.Open(ctx)
	_, ok := a.Trace(ctx, "greeting", 1, []TraceInput{{Kind: "source", ID: 1}})
	if ok {
		t.Fatalf("expected trace without fashion.core.trace in outputKinds to be rejected")
	}
}
