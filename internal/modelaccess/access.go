// Package modelaccess supervises all reads and writes to the model store on
// behalf of a transform. It enforces the declared inputKinds/outputKinds of
// a context, validates writes against bound schemas, and records every
// access so a context can be reset (its previous inserts deleted) before
// each re-run. Grounded on original_source/fashion/modelAccess.py.
package modelaccess

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fashionforge/fashion/internal/ferrors"
	"github.com/fashionforge/fashion/internal/kinds"
	"github.com/fashionforge/fashion/internal/modelstore"
	"github.com/fashionforge/fashion/internal/schema"
)

// logUndeclared classifies and logs an attempt to read or write a kind the
// context didn't declare — taxonomy row UndeclaredAccess, always skip-and-log.
func (a *Access) logUndeclared(op, kind string) {
	ce := ferrors.NewUndeclaredAccess(op + " on undeclared kind").
		With("context", a.spec.Name).With("kind", kind).Build()
	slog.Error(ce.Error())
}

// logSchemaViolation classifies and logs a write rejected by a bound schema —
// taxonomy row SchemaValidation, skip-and-log.
func (a *Access) logSchemaViolation(kind string, cause error) {
	ce := ferrors.Wrap(cause, ferrors.SchemaValidation, "model failed bound schema").
		With("context", a.spec.Name).With("kind", kind).Build()
	slog.Error(ce.Error())
}

// ContextSpec describes the identity and kind declarations of one access
// context — typically a transform module or transform object.
type ContextSpec struct {
	Name         string
	TemplatePath []string
	InputKinds   []string
	OutputKinds  []string
	Parameters   map[string]any
}

type contextRecord struct {
	Name         string             `json:"name"`
	TemplatePath []string           `json:"templatePath"`
	InputKinds   []string           `json:"inputKinds"`
	OutputKinds  []string           `json:"outputKinds"`
	Insert       map[string][]int64 `json:"insert"`
	Update       map[string][]int64 `json:"update"`
	Remove       map[string][]int64 `json:"remove"`
	Search       map[string][]int64 `json:"search"`
}

// Access is a supervised handle onto the model store scoped to one context.
// Use Open to begin a run (which resets prior state for the same context
// name) and Close to persist this run's activity.
type Access struct {
	store   *modelstore.Store
	schemas *schema.Repository
	spec    ContextSpec

	inputSet  map[string]bool
	outputSet map[string]bool

	insertIDs map[string][]int64
	searchIDs map[string][]int64
}

// New constructs an Access for the given context. Call Open before using it.
func New(store *modelstore.Store, schemas *schema.Repository, spec ContextSpec) *Access {
	a := &Access{
		store:     store,
		schemas:   schemas,
		spec:      spec,
		inputSet:  toSet(spec.InputKinds),
		outputSet: toSet(spec.OutputKinds),
		insertIDs: make(map[string][]int64),
		searchIDs: make(map[string][]int64),
	}
	return a
}

func toSet(kinds []string) map[string]bool {
	s := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

// Open deletes any records this context name inserted on its previous run,
// giving the context an "at most once effect per run" guarantee.
func (a *Access) Open(ctx context.Context) error {
	rows, err := a.store.All(ctx, kinds.Context)
	if err != nil {
		return err
	}
	for _, row := range rows {
		var rec contextRecord
		if err := json.Unmarshal(row.Doc, &rec); err != nil {
			continue
		}
		if rec.Name != a.spec.Name {
			continue
		}
		for kind, ids := range rec.Insert {
			if err := a.store.RemoveIDs(ctx, kind, ids); err != nil {
				slog.Error("model access reset failed", "context", a.spec.Name, "kind", kind, "error", err)
			}
		}
		if err := a.store.RemoveIDs(ctx, kinds.Context, []int64{row.ID}); err != nil {
			slog.Error("model access context cleanup failed", "context", a.spec.Name, "error", err)
		}
	}
	return nil
}

// Close persists this run's insert/search activity as a context record.
func (a *Access) Close(ctx context.Context) error {
	rec := contextRecord{
		Name:         a.spec.Name,
		TemplatePath: a.spec.TemplatePath,
		InputKinds:   a.spec.InputKinds,
		OutputKinds:  a.spec.OutputKinds,
		Insert:       a.insertIDs,
		Search:       a.searchIDs,
	}
	doc, err := modelstore.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = a.store.Insert(ctx, kinds.Context, doc)
	return err
}

func recordAccess(store map[string][]int64, kind string, id int64) {
	store[kind] = append(store[kind], id)
}

// Insert writes model under kind, provided kind is declared as an output of
// this context and validates against any bound schema. Returns 0, false if
// the write was rejected (undeclared kind or schema violation) — the
// taxonomy's UndeclaredAccess/SchemaValidation rows, both skip-and-log, never
// raise.
func (a *Access) Insert(ctx context.Context, kind string, model any) (int64, bool) {
	if !a.outputSet[kind] {
		a.logUndeclared("insert", kind)
		return 0, false
	}
	doc, err := modelstore.Marshal(model)
	if err != nil {
		slog.Error("model marshal failed", "context", a.spec.Name, "kind", kind, "error", err)
		return 0, false
	}
	if err := a.schemas.Validate(kind, doc); err != nil {
		a.logSchemaViolation(kind, err)
		return 0, false
	}
	id, err := a.store.Insert(ctx, kind, doc)
	if err != nil {
		slog.Error("model insert failed", "context", a.spec.Name, "kind", kind, "error", err)
		return 0, false
	}
	recordAccess(a.insertIDs, kind, id)
	return id, true
}

// InsertTraced is Insert followed by a trace record linking the new model
// to the inputs that produced it.
func (a *Access) InsertTraced(ctx context.Context, kind string, model any, traceInputs []TraceInput) (int64, bool) {
	id, ok := a.Insert(ctx, kind, model)
	if ok && traceInputs != nil {
		a.Trace(ctx, kind, id, traceInputs)
	}
	return id, ok
}

// SetSingleton purges all prior records of kind and inserts model as the
// sole remaining one.
func (a *Access) SetSingleton(ctx context.Context, kind string, model any) (int64, bool) {
	if !a.outputSet[kind] {
		a.logUndeclared("setSingleton", kind)
		return 0, false
	}
	doc, err := modelstore.Marshal(model)
	if err != nil {
		slog.Error("model marshal failed", "context", a.spec.Name, "kind", kind, "error", err)
		return 0, false
	}
	if err := a.schemas.Validate(kind, doc); err != nil {
		a.logSchemaViolation(kind, err)
		return 0, false
	}
	if err := a.store.Purge(ctx, kind); err != nil {
		slog.Error("model purge failed", "context", a.spec.Name, "kind", kind, "error", err)
		return 0, false
	}
	id, err := a.store.Insert(ctx, kind, doc)
	if err != nil {
		slog.Error("model insert failed", "context", a.spec.Name, "kind", kind, "error", err)
		return 0, false
	}
	recordAccess(a.insertIDs, kind, id)
	return id, true
}

// GetSingleton returns the first (and expected only) record of kind.
func (a *Access) GetSingleton(ctx context.Context, kind string) ([]byte, int64, bool) {
	if !a.inputSet[kind] {
		a.logUndeclared("getSingleton", kind)
		return nil, 0, false
	}
	rows, err := a.store.All(ctx, kind)
	if err != nil || len(rows) == 0 {
		return nil, 0, false
	}
	recordAccess(a.searchIDs, kind, rows[0].ID)
	return rows[0].Doc, rows[0].ID, true
}

// GetByKind returns every record of kind.
func (a *Access) GetByKind(ctx context.Context, kind string) ([]modelstore.Row, bool) {
	if !a.inputSet[kind] {
		a.logUndeclared("getByKind", kind)
		return nil, false
	}
	rows, err := a.store.All(ctx, kind)
	if err != nil {
		slog.Error("model read failed", "context", a.spec.Name, "kind", kind, "error", err)
		return nil, false
	}
	for _, r := range rows {
		recordAccess(a.searchIDs, kind, r.ID)
	}
	return rows, true
}

// GetByID returns the record with id under kind.
func (a *Access) GetByID(ctx context.Context, kind string, id int64) ([]byte, bool) {
	if !a.inputSet[kind] {
		a.logUndeclared("getById", kind)
		return nil, false
	}
	doc, ok, err := a.store.Get(ctx, kind, id)
	if err != nil || !ok {
		return nil, false
	}
	recordAccess(a.searchIDs, kind, id)
	return doc, true
}

// Search returns every record of kind for which predicate returns true.
func (a *Access) Search(ctx context.Context, kind string, predicate func(doc []byte) bool) ([]modelstore.Row, bool) {
	rows, ok := a.GetByKind(ctx, kind)
	if !ok {
		return nil, false
	}
	if predicate == nil {
		return rows, true
	}
	var matched []modelstore.Row
	for _, r := range rows {
		if predicate(r.Doc) {
			matched = append(matched, r)
		}
	}
	return matched, true
}

// TraceInput is one (kind, id) pair consumed to produce a traced output.
type TraceInput struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

type traceModel struct {
	Kind   string       `json:"kind"`
	ID     int64        `json:"id"`
	Name   string       `json:"name"`
	Inputs []TraceInput `json:"inputs"`
}

// Trace records which input models produced a given output model.
func (a *Access) Trace(ctx context.Context, kind string, id int64, inputs []TraceInput) (int64, bool) {
	if !a.outputSet[kinds.Trace] {
		a.logUndeclared("trace", kinds.Trace)
		return 0, false
	}
	return a.Insert(ctx, kinds.Trace, traceModel{Kind: kind, ID: id, Name: a.spec.Name, Inputs: inputs})
}

type fileModel struct {
	ContextName string `json:"contextName"`
	Filename    string `json:"filename"`
}

// InputFile marks filename as an input consumed in this context.
func (a *Access) InputFile(ctx context.Context, filename string) (int64, bool) {
	return a.Insert(ctx, kinds.InputFile, fileModel{ContextName: a.spec.Name, Filename: filename})
}

// OutputFile marks filename as an output produced in this context.
func (a *Access) OutputFile(ctx context.Context, filename string) (int64, bool) {
	return a.Insert(ctx, kinds.OutputFile, fileModel{ContextName: a.spec.Name, Filename: filename})
}

// GenerateSpec describes one file to be rendered by the generator service.
type GenerateSpec struct {
	Model        any            `json:"model"`
	Template     string         `json:"template"`
	TargetFile   string         `json:"targetFile"`
	TemplatePath []string       `json:"templatePath"`
	TemplateDict map[string]any `json:"templateDict,omitempty"`
	Producer     string         `json:"producer"`
	ProjectRoot  string         `json:"projRoot,omitempty"`
	// Markdown, carried from the producing module configuration's
	// parameters["markdown"], tells the generator service to run the
	// rendered output through a Markdown-to-HTML post-processing pass
	// before writing it (SPEC_FULL.md §11).
	Markdown bool `json:"markdown,omitempty"`
}

// Generate writes a fashion.core.generate.jinja2.spec model describing one
// file the generator service should render.
func (a *Access) Generate(ctx context.Context, model any, template, targetFile string, templateDict map[string]any, projectRoot string, traceInputs []TraceInput) (int64, bool) {
	markdown, _ := a.spec.Parameters["markdown"].(bool)
	gm := GenerateSpec{
		Model:        model,
		Template:     template,
		TargetFile:   targetFile,
		TemplatePath: a.spec.TemplatePath,
		TemplateDict: templateDict,
		Producer:     a.spec.Name,
		ProjectRoot:  projectRoot,
		Markdown:     markdown,
	}
	return a.InsertTraced(ctx, kinds.GenerateTemplate, gm, traceInputs)
}
