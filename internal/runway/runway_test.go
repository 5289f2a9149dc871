package runway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fashionforge/fashion/internal/modelaccess"
	"github.com/fashionforge/fashion/internal/modelstore"
	"github.com/fashionforge/fashion/internal/warehouse"
	"github.com/fashionforge/fashion/internal/xformmodule"
)

type funcObject struct {
	name, version           string
	inputKinds, outputKinds []string
	fn                      func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error
}

func (f *funcObject) Name() string           { return f.name }
func (f *funcObject) Version() string        { return f.version }
func (f *funcObject) InputKinds() []string   { return f.inputKinds }
func (f *funcObject) OutputKinds() []string  { return f.outputKinds }
func (f *funcObject) TemplatePath() []string { return nil }
func (f *funcObject) Execute(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
	return f.fn(ctx, access, run)
}

func newTestRunway(t *testing.T) *Runway {
	t.Helper()
	store, err := modelstore.Open(":memory:")
	if err != nil {
		t.Fatalf("modelstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	wh := warehouse.New(t.TempDir(), nil)
	return New(store, wh)
}

func TestExecuteRunsObjectsInPlannedOrder(t *testing.T) {
	r := newTestRunway(t)
	var order []string

	a := &funcObject{
		name: "a", version: "1.0.0",
		inputKinds: nil, outputKinds: []string{"b.kind"},
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			order = append(order, "a")
			access.Insert(ctx, "b.kind", map[string]string{"v": "1"})
			return nil
		},
	}
	b := &funcObject{
		name: "b", version: "1.0.0",
		inputKinds: []string{"b.kind"}, outputKinds: []string{"c.kind"},
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			order = append(order, "b")
			return nil
		},
	}
	r.Registry.AddXformObject(b)
	r.Registry.AddXformObject(a)

	r.BuildPlan()
	if !r.Plan.Valid {
		t.Fatalf("expected a valid plan")
	}
	ctx := context.Background()
	r.Execute(ctx, nil)

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected a before b, got %v", order)
	}
}

func TestExecuteCycleRunsEmptyPrefix(t *testing.T) {
	r := newTestRunway(t)
	ran := false
	x := &funcObject{
		name: "x", version: "1.0.0",
		inputKinds: []string{"y.kind"}, outputKinds: []string{"x.kind"},
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			ran = true
			return nil
		},
	}
	y := &funcObject{
		name: "y", version: "1.0.0",
		inputKinds: []string{"x.kind"}, outputKinds: []string{"y.kind"},
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			ran = true
			return nil
		},
	}
	r.Registry.AddXformObject(x)
	r.Registry.AddXformObject(y)

	r.BuildPlan()
	if r.Plan.Valid {
		t.Fatalf("expected a two-node cycle to invalidate the plan")
	}
	if len(r.Plan.Order) != 0 {
		t.Fatalf("expected empty scheduled order, got %v", r.Plan.Order)
	}

	r.Execute(context.Background(), nil)
	if ran {
		t.Fatalf("expected executor to run nothing from an empty plan")
	}
}

func TestExecuteUndeclaredWriteIsSkippedNotFatal(t *testing.T) {
	r := newTestRunway(t)
	insertedID := int64(0)
	insertedOK := true
	obj := &funcObject{
		name: "bad", version: "1.0.0",
		inputKinds: nil, outputKinds: nil,
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			insertedID, insertedOK = access.Insert(ctx, "foo", map[string]string{"a": "b"})
			return nil
		},
	}
	r.Registry.AddXformObject(obj)
	r.BuildPlan()
	r.Execute(context.Background(), nil)

	if insertedOK {
		t.Fatalf("expected insert to an undeclared outputKind to be rejected")
	}
	if insertedID != 0 {
		t.Fatalf("expected no id assigned on rejected write, got %d", insertedID)
	}
	rows, err := r.Store.All(context.Background(), "foo")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no row written for undeclared kind, got %v", rows)
	}
}

func TestExecuteTransformFailureContinuesToNextObject(t *testing.T) {
	r := newTestRunway(t)
	secondRan := false
	failing := &funcObject{
		name: "failing", version: "1.0.0",
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			panic("boom")
		},
	}
	second := &funcObject{
		name: "zz-second", version: "1.0.0",
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			secondRan = true
			return nil
		},
	}
	r.Registry.AddXformObject(failing)
	r.Registry.AddXformObject(second)
	r.BuildPlan()
	r.Execute(context.Background(), nil)

	if !secondRan {
		t.Fatalf("expected execution to continue to the next scheduled object after a panic")
	}
}

func TestExecuteReentryResetsPriorInserts(t *testing.T) {
	r := newTestRunway(t)
	runCount := 0
	obj := &funcObject{
		name: "repeatable", version: "1.0.0",
		outputKinds: []string{"k"},
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			runCount++
			access.Insert(ctx, "k", map[string]int{"n": runCount})
			return nil
		},
	}
	r.Registry.AddXformObject(obj)
	r.BuildPlan()

	ctx := context.Background()
	r.Execute(ctx, nil)
	rows, _ := r.Store.All(ctx, "k")
	if len(rows) != 1 {
		t.Fatalf("expected one row after first run, got %d", len(rows))
	}
	firstID := rows[0].ID

	r.Execute(ctx, nil)
	rows, _ = r.Store.All(ctx, "k")
	if len(rows) != 1 {
		t.Fatalf("expected re-run to leave exactly one row (old one cleared), got %d", len(rows))
	}
	if rows[0].ID == firstID {
		t.Fatalf("expected the re-run to insert a fresh row, not reuse the old id")
	}
}

func TestOnXformExecutedFiresForSuccessAndFailure(t *testing.T) {
	r := newTestRunway(t)
	ok := &funcObject{
		name: "ok", version: "1.0.0",
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			return nil
		},
	}
	bad := &funcObject{
		name: "zz-bad", version: "1.0.0",
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			return errors.New("boom")
		},
	}
	r.Registry.AddXformObject(ok)
	r.Registry.AddXformObject(bad)
	r.BuildPlan()

	type call struct {
		name string
		err  error
	}
	var calls []call
	r.OnXformExecuted = func(name string, d time.Duration, err error) {
		if d < 0 {
			t.Fatalf("expected a non-negative duration, got %v", d)
		}
		calls = append(calls, call{name, err})
	}
	r.Execute(context.Background(), nil)

	if len(calls) != 2 {
		t.Fatalf("expected the hook to fire once per executed object, got %d", len(calls))
	}
	if calls[0].name != "ok" || calls[0].err != nil {
		t.Fatalf("expected ok's call to report no error, got %+v", calls[0])
	}
	if calls[1].name != "zz-bad" || calls[1].err == nil {
		t.Fatalf("expected zz-bad's call to carry its error, got %+v", calls[1])
	}
}

func TestOnXformExecutedFiresWithErrorOnPanic(t *testing.T) {
	r := newTestRunway(t)
	failing := &funcObject{
		name: "failing", version: "1.0.0",
		fn: func(ctx context.Context, access *modelaccess.Access, run xformmodule.RunArgs) error {
			panic("boom")
		},
	}
	r.Registry.AddXformObject(failing)
	r.BuildPlan()

	var gotErr error
	fired := false
	r.OnXformExecuted = func(name string, d time.Duration, err error) {
		fired = true
		gotErr = err
	}
	r.Execute(context.Background(), nil)

	if !fired {
		t.Fatalf("expected the hook to fire even when the object panics")
	}
	if gotErr == nil {
		t.Fatalf("expected a non-nil error recorded for the panic")
	}
}
