package planner

import "testing"

func TestPlanLinearChain(t *testing.T) {
	objs := []Object{
		{Name: "c", InputKinds: []string{"b.kind"}, OutputKinds: []string{"c.kind"}},
		{Name: "a", InputKinds: []string{"a.in"}, OutputKinds: []string{"b.kind"}},
	}
	plan := Plan(objs)
	if !plan.Valid {
		t.Fatalf("expected valid plan")
	}
	if len(plan.Order) != 2 || plan.Order[0] != "a" || plan.Order[1] != "c" {
		t.Fatalf("expected order [a c], got %v", plan.Order)
	}
	if len(plan.LeafInputs) != 1 || plan.LeafInputs[0] != "a.in" {
		t.Fatalf("expected leaf input a.in, got %v", plan.LeafInputs)
	}
}

func TestPlanCycleDetected(t *testing.T) {
	objs := []Object{
		{Name: "x", InputKinds: []string{"y.kind"}, OutputKinds: []string{"x.kind"}},
		{Name: "y", InputKinds: []string{"x.kind"}, OutputKinds: []string{"y.kind"}},
	}
	plan := Plan(objs)
	if plan.Valid {
		t.Fatalf("expected invalid plan due to cycle")
	}
	if len(plan.Order) != 0 {
		t.Fatalf("expected empty order, got %v", plan.Order)
	}
}

func TestPlanTieBreakLexicographic(t *testing.T) {
	objs := []Object{
		{Name: "zeta", InputKinds: []string{"leaf"}, OutputKinds: []string{"z.out"}},
		{Name: "alpha", InputKinds: []string{"leaf"}, OutputKinds: []string{"a.out"}},
		{Name: "mid", InputKinds: []string{"leaf"}, OutputKinds: []string{"m.out"}},
	}
	plan := Plan(objs)
	if !plan.Valid {
		t.Fatalf("expected valid plan")
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, n := range want {
		if plan.Order[i] != n {
			t.Fatalf("expected order %v, got %v", want, plan.Order)
		}
	}
}

func TestPlanDiamondDependency(t *testing.T) {
	objs := []Object{
		{Name: "root", InputKinds: []string{"seed"}, OutputKinds: []string{"mid.kind"}},
		{Name: "left", InputKinds: []string{"mid.kind"}, OutputKinds: []string{"left.kind"}},
		{Name: "right", InputKinds: []string{"mid.kind"}, OutputKinds: []string{"right.kind"}},
		{Name: "join", InputKinds: []string{"left.kind", "right.kind"}, OutputKinds: []string{"final.kind"}},
	}
	plan := Plan(objs)
	if !plan.Valid {
		t.Fatalf("expected valid plan")
	}
	pos := map[string]int{}
	for i, n := range plan.Order {
		pos[n] = i
	}
	if pos["join"] < pos["left"] || pos["join"] < pos["right"] {
		t.Fatalf("join scheduled before its producers: %v", plan.Order)
	}
	if pos["left"] < pos["root"] || pos["right"] < pos["root"] {
		t.Fatalf("left/right scheduled before root: %v", plan.Order)
	}
}
