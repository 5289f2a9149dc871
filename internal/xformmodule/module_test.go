package xformmodule

import (
	"errors"
	"testing"

	"github.com/fashionforge/fashion/internal/registry"
)

func TestMatchTagsNilRequestMatchesEverything(t *testing.T) {
	if !MatchTags(nil, []string{"gen", "docs"}) {
		t.Fatalf("expected nil requested tags to match any module tags")
	}
	if !MatchTags(nil, nil) {
		t.Fatalf("expected nil requested tags to match an untagged module")
	}
}

func TestMatchTagsEmptyRequestMatchesOnlyEmptyModule(t *testing.T) {
	if !MatchTags([]string{}, []string{}) {
		t.Fatalf("expected empty request to match empty module tags")
	}
	if MatchTags([]string{}, []string{"gen"}) {
		t.Fatalf("expected empty request not to match a tagged module")
	}
}

func TestMatchTagsSubset(t *testing.T) {
	if !MatchTags([]string{"gen"}, []string{"gen", "docs"}) {
		t.Fatalf("expected requested subset of module tags to match")
	}
	if MatchTags([]string{"gen", "missing"}, []string{"gen", "docs"}) {
		t.Fatalf("expected requested tag not present in module tags to fail")
	}
}

func TestRegisterFactoryThenLoadAndInit(t *testing.T) {
	const factoryName = "test.factory.one"
	var gotTags []string
	RegisterFactory(factoryName, func(cfg Config, reg *registry.Registry, requestedTags []string) error {
		gotTags = requestedTags
		return nil
	})

	m := New(Descriptor{ModuleName: "one", FactoryKey: factoryName})
	if !m.LoadCode() {
		t.Fatalf("expected LoadCode to succeed for a registered factory")
	}
	ran := m.Init(Config{ModuleName: "one"}, registry.New(), []string{"gen"})
	if !ran {
		t.Fatalf("expected Init to run")
	}
	if len(gotTags) != 1 || gotTags[0] != "gen" {
		t.Fatalf("expected requested tags passed through, got %v", gotTags)
	}
}

func TestLoadCodeFailsForUnknownFactory(t *testing.T) {
	m := New(Descriptor{ModuleName: "ghost", FactoryKey: "does.not.exist"})
	if m.LoadCode() {
		t.Fatalf("expected LoadCode to fail for an unregistered factory key")
	}
}

func TestLoadCodeFailsWithNoFilenameOrFactory(t *testing.T) {
	m := New(Descriptor{ModuleName: "bare"})
	if m.LoadCode() {
		t.Fatalf("expected LoadCode to fail with neither filename nor factory key")
	}
}

func TestInitSkippedWhenTagsDontMatch(t *testing.T) {
	const factoryName = "test.factory.tagged"
	called := false
	RegisterFactory(factoryName, func(cfg Config, reg *registry.Registry, requestedTags []string) error {
		called = true
		return nil
	})
	m := New(Descriptor{ModuleName: "tagged", FactoryKey: factoryName})
	m.LoadCode()
	ran := m.Init(Config{ModuleName: "tagged", Tags: []string{"docs"}}, registry.New(), []string{"gen"})
	if ran {
		t.Fatalf("expected Init to skip when requested tags aren't a subset of module tags")
	}
	if called {
		t.Fatalf("expected factory function not to be invoked when tags don't match")
	}
}

func TestInitReturnsFalseOnError(t *testing.T) {
	const factoryName = "test.factory.erroring"
	RegisterFactory(factoryName, func(cfg Config, reg *registry.Registry, requestedTags []string) error {
		return errors.New("boom")
	})
	m := New(Descriptor{ModuleName: "erroring", FactoryKey: factoryName})
	m.LoadCode()
	if m.Init(Config{ModuleName: "erroring"}, registry.New(), nil) {
		t.Fatalf("expected Init to report failure when the factory errors")
	}
}

func TestInitContainsPanic(t *testing.T) {
	const factoryName = "test.factory.panicking"
	RegisterFactory(factoryName, func(cfg Config, reg *registry.Registry, requestedTags []string) error {
		panic("boom")
	})
	m := New(Descriptor{ModuleName: "panicking", FactoryKey: factoryName})
	m.LoadCode()
	if m.Init(Config{ModuleName: "panicking"}, registry.New(), nil) {
		t.Fatalf("expected Init to report failure when the factory panics")
	}
}

func TestInitFailsWhenUnloaded(t *testing.T) {
	m := New(Descriptor{ModuleName: "never-loaded", FactoryKey: "whatever"})
	if m.Init(Config{ModuleName: "never-loaded"}, registry.New(), nil) {
		t.Fatalf("expected Init to fail for an unloaded module")
	}
}
