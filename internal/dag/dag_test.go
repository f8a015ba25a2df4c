package dag

import (
	"errors"
	"strings"
	"testing"
)

func TestGraph_AddAliasAndDependency(t *testing.T) {
	g := New()

	g.AddAlias("a")
	g.AddAlias("b")
	g.AddAlias("c")

	if g.Size() != 3 {
		t.Errorf("expected 3 aliases, got %d", g.Size())
	}

	// b references a, c references b
	if err := g.AddDependency("b", "a"); err != nil {
		t.Errorf("failed to add dependency: %v", err)
	}
	if err := g.AddDependency("c", "b"); err != nil {
		t.Errorf("failed to add dependency: %v", err)
	}

	deps := g.Dependencies("c")
	if len(deps) != 1 || deps[0] != "b" {
		t.Errorf("expected c to depend on b, got %v", deps)
	}
}

func TestGraph_AddDependency_UnknownAlias(t *testing.T) {
	g := New()
	g.AddAlias("a")

	if err := g.AddDependency("a", "nonexistent"); err == nil {
		t.Error("expected error for unknown dependency")
	}
	if err := g.AddDependency("nonexistent", "a"); err == nil {
		t.Error("expected error for unknown dependent")
	}
}

func TestGraph_SelfReferenceIsCycle(t *testing.T) {
	g := New()
	g.AddAlias("a")

	err := g.AddDependency("a", "a")
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
}

func TestGraph_Sort_Order(t *testing.T) {
	g := New()
	for _, alias := range []string{"spl", "ep_pov", "rpl", "e_pov"} {
		g.AddAlias(alias)
	}
	// ep_pov <- e_pov, spl <- ep_pov, rpl <- spl
	mustDep(t, g, "ep_pov", "e_pov")
	mustDep(t, g, "spl", "ep_pov")
	mustDep(t, g, "rpl", "spl")

	order, err := g.Sort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 aliases in order, got %d", len(order))
	}

	pos := make(map[string]int, len(order))
	for i, alias := range order {
		pos[alias] = i
	}
	for _, pair := range [][2]string{{"e_pov", "ep_pov"}, {"ep_pov", "spl"}, {"spl", "rpl"}} {
		if pos[pair[0]] > pos[pair[1]] {
			t.Errorf("%s should come before %s, got order %v", pair[0], pair[1], order)
		}
	}
}

func TestGraph_Sort_Deterministic(t *testing.T) {
	build := func() *Graph {
		g := New()
		for _, alias := range []string{"z", "m", "a", "q"} {
			g.AddAlias(alias)
		}
		return g
	}

	first, err := build().Sort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		next, err := build().Sort()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Join(next, ",") != strings.Join(first, ",") {
			t.Fatalf("order not deterministic: %v vs %v", first, next)
		}
	}
}

func TestGraph_FindCycle(t *testing.T) {
	g := New()
	g.AddAlias("A")
	g.AddAlias("B")
	// A = B + 1, B = A + 1
	mustDep(t, g, "A", "B")
	mustDep(t, g, "B", "A")

	cycleErr := g.FindCycle()
	if cycleErr == nil {
		t.Fatal("expected a cycle")
	}
	msg := cycleErr.Error()
	if !strings.Contains(msg, "A") || !strings.Contains(msg, "B") {
		t.Errorf("cycle error should name both participants, got %q", msg)
	}

	if _, err := g.Sort(); err == nil {
		t.Error("Sort should fail on a cyclic graph")
	}
}

func TestGraph_FindCycle_NoCycle(t *testing.T) {
	g := New()
	g.AddAlias("a")
	g.AddAlias("b")
	g.AddAlias("c")
	mustDep(t, g, "b", "a")
	mustDep(t, g, "c", "a")
	mustDep(t, g, "c", "b")

	if err := g.FindCycle(); err != nil {
		t.Errorf("unexpected cycle: %v", err)
	}
}

func mustDep(t *testing.T, g *Graph, dependent, dependency string) {
	t.Helper()
	if err := g.AddDependency(dependent, dependency); err != nil {
		t.Fatalf("failed to add dependency %s -> %s: %v", dependency, dependent, err)
	}
}
