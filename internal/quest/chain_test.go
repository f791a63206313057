package quest

import (
	"errors"
	"testing"

	"github.com/hyperengineering/fableforge/internal/types"
)

func quests(qs ...types.Quest) []types.Quest { return qs }

func q(id string, prereqs ...string) types.Quest {
	return types.Quest{ID: id, PrerequisiteIDs: prereqs}
}

func ids(chain []types.Quest) []string {
	out := make([]string, len(chain))
	for i, c := range chain {
		out[i] = c.ID
	}
	return out
}

func indexOf(list []string, id string) int {
	for i, v := range list {
		if v == id {
			return i
		}
	}
	return -1
}

func TestChain_LinearPrerequisites(t *testing.T) {
	// Given c requires b, which requires a
	all := quests(q("a"), q("b", "a"), q("c", "b"))

	chain, err := Chain(all, "c")
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}

	got := ids(chain)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chain[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChain_DiamondDependency(t *testing.T) {
	// d requires b and c, which both require a
	all := quests(q("a"), q("b", "a"), q("c", "a"), q("d", "b", "c"))

	chain, err := Chain(all, "d")
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}

	got := ids(chain)
	if len(got) != 4 {
		t.Fatalf("len(chain) = %d, want 4", len(got))
	}
	// a before b and c; b and c before d
	if indexOf(got, "a") > indexOf(got, "b") || indexOf(got, "a") > indexOf(got, "c") {
		t.Errorf("a must precede b and c: %v", got)
	}
	if indexOf(got, "d") != 3 {
		t.Errorf("d must come last: %v", got)
	}
}

func TestChain_CycleDetected(t *testing.T) {
	all := quests(q("a", "c"), q("b", "a"), q("c", "b"))

	_, err := Chain(all, "c")

	if !errors.Is(err, ErrCycle) {
		t.Fatalf("Chain() error = %v, want ErrCycle", err)
	}
}

func TestChain_SelfReferenceIsCycle(t *testing.T) {
	all := quests(q("a", "a"))

	_, err := Chain(all, "a")

	if !errors.Is(err, ErrCycle) {
		t.Fatalf("Chain() error = %v, want ErrCycle", err)
	}
}

func TestChain_NoPrerequisites(t *testing.T) {
	all := quests(q("a"), q("b"))

	chain, err := Chain(all, "a")
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	if len(chain) != 1 || chain[0].ID != "a" {
		t.Errorf("chain = %v, want just [a]", ids(chain))
	}
}

func TestChain_MissingPrerequisiteSkipped(t *testing.T) {
	// b references a prerequisite that was deleted
	all := quests(q("b", "ghost"))

	chain, err := Chain(all, "b")
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	if len(chain) != 1 || chain[0].ID != "b" {
		t.Errorf("chain = %v, want just [b]", ids(chain))
	}
}

func TestChain_UnknownQuest(t *testing.T) {
	all := quests(q("a"))

	if _, err := Chain(all, "missing"); err == nil {
		t.Fatal("Chain() error = nil, want error for unknown quest")
	}
}

func TestChain_ClosureExcludesUnrelatedQuests(t *testing.T) {
	all := quests(q("a"), q("b", "a"), q("x"), q("y", "x"))

	chain, err := Chain(all, "b")
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	got := ids(chain)
	if len(got) != 2 {
		t.Fatalf("chain = %v, want only a and b", got)
	}
	if indexOf(got, "x") != -1 || indexOf(got, "y") != -1 {
		t.Errorf("chain %v must not include unrelated quests", got)
	}
}
