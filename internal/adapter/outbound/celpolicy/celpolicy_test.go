package celpolicy

import (
	"testing"

	"github.com/summitto/tlsn-prover-gateway/internal/config"
)

func TestNew_RejectsInvalidExpression(t *testing.T) {
	t.Parallel()

	_, err := New([]config.HeaderRule{{Name: "broken", Condition: "not valid cel((("}})
	if err == nil {
		t.Fatal("New() expected compile error for invalid CEL expression")
	}
}

func TestShouldDrop_MatchesOnHeaderName(t *testing.T) {
	t.Parallel()

	p, err := New([]config.HeaderRule{
		{Name: "drop-internal", Condition: `header.name == "x-internal-token"`},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	drop, err := p.ShouldDrop("x-internal-token", "anything")
	if err != nil {
		t.Fatalf("ShouldDrop() error: %v", err)
	}
	if !drop {
		t.Error("expected x-internal-token to be dropped")
	}

	drop, err = p.ShouldDrop("x-other", "anything")
	if err != nil {
		t.Fatalf("ShouldDrop() error: %v", err)
	}
	if drop {
		t.Error("expected x-other to be kept")
	}
}

func TestShouldDrop_MatchesOnHeaderValue(t *testing.T) {
	t.Parallel()

	p, err := New([]config.HeaderRule{
		{Name: "drop-bearer", Condition: `header.value.startsWith("Bearer ")`},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	drop, err := p.ShouldDrop("authorization", "Bearer abc123")
	if err != nil {
		t.Fatalf("ShouldDrop() error: %v", err)
	}
	if !drop {
		t.Error("expected Bearer-prefixed value to be dropped")
	}
}

func TestShouldDrop_NoRulesNeverDrops(t *testing.T) {
	t.Parallel()

	p, err := New(nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	drop, err := p.ShouldDrop("x-anything", "v")
	if err != nil {
		t.Fatalf("ShouldDrop() error: %v", err)
	}
	if drop {
		t.Error("expected no rules to mean nothing is dropped")
	}
}

func TestShouldDrop_CachesCompiledProgram(t *testing.T) {
	t.Parallel()

	p, err := New([]config.HeaderRule{
		{Name: "r1", Condition: `header.name == "x-a"`},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := p.ShouldDrop("x-a", "v"); err != nil {
			t.Fatalf("ShouldDrop() iteration %d error: %v", i, err)
		}
	}
	if len(p.cache) != 1 {
		t.Errorf("cache size = %d, want 1 (single compiled program reused)", len(p.cache))
	}
}
