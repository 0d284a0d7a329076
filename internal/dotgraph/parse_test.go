package dotgraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParse(t *testing.T) {
	src := `
// lattice filter, one tap
strict digraph "tap" {
  rankdir = LR;
  node [shape=box];
  m1 [kind=MUL];
  a1 [label="add"]
  m1 -> a1 -> s1;
  s1 -> m1 [weight=2, color=red];
  a1 -> a1 [label="1"] # self loop
  /* block
     comment */
  x_9
}
`
	g, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	wantNodes := []Node{
		{ID: "m1", Kind: "MUL"},
		{ID: "a1", Kind: "add"},
		{ID: "s1", Kind: "S"},
		{ID: "x_9", Kind: "X"},
	}
	wantEdges := []Edge{
		{From: "m1", To: "a1", Weight: 0},
		{From: "a1", To: "s1", Weight: 0},
		{From: "s1", To: "m1", Weight: 2},
		{From: "a1", To: "a1", Weight: 1},
	}
	if g.Name != "tap" {
		t.Errorf("expected name tap, got %q", g.Name)
	}
	if diff := cmp.Diff(wantNodes, g.Nodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantEdges, g.Edges, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
	if k := g.Kind("m1"); k != "MUL" {
		t.Errorf("expected kind MUL, got %q", k)
	}
}

func TestParse_NodeKindDeclaredAfterEdge(t *testing.T) {
	g, err := Parse(`digraph { a -> b; b [kind=DIV] }`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if k := g.Kind("b"); k != "DIV" {
		t.Errorf("expected kind DIV, got %q", k)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"not a digraph", `graph { a -- b }`},
		{"undirected edge", `digraph { a -- b }`},
		{"missing brace", `digraph { a -> b`},
		{"negative weight", `digraph { a -> b [weight=-1] }`},
		{"bad weight", `digraph { a -> b [weight=x] }`},
		{"unterminated string", `digraph { "a -> b }`},
		{"unterminated comment", `digraph { /* a -> b }`},
		{"dangling arrow", `digraph { a -> ; }`},
		{"trailing tokens", `digraph { a } b`},
		{"bad attr", `digraph { a [kind] }`},
		{"bad char", `digraph { a @ b }`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.src); err == nil {
				t.Errorf("expected error for %q", tc.src)
			}
		})
	}
}

func TestKindFromID(t *testing.T) {
	cases := map[string]string{
		"mul_3": "MUL",
		"add12": "ADD",
		"A":     "A",
		"42":    "42",
	}
	for id, want := range cases {
		if got := KindFromID(id); got != want {
			t.Errorf("KindFromID(%q) = %q, want %q", id, got, want)
		}
	}
}
