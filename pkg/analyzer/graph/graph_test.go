package graph

import (
	"testing"

	"github.com/panbanda/sift/pkg/analyzer/facts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edge(src, dst string) Edge {
	return Edge{Source: src, Target: dst, Specifier: "./" + dst, Kind: facts.KindStatic}
}

func buildGraph(edges ...[2]string) *DependencyGraph {
	g := NewDependencyGraph()
	for _, e := range edges {
		g.AddEdge(edge(e[0], e[1]))
	}
	return g
}

func TestAddEdgeMaintainsTranspose(t *testing.T) {
	g := buildGraph([2]string{"a.js", "b.js"}, [2]string{"a.js", "c.js"}, [2]string{"c.js", "b.js"}, [2]string{"a.js", "b.js"})

	assert.Equal(t, []string{"a.js", "b.js", "c.js"}, g.Nodes())
	assert.Equal(t, []string{"b.js", "c.js"}, g.Forward("a.js"))
	assert.Equal(t, []string{"a.js", "c.js"}, g.Reverse("b.js"))
	assert.Equal(t, 3, g.EdgeCount())
	assert.Len(t, g.Edges(), 4)
	require.NoError(t, g.VerifyTranspose())

	fwd := g.ForwardMap()
	rev := g.ReverseMap()
	for src, targets := range fwd {
		for _, dst := range targets {
			assert.Contains(t, rev[dst], src)
		}
	}
	assert.Equal(t, []string{}, fwd["b.js"])
}

func TestVerifyTransposeDetectsMismatch(t *testing.T) {
	g := buildGraph([2]string{"a.js", "b.js"})
	delete(g.reverse["b.js"], "a.js")
	assert.ErrorIs(t, g.VerifyTranspose(), ErrTransposeMismatch)

	g = buildGraph([2]string{"a.js", "b.js"})
	g.reverse["a.js"] = map[string]struct{}{"z.js": {}}
	assert.ErrorIs(t, g.VerifyTranspose(), ErrTransposeMismatch)
}

func TestExternalEdges(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge(Edge{Source: "a.js", Specifier: "react"})
	assert.Empty(t, g.Nodes())
	require.Len(t, g.External(), 1)
	assert.Equal(t, "react", g.External()[0].Specifier)
}

func TestDetectCycles(t *testing.T) {
	tests := []struct {
		name  string
		edges [][2]string
		want  [][]string
	}{
		{
			name:  "acyclic",
			edges: [][2]string{{"a.js", "b.js"}, {"b.js", "c.js"}},
			want:  nil,
		},
		{
			name:  "two node cycle",
			edges: [][2]string{{"a.js", "b.js"}, {"b.js", "a.js"}},
			want:  [][]string{{"a.js", "b.js"}},
		},
		{
			name:  "three node cycle entered mid-path",
			edges: [][2]string{{"a.js", "b.js"}, {"b.js", "c.js"}, {"c.js", "d.js"}, {"d.js", "b.js"}},
			want:  [][]string{{"b.js", "c.js", "d.js"}},
		},
		{
			name:  "self loop",
			edges: [][2]string{{"a.js", "a.js"}},
			want:  [][]string{{"a.js"}},
		},
		{
			name:  "two cycles sharing a node",
			edges: [][2]string{{"a.js", "b.js"}, {"b.js", "a.js"}, {"b.js", "c.js"}, {"c.js", "b.js"}},
			want:  [][]string{{"a.js", "b.js"}, {"b.js", "c.js"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(tt.edges...)
			assert.Equal(t, tt.want, g.DetectCycles())
		})
	}
}

func TestDetectCyclesFollowForwardEdges(t *testing.T) {
	g := buildGraph(
		[2]string{"a.js", "b.js"}, [2]string{"b.js", "c.js"}, [2]string{"c.js", "a.js"},
		[2]string{"c.js", "d.js"}, [2]string{"d.js", "e.js"}, [2]string{"e.js", "c.js"},
		[2]string{"e.js", "f.js"}, [2]string{"f.js", "g.js"}, [2]string{"g.js", "f.js"},
		[2]string{"b.js", "e.js"}, [2]string{"h.js", "h.js"}, [2]string{"h.js", "a.js"},
	)

	cycles := g.DetectCycles()
	require.GreaterOrEqual(t, len(cycles), 4)
	for _, cycle := range cycles {
		require.NotEmpty(t, cycle)
		seen := make(map[string]bool, len(cycle))
		for i, from := range cycle {
			to := cycle[(i+1)%len(cycle)]
			assert.True(t, g.HasEdge(from, to), "cycle %v: %s does not import %s", cycle, from, to)
			assert.False(t, seen[from], "cycle %v repeats %s", cycle, from)
			seen[from] = true
		}
	}
}

func TestDetectCyclesFinishedNodesNotRevisited(t *testing.T) {
	// c.js is reached from both a.js and b.js but has no cycle through it.
	g := buildGraph([2]string{"a.js", "c.js"}, [2]string{"b.js", "c.js"}, [2]string{"c.js", "d.js"})
	assert.Empty(t, g.DetectCycles())
}

func TestStronglyConnected(t *testing.T) {
	g := buildGraph(
		[2]string{"a.js", "b.js"}, [2]string{"b.js", "c.js"}, [2]string{"c.js", "a.js"},
		[2]string{"d.js", "d.js"},
		[2]string{"e.js", "a.js"},
	)
	assert.Equal(t, [][]string{{"a.js", "b.js", "c.js"}, {"d.js"}}, g.StronglyConnected())
	assert.Equal(t, 2, g.Components())
}

func TestOrphans(t *testing.T) {
	g := buildGraph([2]string{"a.js", "b.js"})
	for _, n := range []string{"lonely.js", "exports.js", "empty.js", "notes.md"} {
		g.AddNode(n)
	}
	ff := map[string]*facts.FileFacts{
		"a.js":       {Ext: ".js"},
		"b.js":       {Ext: ".js"},
		"lonely.js":  {Ext: ".js"},
		"exports.js": {Ext: ".js", Exports: []facts.Export{{Name: "x"}}},
		"empty.js":   {Ext: ".js", Empty: true},
		"notes.md":   {Ext: ".md"},
	}
	assert.Equal(t, []string{"lonely.js"}, g.Orphans(ff))
}

func TestRelationshipsAndRank(t *testing.T) {
	g := buildGraph([2]string{"a.js", "lib.js"}, [2]string{"b.js", "lib.js"}, [2]string{"c.js", "lib.js"})
	rels := g.Relationships()

	assert.Equal(t, []string{"lib.js"}, rels["a.js"].Imports)
	assert.Equal(t, []string{"a.js", "b.js", "c.js"}, rels["lib.js"].ImportedBy)
	assert.Greater(t, rels["lib.js"].Rank, rels["a.js"].Rank)

	total := 0.0
	for _, r := range g.Rank(0.85, 1e-9) {
		total += r
	}
	assert.InDelta(t, 1.0, total, 1e-6)
	assert.Empty(t, NewDependencyGraph().Rank(0.85, 1e-6))
}
