// Package graph builds the file-level dependency graph of a source tree and
// answers structural questions about it: cycles, strongly connected
// components, orphans and per-file relationships.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/panbanda/sift/pkg/analyzer/facts"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ErrTransposeMismatch is returned by VerifyTranspose when the reverse
// adjacency is not the exact transpose of the forward adjacency.
var ErrTransposeMismatch = errors.New("reverse graph is not the transpose of forward graph")

// DependencyGraph is a directed graph over relative file paths. The reverse
// adjacency is maintained as the exact transpose of the forward adjacency;
// AddEdge is the only mutator of either.
type DependencyGraph struct {
	nodes    map[string]struct{}
	forward  map[string]map[string]struct{}
	reverse  map[string]map[string]struct{}
	edges    []Edge
	external []Edge
	issues   []Issue
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes:   make(map[string]struct{}),
		forward: make(map[string]map[string]struct{}),
		reverse: make(map[string]map[string]struct{}),
	}
}

// AddNode adds a file to the graph.
func (g *DependencyGraph) AddNode(id string) {
	g.nodes[id] = struct{}{}
}

// AddEdge inserts e in both directions. Endpoints are added as nodes.
// Edges with an empty Target are recorded as external instead.
func (g *DependencyGraph) AddEdge(e Edge) {
	if e.Target == "" {
		g.external = append(g.external, e)
		return
	}
	g.AddNode(e.Source)
	g.AddNode(e.Target)
	if g.forward[e.Source] == nil {
		g.forward[e.Source] = make(map[string]struct{})
	}
	if g.reverse[e.Target] == nil {
		g.reverse[e.Target] = make(map[string]struct{})
	}
	g.forward[e.Source][e.Target] = struct{}{}
	g.reverse[e.Target][e.Source] = struct{}{}
	g.edges = append(g.edges, e)
}

func (g *DependencyGraph) addIssue(issue Issue) {
	g.issues = append(g.issues, issue)
}

// Nodes returns every node in sorted order.
func (g *DependencyGraph) Nodes() []string {
	return sortedKeys(g.nodes)
}

// Forward returns the files id imports, sorted.
func (g *DependencyGraph) Forward(id string) []string {
	return sortedKeys(g.forward[id])
}

// Reverse returns the files importing id, sorted.
func (g *DependencyGraph) Reverse(id string) []string {
	return sortedKeys(g.reverse[id])
}

// OutDegree returns the number of distinct files id imports.
func (g *DependencyGraph) OutDegree(id string) int {
	return len(g.forward[id])
}

// InDegree returns the number of distinct files importing id.
func (g *DependencyGraph) InDegree(id string) int {
	return len(g.reverse[id])
}

// HasEdge reports whether from imports to.
func (g *DependencyGraph) HasEdge(from, to string) bool {
	_, ok := g.forward[from][to]
	return ok
}

// Edges returns every resolved edge in insertion order, including repeats
// between the same pair of files.
func (g *DependencyGraph) Edges() []Edge {
	return g.edges
}

// External returns edges whose specifier was not relative.
func (g *DependencyGraph) External() []Edge {
	return g.external
}

// Issues returns the resolution problems recorded while building.
func (g *DependencyGraph) Issues() []Issue {
	return g.issues
}

// EdgeCount returns the number of distinct directed file pairs.
func (g *DependencyGraph) EdgeCount() int {
	n := 0
	for _, targets := range g.forward {
		n += len(targets)
	}
	return n
}

// ForwardMap returns the forward adjacency as sorted slices.
func (g *DependencyGraph) ForwardMap() map[string][]string {
	return adjacency(g.nodes, g.forward)
}

// ReverseMap returns the reverse adjacency as sorted slices.
func (g *DependencyGraph) ReverseMap() map[string][]string {
	return adjacency(g.nodes, g.reverse)
}

func adjacency(nodes map[string]struct{}, adj map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(nodes))
	for n := range nodes {
		out[n] = sortedKeys(adj[n])
	}
	return out
}

// VerifyTranspose checks that reverse is exactly the transpose of forward.
func (g *DependencyGraph) VerifyTranspose() error {
	for src, targets := range g.forward {
		for dst := range targets {
			if _, ok := g.reverse[dst][src]; !ok {
				return fmt.Errorf("%w: %s -> %s missing from reverse", ErrTransposeMismatch, src, dst)
			}
		}
	}
	for dst, sources := range g.reverse {
		for src := range sources {
			if _, ok := g.forward[src][dst]; !ok {
				return fmt.Errorf("%w: %s <- %s missing from forward", ErrTransposeMismatch, dst, src)
			}
		}
	}
	return nil
}

// DetectCycles runs a depth-first search from every unvisited node in
// sorted order. Each edge that reaches a node on the current path yields the
// path suffix starting at that node. Finished nodes are not re-entered, so
// each back edge is reported once.
func (g *DependencyGraph) DetectCycles() [][]string {
	var (
		cycles  [][]string
		visited = make(map[string]bool, len(g.nodes))
		onStack = make(map[string]int)
		path    []string
	)

	var visit func(n string)
	visit = func(n string) {
		visited[n] = true
		onStack[n] = len(path)
		path = append(path, n)

		for _, next := range g.Forward(n) {
			if idx, ok := onStack[next]; ok {
				cycles = append(cycles, append([]string(nil), path[idx:]...))
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}

		path = path[:len(path)-1]
		delete(onStack, n)
	}

	for _, n := range g.Nodes() {
		if !visited[n] {
			visit(n)
		}
	}
	return cycles
}

// gonumGraph holds the gonum representation and mappings.
type gonumGraph struct {
	directed   *simple.DirectedGraph
	undirected *simple.UndirectedGraph
	ids        []string
}

// toGonum converts the graph to gonum types. Self-loops are skipped because
// gonum simple graphs do not support them.
func (g *DependencyGraph) toGonum() *gonumGraph {
	gg := &gonumGraph{
		directed:   simple.NewDirectedGraph(),
		undirected: simple.NewUndirectedGraph(),
		ids:        g.Nodes(),
	}
	index := make(map[string]int64, len(gg.ids))
	for i, id := range gg.ids {
		index[id] = int64(i)
		gg.directed.AddNode(simple.Node(i))
		gg.undirected.AddNode(simple.Node(i))
	}
	for src, targets := range g.forward {
		for dst := range targets {
			from, to := index[src], index[dst]
			if from == to {
				continue
			}
			gg.directed.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
			if !gg.undirected.HasEdgeBetween(from, to) {
				gg.undirected.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
			}
		}
	}
	return gg
}

// StronglyConnected returns components with more than one file, plus
// single files that import themselves. Members and components are sorted.
func (g *DependencyGraph) StronglyConnected() [][]string {
	gg := g.toGonum()
	var sccs [][]string
	for _, scc := range topo.TarjanSCC(gg.directed) {
		if len(scc) == 1 {
			id := gg.ids[scc[0].ID()]
			if g.HasEdge(id, id) {
				sccs = append(sccs, []string{id})
			}
			continue
		}
		members := make([]string, 0, len(scc))
		for _, n := range scc {
			members = append(members, gg.ids[n.ID()])
		}
		sort.Strings(members)
		sccs = append(sccs, members)
	}
	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })
	return sccs
}

// Components returns the number of weakly connected components.
func (g *DependencyGraph) Components() int {
	return len(topo.ConnectedComponents(g.toGonum().undirected))
}

// Orphans returns JavaScript-like files with no inbound or outbound edges
// and no exports whose content is not empty. Files without facts are skipped.
func (g *DependencyGraph) Orphans(fileFacts map[string]*facts.FileFacts) []string {
	var orphans []string
	for _, n := range g.Nodes() {
		f, ok := fileFacts[n]
		if !ok || f.Empty || !isJSLike(f.Ext) {
			continue
		}
		if g.OutDegree(n) == 0 && g.InDegree(n) == 0 && len(f.Exports) == 0 {
			orphans = append(orphans, n)
		}
	}
	return orphans
}

// Relationships returns the direct neighbours and rank of every node.
func (g *DependencyGraph) Relationships() map[string]Relationship {
	ranks := g.Rank(0.85, 1e-6)
	rels := make(map[string]Relationship, len(g.nodes))
	for n := range g.nodes {
		rels[n] = Relationship{
			Imports:    g.Forward(n),
			ImportedBy: g.Reverse(n),
			Rank:       ranks[n],
		}
	}
	return rels
}

// Rank computes PageRank over the import graph using sparse power
// iteration. Heavily imported files rank highest.
func (g *DependencyGraph) Rank(damping, tolerance float64) map[string]float64 {
	ids := g.Nodes()
	n := len(ids)
	if n == 0 {
		return make(map[string]float64)
	}

	index := make(map[string]int, n)
	for i, id := range ids {
		index[id] = i
	}
	outNeighbors := make([][]int, n)
	for i, id := range ids {
		for _, dst := range g.Forward(id) {
			outNeighbors[i] = append(outNeighbors[i], index[dst])
		}
	}

	rank := make([]float64, n)
	newRank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}
	teleport := (1.0 - damping) / float64(n)

	for iter := 0; iter < 100; iter++ {
		for i := range newRank {
			newRank[i] = teleport
		}
		for i := 0; i < n; i++ {
			if deg := len(outNeighbors[i]); deg > 0 {
				contrib := damping * rank[i] / float64(deg)
				for _, j := range outNeighbors[i] {
					newRank[j] += contrib
				}
			} else {
				// Dangling node: distribute to all nodes
				contrib := damping * rank[i] / float64(n)
				for j := range newRank {
					newRank[j] += contrib
				}
			}
		}

		diff := 0.0
		for i := range rank {
			d := newRank[i] - rank[i]
			if d < 0 {
				d = -d
			}
			diff += d
		}
		rank, newRank = newRank, rank
		if diff < tolerance {
			break
		}
	}

	result := make(map[string]float64, n)
	for i, id := range ids {
		result[id] = rank[i]
	}
	return result
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
