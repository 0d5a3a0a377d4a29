package dag

import (
	"errors"
	"fmt"
	"sort"

	graphlib "github.com/dominikbraun/graph"
	"github.com/vk/envbuild/internal/builderr"
	"github.com/vk/envbuild/internal/library"
)

// New creates a graph holding only the project root node.
func New(projectName string) *Graph {
	g := &Graph{
		edges:   graphlib.New(graphlib.IntHash, graphlib.Directed(), graphlib.PreventCycles()),
		visited: make(map[string]NodeID),
	}
	g.nodes = append(g.nodes, &Node{ID: RootID, Name: projectName})
	// A fresh graph cannot already contain vertex 0.
	_ = g.edges.AddVertex(int(RootID))
	return g
}

// AddLibrary adds a node for a candidate. Adding a candidate whose canonical
// root is already in the graph violates the visited-set invariant and is a
// graph error.
func (g *Graph) AddLibrary(c *library.Candidate) (NodeID, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if id, ok := g.visited[c.Root]; ok {
		return id, builderr.Graph("", "library %s at %s is already node %d", c.DiagnosticName(), c.Root, id)
	}

	id := NodeID(len(g.nodes))
	if err := g.edges.AddVertex(int(id)); err != nil {
		return 0, builderr.Graph("", "add node %d: %v", id, err)
	}
	g.nodes = append(g.nodes, &Node{ID: id, Name: c.Name, Candidate: c})
	g.visited[c.Root] = id
	return id, nil
}

// Lookup returns the node of the library at a canonical root.
func (g *Graph) Lookup(root string) (NodeID, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	id, ok := g.visited[root]
	return id, ok
}

// ErrCycle is returned by AddEdge for an edge that would close a cycle. The
// edge is dropped and the graph stays usable.
var ErrCycle = errors.New("edge would create a cycle")

// AddEdge records that from requires the interface of to. Self edges and
// duplicates are ignored. An edge that would close a cycle is dropped and
// reported as ErrCycle.
func (g *Graph) AddEdge(from, to NodeID) (bool, error) {
	if from == to {
		return false, nil
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.valid(from) {
		return false, fmt.Errorf("source node not found: %d", from)
	}
	if !g.valid(to) {
		return false, fmt.Errorf("destination node not found: %d", to)
	}

	err := g.edges.AddEdge(int(from), int(to))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, graphlib.ErrEdgeAlreadyExists):
		return false, nil
	case errors.Is(err, graphlib.ErrEdgeCreatesCycle):
		g.dropped = append(g.dropped, Edge{From: from, To: to})
		return false, fmt.Errorf("%d -> %d: %w", from, to, ErrCycle)
	default:
		return false, err
	}
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id NodeID) *Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if !g.valid(id) {
		return nil
	}
	return g.nodes[id]
}

// Len returns the number of nodes, root included.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Libraries returns the library nodes in discovery order.
func (g *Graph) Libraries() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]*Node(nil), g.nodes[1:]...)
}

// Dependencies returns the nodes id requires, in ascending ID order.
func (g *Graph) Dependencies(id NodeID) ([]NodeID, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	adj, err := g.edges.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	targets, ok := adj[int(id)]
	if !ok {
		return nil, fmt.Errorf("node not found: %d", id)
	}
	out := make([]NodeID, 0, len(targets))
	for t := range targets {
		out = append(out, NodeID(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Edges returns every kept edge, sorted.
func (g *Graph) Edges() ([]Edge, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	edges, err := g.edges.Edges()
	if err != nil {
		return nil, err
	}
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, Edge{From: NodeID(e.Source), To: NodeID(e.Target)})
	}
	sortEdges(out)
	return out, nil
}

// DroppedEdges returns the edges rejected because they would close a cycle,
// in the order they were attempted.
func (g *Graph) DroppedEdges() []Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]Edge(nil), g.dropped...)
}

// TopologicalOrder returns every node with each node before the nodes it
// requires. Ties are broken by discovery order, so the result is stable.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	order, err := graphlib.StableTopologicalSort(g.edges, func(a, b int) bool { return a < b })
	if err != nil {
		return nil, err
	}
	out := make([]NodeID, len(order))
	for i, id := range order {
		out[i] = NodeID(id)
	}
	return out, nil
}

// RecordUnresolved notes an include no provider was found for. Repeats are
// ignored.
func (g *Graph) RecordUnresolved(header, from string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	for _, u := range g.unresolved {
		if u.Header == header && u.From == from {
			return
		}
	}
	g.unresolved = append(g.unresolved, Unresolved{Header: header, From: from})
}

// Unresolved returns the recorded unresolved includes in discovery order.
func (g *Graph) Unresolved() []Unresolved {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]Unresolved(nil), g.unresolved...)
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
}
