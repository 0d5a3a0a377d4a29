package dag

import (
	"errors"
	"fmt"

	"github.com/vk/envbuild/internal/library"
)

// Snapshot is the serializable form of a Graph. Libraries are referenced by
// canonical root, so a snapshot can only be restored against a catalog that
// still contains them.
type Snapshot struct {
	Project    string         `json:"project"`
	Libraries  []SnapshotNode `json:"libraries"`
	Edges      []Edge         `json:"edges"`
	Dropped    []Edge         `json:"dropped,omitempty"`
	Unresolved []Unresolved   `json:"unresolved,omitempty"`
}

// SnapshotNode identifies one library node.
type SnapshotNode struct {
	Root string `json:"root"`
}

// Snapshot captures the graph.
func (g *Graph) Snapshot() (*Snapshot, error) {
	edges, err := g.Edges()
	if err != nil {
		return nil, err
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()
	s := &Snapshot{
		Project:    g.nodes[RootID].Name,
		Edges:      edges,
		Dropped:    append([]Edge(nil), g.dropped...),
		Unresolved: append([]Unresolved(nil), g.unresolved...),
	}
	for _, n := range g.nodes[1:] {
		s.Libraries = append(s.Libraries, SnapshotNode{Root: n.Candidate.Root})
	}
	return s, nil
}

// Restore rebuilds a graph from a snapshot. lookup maps a canonical root to
// its current candidate; a root it cannot map makes the snapshot stale.
func Restore(s *Snapshot, lookup func(root string) *library.Candidate) (*Graph, error) {
	g := New(s.Project)
	for _, sn := range s.Libraries {
		c := lookup(sn.Root)
		if c == nil {
			return nil, fmt.Errorf("snapshot library %s is no longer available", sn.Root)
		}
		if _, err := g.AddLibrary(c); err != nil {
			return nil, err
		}
	}
	for _, e := range s.Edges {
		if _, err := g.AddEdge(e.From, e.To); err != nil && !errors.Is(err, ErrCycle) {
			return nil, err
		}
	}
	g.dropped = append(g.dropped, s.Dropped...)
	g.unresolved = append(g.unresolved, s.Unresolved...)
	return g, nil
}
