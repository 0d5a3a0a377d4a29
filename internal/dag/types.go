package dag

import (
	"sync"

	graphlib "github.com/dominikbraun/graph"
	"github.com/vk/envbuild/internal/library"
)

// NodeID addresses a node in the graph arena.
type NodeID int

// RootID is the project root node.
const RootID NodeID = 0

// Node is a single vertex: the project root or a library.
type Node struct {
	ID   NodeID
	Name string
	// Candidate is nil for the root.
	Candidate *library.Candidate
}

// IsRoot reports whether n is the project root.
func (n *Node) IsRoot() bool { return n.ID == RootID }

// Edge is a "requires the interface of" relation.
type Edge struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}

// Unresolved is an include no search root could satisfy.
type Unresolved struct {
	Header string `json:"header"`
	// From is the file containing the include directive.
	From string `json:"from"`
}

// Graph is the resolved dependency graph of one environment. All operations
// on the graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex

	edges graphlib.Graph[int, int]
	// nodes is the arena, indexed by NodeID.
	nodes []*Node
	// visited maps canonical library roots to their node.
	visited map[string]NodeID

	unresolved []Unresolved
	dropped    []Edge
}
