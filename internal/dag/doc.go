// Package dag holds the library dependency graph produced by the dependency
// finder: the project root node, one node per discovered library, and edges
// meaning "requires the interface of".
//
// Nodes live in an arena and are addressed by integer IDs in discovery order;
// the edge set is kept by github.com/dominikbraun/graph, which rejects any edge
// that would close a cycle. Such edges are dropped and remembered rather than
// reported as errors, so the graph is acyclic by construction.
package dag
