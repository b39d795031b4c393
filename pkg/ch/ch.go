// Package ch implements the ordering-and-contraction core of a Contraction
// Hierarchies preprocessor for road-network routing: a priority-queue-driven
// node contraction loop that evaluates witness searches, synthesizes
// shortcuts, and re-prioritizes neighbours so that a later bidirectional
// shortest-path query which only relaxes edges toward higher-level endpoints
// returns the true shortest path.
//
// The package borrows its graph from the caller — see Graph — and owns
// everything else: the original-edge counter, the node priority queue, and
// the witness search's transient state.
package ch

import "github.com/nrstott/chcore/pkg/graph"

// Graph is the external level-graph collaborator the core contracts
// against. graph.LevelGraph satisfies it; the core never constructs one
// itself, matching spec.md's treatment of the level-graph store as an
// external collaborator.
type Graph interface {
	NumNodes() uint32
	GetLevel(node uint32) uint32
	SetLevel(node uint32, level uint32)
	GetIncoming(node uint32) []graph.EdgeRef
	GetOutgoing(node uint32) []graph.EdgeRef
	GetEdges(node uint32) []graph.EdgeRef
	AllEdges() []graph.Edge
	Edge(id uint32) graph.Edge
	AddEdge(from, to uint32, weight float64, flags graph.Flags) uint32
	SetSkipped(id, skipped uint32)
	SetWeight(id uint32, weight float64)
	SetFlags(id uint32, flags graph.Flags)
	FindEdge(from, to uint32) uint32
	FindShortcutEdge(from, to uint32) uint32
	FindEdgeByWeight(from, to uint32, want float64) uint32
}

var _ Graph = (*graph.LevelGraph)(nil)
