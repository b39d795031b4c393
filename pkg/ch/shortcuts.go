package ch

import "github.com/nrstott/chcore/pkg/graph"

// ShortcutCandidate is a shortcut find_shortcuts proposes but has not yet
// materialized into the graph. Skip is the edge id of the first original
// (or nested-shortcut) hop the candidate would replace; Skip2 is the second
// hop, kept only long enough to seed the sigma table when the candidate is
// actually added — the graph itself only ever stores one skipped edge id
// per shortcut, recovering the second hop at unpack time by lookup.
type ShortcutCandidate struct {
	From, To uint32
	Weight   float64
	Flags    graph.Flags
	Skip     uint32
	Skip2    uint32
}

// Synthesizer implements find_shortcuts/add_shortcuts: the side-effect-free
// discovery of which shortcuts contracting a node would require, and the
// materialization of that discovery into the graph.
type Synthesizer struct {
	g     Graph
	ws    *WitnessSearch
	sigma *Sigma
}

// NewSynthesizer builds a synthesiser sharing g, a witness search engine and
// a sigma table with the rest of the contraction driver.
func NewSynthesizer(g Graph, ws *WitnessSearch, sigma *Sigma) *Synthesizer {
	return &Synthesizer{g: g, ws: ws, sigma: sigma}
}

// FindShortcuts determines, without mutating the graph, which shortcuts
// contracting node v would require: for every uncontracted in-neighbour u
// and uncontracted out-neighbour y (y != u), a shortcut u->y skipping v is
// required unless some path from u to y avoiding v, no longer than the
// via-v weight, already witnesses that the shortcut is unnecessary.
//
// Opposite-direction candidates of equal weight over the same two endpoints
// are merged into a single Bidirectional candidate, so the returned slice
// never contains both u->y and y->u when they'd collapse into one edge.
func (s *Synthesizer) FindShortcuts(v uint32) []ShortcutCandidate {
	in := liveEdges(s.g, s.g.GetIncoming(v))
	out := liveEdges(s.g, s.g.GetOutgoing(v))

	var raw []ShortcutCandidate

	for _, inE := range in {
		u := inE.Other
		goals := make([]uint32, 0, len(out))
		seen := make(map[uint32]bool, len(out))
		limit := 0.0
		for _, outE := range out {
			if outE.Other == u {
				continue
			}
			if w := inE.Weight + outE.Weight; w > limit {
				limit = w
			}
			if !seen[outE.Other] {
				seen[outE.Other] = true
				goals = append(goals, outE.Other)
			}
		}
		if len(goals) == 0 {
			continue
		}

		s.ws.Run(u, v, limit, goals)

		for _, outE := range out {
			y := outE.Other
			if y == u {
				continue
			}
			viaWeight := inE.Weight + outE.Weight
			if s.ws.Dist(y) <= viaWeight {
				continue // a witness path avoiding v already achieves this weight
			}
			raw = append(raw, ShortcutCandidate{
				From: u, To: y, Weight: viaWeight, Flags: graph.Forward,
				Skip: inE.EdgeID, Skip2: outE.EdgeID,
			})
		}
	}

	return mergeBidirectional(raw)
}

// liveEdges filters an edge-ref slice down to edges reaching a still
// uncontracted node.
func liveEdges(g Graph, refs []graph.EdgeRef) []graph.EdgeRef {
	live := make([]graph.EdgeRef, 0, len(refs))
	for _, r := range refs {
		if g.GetLevel(r.Other) == 0 {
			live = append(live, r)
		}
	}
	return live
}

func pairKey(a, b uint32) (uint32, uint32) {
	if a < b {
		return a, b
	}
	return b, a
}

// mergeBidirectional collapses pairs of opposite-direction candidates over
// the same two endpoints, with equal weight, into a single Bidirectional
// candidate. The forward-most candidate (lower From) is kept as the
// canonical orientation; its Skip/Skip2 remain valid for unpacking in
// either direction since unpacking recomputes the untraveled half by
// endpoint lookup rather than by trusting a stored reverse half.
func mergeBidirectional(cands []ShortcutCandidate) []ShortcutCandidate {
	byPair := make(map[[2]uint32][]int)
	for i, c := range cands {
		a, b := pairKey(c.From, c.To)
		byPair[[2]uint32{a, b}] = append(byPair[[2]uint32{a, b}], i)
	}

	used := make([]bool, len(cands))
	var out []ShortcutCandidate
	for i, c := range cands {
		if used[i] {
			continue
		}
		a, b := pairKey(c.From, c.To)
		group := byPair[[2]uint32{a, b}]
		merged := false
		if len(group) == 2 {
			j := group[0]
			if j == i {
				j = group[1]
			}
			other := cands[j]
			if !used[j] && other.From == c.To && other.To == c.From && other.Weight == c.Weight {
				used[i], used[j] = true, true
				canon := c
				if other.From < c.From {
					canon = other
				}
				canon.Flags = graph.Bidirectional
				out = append(out, canon)
				merged = true
			}
		}
		if !merged {
			used[i] = true
			out = append(out, c)
		}
	}
	return out
}

// AddShortcuts materializes candidates into the graph: each candidate either
// overwrites an existing *shortcut* edge in place (when one already connects
// the same ordered endpoints, that shortcut's weight strictly exceeds the
// candidate's, and its direction flags can be widened to the candidate's
// without losing a direction it already served) or is appended as a new
// edge. An original edge between the same endpoints is never overwritten or
// relabeled a shortcut — it keeps its own travel weight and geometry
// regardless of what shortcuts are later added alongside it. It returns the
// number of genuinely new edges created and the sum of sigma over them —
// the bookkeeping the priority heuristic's edge-difference and
// original-edge-count terms need.
func (s *Synthesizer) AddShortcuts(candidates []ShortcutCandidate) (added int, origEdgeSum int) {
	for _, c := range candidates {
		sigma := s.sigma.ofSkipped(c.Skip, c.Skip2)

		if existing := s.g.FindShortcutEdge(c.From, c.To); existing != graph.NoEdge {
			ex := s.g.Edge(existing)
			if ex.Weight > c.Weight && graph.CanOverwrite(ex.Flags, c.Flags) {
				s.g.SetWeight(existing, c.Weight)
				s.g.SetFlags(existing, c.Flags)
				s.g.SetSkipped(existing, c.Skip)
				s.sigma.Set(existing, sigma)
				continue
			}
		}

		id := s.g.AddEdge(c.From, c.To, c.Weight, c.Flags)
		s.g.SetSkipped(id, c.Skip)
		s.sigma.Set(id, sigma)
		added++
		origEdgeSum += sigma
	}
	return added, origEdgeSum
}
