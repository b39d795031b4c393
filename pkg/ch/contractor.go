package ch

import (
	"errors"
	"log"

	"github.com/rhartert/sparsesets"
)

// ErrAlreadyPrepared is returned by a second call to (*Preprocessor).DoWork
// on the same instance. The first call's result stands; no further mutation
// happens.
var ErrAlreadyPrepared = errors.New("ch: preprocessor already ran DoWork")

// ErrNoGraph is returned by DoWork when called before SetGraph.
var ErrNoGraph = errors.New("ch: no graph set")

// Preprocessor drives contraction hierarchies preprocessing: it owns the
// node priority queue, the sigma table, the witness search engine and the
// shortcut synthesiser, and runs the node-ordering loop against whatever
// Graph it's given.
type Preprocessor struct {
	g     Graph
	sigma *Sigma
	syn   *Synthesizer
	pc    *PriorityCalc
	queue *NodePriorityQueue
	dirty *sparsesets.Set // neighbours of the just-contracted node, deduped

	done bool

	Shortcuts int // shortcuts actually materialized, set once DoWork returns

	// Logger receives progress lines during DoWork. Nil means "use the
	// standard library's default logger", matching the teacher's library
	// packages that are also linked into the server binary.
	Logger *log.Logger
}

// NewPreprocessor builds an idle preprocessor. Call SetGraph before DoWork.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

func (p *Preprocessor) logf(format string, args ...interface{}) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// SetGraph assigns the graph to contract. Must be called exactly once,
// before DoWork.
func (p *Preprocessor) SetGraph(g Graph) {
	p.g = g
	p.sigma = NewSigma(g)
	ws := NewWitnessSearch(g)
	p.syn = NewSynthesizer(g, ws, p.sigma)
	p.pc = NewPriorityCalc(g, p.syn)
	p.queue = NewNodePriorityQueue(g.NumNodes())
	p.dirty = sparsesets.New(int(g.NumNodes()))
}

// DoWork runs the full contraction loop to completion. It is idempotent per
// instance: a second call makes no further changes and reports
// ErrAlreadyPrepared, signalling both "nothing happened" and "this was a
// precondition violation" to the caller.
func (p *Preprocessor) DoWork() error {
	if p.done {
		return ErrAlreadyPrepared
	}
	if p.g == nil {
		return ErrNoGraph
	}
	p.done = true

	n := p.g.NumNodes()
	if n == 0 {
		return nil
	}

	for v := uint32(0); v < n; v++ {
		p.queue.Insert(v, p.pc.Priority(v))
	}

	updateInterval := uint32(p.queue.Size()) / 10
	if updateInterval < 10 {
		updateInterval = 10
	}
	var updateEpoch, step uint32

	var contracted, totalShortcuts int
	nextLevel := uint32(1)
	logInterval := uint32(50000)

	for !p.queue.IsEmpty() {
		if step%updateInterval == 0 {
			if updateEpoch > 0 && updateEpoch%2 == 0 {
				p.refreshAll()
			}
			updateEpoch++
		}
		step++

		v := p.queue.PollMinKey()

		if !p.queue.IsEmpty() {
			fresh := p.pc.Priority(v)
			if fresh > p.queue.PeekMinPriority() {
				p.queue.Insert(v, fresh)
				continue
			}
		}

		candidates := p.syn.FindShortcuts(v)
		added, _ := p.syn.AddShortcuts(candidates)
		totalShortcuts += added

		p.g.SetLevel(v, nextLevel)
		nextLevel++
		contracted++

		// A node reachable both as a predecessor and a successor of v would
		// otherwise have its priority recomputed twice; dedup through dirty.
		p.dirty.Clear()
		for _, e := range p.g.GetIncoming(v) {
			if p.g.GetLevel(e.Other) == 0 {
				p.dirty.Insert(int(e.Other))
			}
		}
		for _, e := range p.g.GetOutgoing(v) {
			if p.g.GetLevel(e.Other) == 0 {
				p.dirty.Insert(int(e.Other))
			}
		}
		for _, n := range p.dirty.Content() {
			nd := uint32(n)
			p.queue.Update(nd, 0, p.pc.Priority(nd))
		}

		remaining := int(n) - contracted
		switch {
		case remaining < 1000:
			logInterval = 100
		case remaining < 10000:
			logInterval = 1000
		default:
			logInterval = 50000
		}
		if uint32(contracted)%logInterval == 0 {
			p.logf("contracted %d/%d nodes, %d shortcuts so far", contracted, n, totalShortcuts)
		}
	}

	p.Shortcuts = totalShortcuts
	p.logf("contraction complete: %d shortcuts created over %d nodes", totalShortcuts, n)
	return nil
}

// CreateAlgo yields a configured bidirectional query executor against the
// graph DoWork just prepared. Valid to call even after an empty-graph
// DoWork (the returned executor then reports no-path for every query,
// since every node id is out of range of its empty scratch state and so
// nothing is ever seeded).
func (p *Preprocessor) CreateAlgo() *BidirectionalSearch {
	return NewBidirectionalSearch(p.g)
}

// refreshAll recomputes priority for every node still queued, correcting
// drift that per-contraction neighbour updates alone don't catch.
func (p *Preprocessor) refreshAll() {
	n := p.g.NumNodes()
	for v := uint32(0); v < n; v++ {
		if p.g.GetLevel(v) == 0 {
			p.queue.Update(v, 0, p.pc.Priority(v))
		}
	}
}
