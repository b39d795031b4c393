package routing

import (
	"context"
	"math"
	"testing"

	"github.com/paulmach/osm"

	"github.com/nrstott/chcore/pkg/ch"
	"github.com/nrstott/chcore/pkg/graph"
	osmparser "github.com/nrstott/chcore/pkg/osm"
)

// buildTestGraphAndLG creates a test graph and its contracted level graph.
//
//	0 ---100--- 1 ---200--- 2
//	|                       |
//	300                    400
//	|                       |
//	3 ---500--- 4 ---600--- 5
//
// All edges bidirectional. Weights in millimeters.
func buildTestGraphAndLG(t *testing.T) (*graph.Graph, *graph.LevelGraph) {
	t.Helper()
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 10, ToNodeID: 20, Weight: 100},
			{FromNodeID: 20, ToNodeID: 10, Weight: 100},
			{FromNodeID: 20, ToNodeID: 30, Weight: 200},
			{FromNodeID: 30, ToNodeID: 20, Weight: 200},
			{FromNodeID: 10, ToNodeID: 40, Weight: 300},
			{FromNodeID: 40, ToNodeID: 10, Weight: 300},
			{FromNodeID: 30, ToNodeID: 60, Weight: 400},
			{FromNodeID: 60, ToNodeID: 30, Weight: 400},
			{FromNodeID: 40, ToNodeID: 50, Weight: 500},
			{FromNodeID: 50, ToNodeID: 40, Weight: 500},
			{FromNodeID: 50, ToNodeID: 60, Weight: 600},
			{FromNodeID: 60, ToNodeID: 50, Weight: 600},
		},
		NodeLat: map[osm.NodeID]float64{10: 1.300, 20: 1.300, 30: 1.300, 40: 1.301, 50: 1.301, 60: 1.301},
		NodeLon: map[osm.NodeID]float64{10: 103.800, 20: 103.801, 30: 103.802, 40: 103.800, 50: 103.801, 60: 103.802},
	}
	g := graph.Build(result)
	lg := g.ToLevelGraph()
	p := ch.NewPreprocessor()
	p.SetGraph(lg)
	if err := p.DoWork(); err != nil {
		t.Fatalf("DoWork: %v", err)
	}
	return g, lg
}

// plainDijkstra runs standard Dijkstra on the original graph.
func plainDijkstra(g *graph.Graph, source, target uint32) float64 {
	dist := make([]float64, g.NumNodes)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[source] = 0

	type item struct {
		node uint32
		dist float64
	}
	var pq []item
	pq = append(pq, item{source, 0})

	for len(pq) > 0 {
		minIdx := 0
		for i := 1; i < len(pq); i++ {
			if pq[i].dist < pq[minIdx].dist {
				minIdx = i
			}
		}
		cur := pq[minIdx]
		pq[minIdx] = pq[len(pq)-1]
		pq = pq[:len(pq)-1]

		if cur.dist > dist[cur.node] {
			continue
		}

		start, end := g.EdgesFrom(cur.node)
		for e := start; e < end; e++ {
			v := g.Head[e]
			newDist := cur.dist + float64(g.Weight[e])
			if newDist < dist[v] {
				dist[v] = newDist
				pq = append(pq, item{v, newDist})
			}
		}
	}

	return dist[target]
}

func TestCHQueryCorrectness(t *testing.T) {
	g, lg := buildTestGraphAndLG(t)
	search := ch.NewBidirectionalSearch(lg)

	for s := uint32(0); s < g.NumNodes; s++ {
		for d := uint32(0); d < g.NumNodes; d++ {
			if s == d {
				continue
			}
			expected := plainDijkstra(g, s, d)
			got := search.Query(s, d)
			if !got.Found || got.Weight != expected {
				t.Errorf("s=%d d=%d: CH=%v (found=%v), Dijkstra=%v", s, d, got.Weight, got.Found, expected)
			}
		}
	}
}

func TestRouteEndToEnd(t *testing.T) {
	g, lg := buildTestGraphAndLG(t)
	eng := NewEngine(lg, g)

	// Route from near node 0 to near node 5.
	result, err := eng.Route(context.Background(),
		LatLng{Lat: 1.300, Lng: 103.800}, // near node 0
		LatLng{Lat: 1.301, Lng: 103.802}, // near node 5
	)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	if result.TotalDistanceMeters <= 0 {
		t.Errorf("TotalDistanceMeters = %f, want > 0", result.TotalDistanceMeters)
	}
}

func TestRoutePointTooFar(t *testing.T) {
	g, lg := buildTestGraphAndLG(t)
	eng := NewEngine(lg, g)

	_, err := eng.Route(context.Background(),
		LatLng{Lat: 10.0, Lng: 10.0}, // nowhere near the test graph
		LatLng{Lat: 1.301, Lng: 103.802},
	)
	if err != ErrPointTooFar {
		t.Errorf("Route() err = %v, want ErrPointTooFar", err)
	}
}

func BenchmarkRoute(b *testing.B) {
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 10, ToNodeID: 20, Weight: 100},
			{FromNodeID: 20, ToNodeID: 10, Weight: 100},
			{FromNodeID: 20, ToNodeID: 30, Weight: 200},
			{FromNodeID: 30, ToNodeID: 20, Weight: 200},
			{FromNodeID: 10, ToNodeID: 40, Weight: 300},
			{FromNodeID: 40, ToNodeID: 10, Weight: 300},
			{FromNodeID: 30, ToNodeID: 60, Weight: 400},
			{FromNodeID: 60, ToNodeID: 30, Weight: 400},
			{FromNodeID: 40, ToNodeID: 50, Weight: 500},
			{FromNodeID: 50, ToNodeID: 40, Weight: 500},
			{FromNodeID: 50, ToNodeID: 60, Weight: 600},
			{FromNodeID: 60, ToNodeID: 50, Weight: 600},
		},
		NodeLat: map[osm.NodeID]float64{10: 1.300, 20: 1.300, 30: 1.300, 40: 1.301, 50: 1.301, 60: 1.301},
		NodeLon: map[osm.NodeID]float64{10: 103.800, 20: 103.801, 30: 103.802, 40: 103.800, 50: 103.801, 60: 103.802},
	}
	g := graph.Build(result)
	lg := g.ToLevelGraph()
	p := ch.NewPreprocessor()
	p.SetGraph(lg)
	if err := p.DoWork(); err != nil {
		b.Fatalf("DoWork: %v", err)
	}
	eng := NewEngine(lg, g)

	ctx := context.Background()
	start := LatLng{Lat: 1.300, Lng: 103.800}
	end := LatLng{Lat: 1.301, Lng: 103.802}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = eng.Route(ctx, start, end)
	}
}
