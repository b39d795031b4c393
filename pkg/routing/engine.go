package routing

import (
	"context"
	"errors"

	"github.com/nrstott/chcore/pkg/ch"
	"github.com/nrstott/chcore/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two points.
var ErrNoRoute = errors.New("no route found")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Segment represents a road segment in the route result.
type Segment struct {
	DistanceMeters float64
	Geometry       []LatLng
}

// RouteResult is the output of a route query.
type RouteResult struct {
	TotalDistanceMeters float64
	EdgesTraversed      int // original-graph edges after shortcut unpacking
	Segments            []Segment
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, start, end LatLng) (*RouteResult, error)
}

// Engine implements Router against a contracted LevelGraph.
type Engine struct {
	lg      *graph.LevelGraph
	orig    *graph.Graph // for geometry and snapping
	snapper *Snapper
}

// NewEngine creates a routing engine from a prepared level graph and the
// original graph it was contracted from.
func NewEngine(lg *graph.LevelGraph, orig *graph.Graph) *Engine {
	return &Engine{
		lg:      lg,
		orig:    orig,
		snapper: NewSnapper(orig),
	}
}

// Route computes the shortest path between two points.
func (e *Engine) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	startSnap, err := e.snapper.Snap(start.Lat, start.Lng)
	if err != nil {
		return nil, err
	}
	endSnap, err := e.snapper.Snap(end.Lat, end.Lng)
	if err != nil {
		return nil, err
	}

	search := ch.NewBidirectionalSearch(e.lg)
	seedForward(search, e.orig, startSnap)
	seedBackward(search, e.orig, endSnap)

	res := search.RunContext(ctx)
	if !res.Found {
		return nil, ErrNoRoute
	}

	geometry := e.buildGeometry(res.Edges)

	return &RouteResult{
		TotalDistanceMeters: res.Weight / 1000.0,
		EdgesTraversed:      len(res.Edges),
		Segments: []Segment{
			{
				DistanceMeters: res.Weight / 1000.0,
				Geometry:       geometry,
			},
		},
	}, nil
}

// seedForward seeds the forward frontier with the start snap point's two
// edge endpoints, each at its partial distance from the snap point.
func seedForward(search *ch.BidirectionalSearch, g *graph.Graph, snap SnapResult) {
	weight := float64(g.Weight[snap.EdgeIdx])
	search.SeedForward(snap.NodeV, weight*(1-snap.Ratio))
	search.SeedForward(snap.NodeU, weight*snap.Ratio)
}

// seedBackward is seedForward's counterpart for the end snap point.
func seedBackward(search *ch.BidirectionalSearch, g *graph.Graph, snap SnapResult) {
	weight := float64(g.Weight[snap.EdgeIdx])
	search.SeedBackward(snap.NodeU, weight*snap.Ratio)
	search.SeedBackward(snap.NodeV, weight*(1-snap.Ratio))
}

// buildGeometry converts an unpacked sequence of original-graph edge ids
// into lat/lng coordinates, including intermediate shape points from edge
// geometry. An unpacked edge id always indexes the original graph's CSR
// geometry arrays directly: pkg/graph's ToLevelGraph preserves CSR edge
// order when building the level graph's original (non-shortcut) edges.
func (e *Engine) buildGeometry(edgeIDs []uint32) []LatLng {
	if len(edgeIDs) == 0 {
		return nil
	}

	g := e.orig
	first := e.lg.Edge(edgeIDs[0])
	geom := []LatLng{{Lat: g.NodeLat[first.From], Lng: g.NodeLon[first.From]}}

	for _, id := range edgeIDs {
		edge := e.lg.Edge(id)
		if g.GeoFirstOut != nil && id < uint32(len(g.GeoFirstOut)-1) {
			geoStart := g.GeoFirstOut[id]
			geoEnd := g.GeoFirstOut[id+1]
			for k := geoStart; k < geoEnd; k++ {
				geom = append(geom, LatLng{Lat: g.GeoShapeLat[k], Lng: g.GeoShapeLon[k]})
			}
		}
		geom = append(geom, LatLng{Lat: g.NodeLat[edge.To], Lng: g.NodeLon[edge.To]})
	}

	return geom
}
