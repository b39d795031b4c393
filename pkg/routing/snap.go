package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"github.com/nrstott/chcore/pkg/geo"
	"github.com/nrstott/chcore/pkg/graph"
)

const maxSnapDistMeters = 500.0

// snapSearchMarginDeg bounds the R-tree query box around a point. 0.02° is
// roughly 2.2 km at the equator, comfortably covering maxSnapDistMeters with
// margin for the degree/meter ratio shrinking away from the equator.
const snapSearchMarginDeg = 0.02

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult represents a point snapped to a road segment.
type SnapResult struct {
	EdgeIdx uint32  // index into the original graph's edge arrays
	NodeU   uint32  // source node of the edge
	NodeV   uint32  // target node of the edge
	Ratio   float64 // 0.0 = at NodeU, 1.0 = at NodeV
	Dist    float64 // distance in meters from query point to snapped point
}

// edgeRef is the payload an R-tree leaf carries: enough to recover an edge's
// endpoints without a reverse lookup into the CSR structure.
type edgeRef struct {
	edgeIdx uint32
	from    uint32
}

// Snapper finds the nearest road segment to an arbitrary lat/lng using an
// R-tree spatial index over every original edge's bounding box.
type Snapper struct {
	tree *rtree.RTree
	g    *graph.Graph
}

// NewSnapper builds an R-tree spatial index from the original graph's edges.
func NewSnapper(g *graph.Graph) *Snapper {
	tree := &rtree.RTree{}
	for u := uint32(0); u < g.NumNodes; u++ {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			uLat, uLon := g.NodeLat[u], g.NodeLon[u]
			vLat, vLon := g.NodeLat[v], g.NodeLon[v]

			min := [2]float64{math.Min(uLon, vLon), math.Min(uLat, vLat)}
			max := [2]float64{math.Max(uLon, vLon), math.Max(uLat, vLat)}
			tree.Insert(min, max, edgeRef{edgeIdx: e, from: u})
		}
	}
	return &Snapper{tree: tree, g: g}
}

// Snap finds the nearest road segment to the given lat/lng.
func (s *Snapper) Snap(lat, lng float64) (SnapResult, error) {
	min := [2]float64{lng - snapSearchMarginDeg, lat - snapSearchMarginDeg}
	max := [2]float64{lng + snapSearchMarginDeg, lat + snapSearchMarginDeg}

	bestDist := math.Inf(1)
	var bestResult SnapResult
	found := false

	s.tree.Search(min, max, func(_, _ [2]float64, value interface{}) bool {
		ref := value.(edgeRef)
		u, v := ref.from, s.g.Head[ref.edgeIdx]

		exactDist, ratio := geo.PointToSegmentDist(
			lat, lng,
			s.g.NodeLat[u], s.g.NodeLon[u],
			s.g.NodeLat[v], s.g.NodeLon[v],
		)

		if exactDist < bestDist {
			bestDist = exactDist
			found = true
			bestResult = SnapResult{
				EdgeIdx: ref.edgeIdx,
				NodeU:   u,
				NodeV:   v,
				Ratio:   ratio,
				Dist:    exactDist,
			}
		}
		return true
	})

	if !found || bestDist > maxSnapDistMeters {
		return SnapResult{}, ErrPointTooFar
	}

	return bestResult, nil
}
