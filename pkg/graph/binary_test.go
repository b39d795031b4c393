package graph_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"

	"github.com/nrstott/chcore/pkg/ch"
	"github.com/nrstott/chcore/pkg/graph"
	osmparser "github.com/nrstott/chcore/pkg/osm"
)

func buildTestPrepared(t *testing.T) *graph.Prepared {
	t.Helper()
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 10, ToNodeID: 20, Weight: 100},
			{FromNodeID: 20, ToNodeID: 10, Weight: 100},
			{FromNodeID: 20, ToNodeID: 30, Weight: 200},
			{FromNodeID: 30, ToNodeID: 20, Weight: 200},
			{FromNodeID: 10, ToNodeID: 40, Weight: 300},
			{FromNodeID: 40, ToNodeID: 10, Weight: 300},
		},
		NodeLat: map[osm.NodeID]float64{10: 1.0, 20: 1.1, 30: 1.2, 40: 1.3},
		NodeLon: map[osm.NodeID]float64{10: 103.0, 20: 103.1, 30: 103.2, 40: 103.3},
	}
	orig := graph.Build(result)
	lg := orig.ToLevelGraph()
	p := ch.NewPreprocessor()
	p.SetGraph(lg)
	if err := p.DoWork(); err != nil {
		t.Fatalf("DoWork: %v", err)
	}
	return &graph.Prepared{LG: lg, Orig: orig}
}

func TestBinaryRoundTrip(t *testing.T) {
	original := buildTestPrepared(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "test.graph.bin")

	if err := graph.WriteBinary(path, original); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}

	loaded, err := graph.ReadBinary(path)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}

	if loaded.LG.NumNodes() != original.LG.NumNodes() {
		t.Errorf("NumNodes: got %d, want %d", loaded.LG.NumNodes(), original.LG.NumNodes())
	}

	for i := uint32(0); i < original.LG.NumNodes(); i++ {
		if loaded.Orig.NodeLat[i] != original.Orig.NodeLat[i] {
			t.Errorf("NodeLat[%d]: got %f, want %f", i, loaded.Orig.NodeLat[i], original.Orig.NodeLat[i])
		}
		if loaded.LG.GetLevel(i) != original.LG.GetLevel(i) {
			t.Errorf("GetLevel(%d): got %d, want %d", i, loaded.LG.GetLevel(i), original.LG.GetLevel(i))
		}
	}

	origEdges := original.LG.AllEdges()
	loadedEdges := loaded.LG.AllEdges()
	if len(loadedEdges) != len(origEdges) {
		t.Fatalf("edge count: got %d, want %d", len(loadedEdges), len(origEdges))
	}
	for i := range origEdges {
		if loadedEdges[i] != origEdges[i] {
			t.Errorf("edge %d: got %+v, want %+v", i, loadedEdges[i], origEdges[i])
		}
	}

	if len(loaded.Orig.Head) != len(original.Orig.Head) {
		t.Fatalf("Head length: got %d, want %d", len(loaded.Orig.Head), len(original.Orig.Head))
	}
	for i := range original.Orig.Head {
		if loaded.Orig.Head[i] != original.Orig.Head[i] {
			t.Errorf("Head[%d]: got %d, want %d", i, loaded.Orig.Head[i], original.Orig.Head[i])
		}
		if loaded.Orig.Weight[i] != original.Orig.Weight[i] {
			t.Errorf("Weight[%d]: got %d, want %d", i, loaded.Orig.Weight[i], original.Orig.Weight[i])
		}
	}
}

func TestBinaryInvalidMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.graph.bin")
	os.WriteFile(path, []byte("NOT_MPROUTER_HEADER_BLAH_BLAH_BLAH_MORE_DATA"), 0644)

	_, err := graph.ReadBinary(path)
	if err == nil {
		t.Fatal("expected error for invalid magic bytes")
	}
}

func TestBinaryTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "truncated.graph.bin")
	os.WriteFile(path, []byte("MPROUTER"), 0644)

	_, err := graph.ReadBinary(path)
	if err == nil {
		t.Fatal("expected error for truncated file")
	}
}
