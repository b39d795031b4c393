package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"
)

const (
	magicBytes = "MPROUTER"
	version    = uint32(3) // v3: LevelGraph-based prepared format
	maxNodes   = 10_000_000
	maxEdges   = 50_000_000
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic      [8]byte
	Version    uint32
	NumNodes   uint32
	NumEdges   uint32 // LevelGraph edge count, original + shortcuts
	NumOrigEdges uint32 // base Graph edge count, for snapping
	NumGeoPts  uint32 // total geometry shape points across all original edges
}

// Prepared is the binary-serializable result of a finished preprocessing run:
// the contracted LevelGraph the query engine searches, plus the original
// base Graph the snapper and geometry builder consult at query time. They
// are written and read together because a LevelGraph alone has no
// coordinates or shape points — only travel weights and adjacency.
type Prepared struct {
	LG   *LevelGraph
	Orig *Graph
}

// WriteBinary serializes a finished preparation to a binary file. Uses
// unsafe.Slice for fast zero-copy I/O on the fixed-width arrays.
func WriteBinary(path string, p *Prepared) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &crcWriter

	edges := p.LG.AllEdges()
	numNodes := p.LG.NumNodes()
	numEdges := uint32(len(edges))
	numOrigEdges := p.Orig.NumEdges
	numGeoPts := uint32(len(p.Orig.GeoShapeLat))

	hdr := fileHeader{
		Version:      version,
		NumNodes:     numNodes,
		NumEdges:     numEdges,
		NumOrigEdges: numOrigEdges,
		NumGeoPts:    numGeoPts,
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Node coordinates, shared by the LevelGraph and the original Graph.
	if err := writeFloat64Slice(w, p.Orig.NodeLat); err != nil {
		return fmt.Errorf("write NodeLat: %w", err)
	}
	if err := writeFloat64Slice(w, p.Orig.NodeLon); err != nil {
		return fmt.Errorf("write NodeLon: %w", err)
	}

	// LevelGraph: per-node level, then edges in id order.
	levels := make([]uint32, numNodes)
	for n := uint32(0); n < numNodes; n++ {
		levels[n] = p.LG.GetLevel(n)
	}
	if err := writeUint32Slice(w, levels); err != nil {
		return fmt.Errorf("write levels: %w", err)
	}

	from := make([]uint32, numEdges)
	to := make([]uint32, numEdges)
	weight := make([]float64, numEdges)
	flags := make([]byte, numEdges)
	skipped := make([]uint32, numEdges)
	for i, e := range edges {
		from[i], to[i] = e.From, e.To
		weight[i] = e.Weight
		flags[i] = byte(e.Flags)
		skipped[i] = e.Skipped
	}
	if err := writeUint32Slice(w, from); err != nil {
		return fmt.Errorf("write edge From: %w", err)
	}
	if err := writeUint32Slice(w, to); err != nil {
		return fmt.Errorf("write edge To: %w", err)
	}
	if err := writeFloat64Slice(w, weight); err != nil {
		return fmt.Errorf("write edge Weight: %w", err)
	}
	if _, err := w.Write(flags); err != nil {
		return fmt.Errorf("write edge Flags: %w", err)
	}
	if err := writeUint32Slice(w, skipped); err != nil {
		return fmt.Errorf("write edge Skipped: %w", err)
	}

	// Original base graph, for snapping and geometry.
	if err := writeUint32Slice(w, p.Orig.FirstOut); err != nil {
		return fmt.Errorf("write FirstOut: %w", err)
	}
	if err := writeUint32Slice(w, p.Orig.Head); err != nil {
		return fmt.Errorf("write Head: %w", err)
	}
	if err := writeUint32Slice(w, p.Orig.Weight); err != nil {
		return fmt.Errorf("write Weight: %w", err)
	}
	if err := writeUint32Slice(w, p.Orig.GeoFirstOut); err != nil {
		return fmt.Errorf("write GeoFirstOut: %w", err)
	}
	if err := writeFloat64Slice(w, p.Orig.GeoShapeLat); err != nil {
		return fmt.Errorf("write GeoShapeLat: %w", err)
	}
	if err := writeFloat64Slice(w, p.Orig.GeoShapeLon); err != nil {
		return fmt.Errorf("write GeoShapeLon: %w", err)
	}

	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// ReadBinary deserializes a Prepared from a binary file.
func ReadBinary(path string) (*Prepared, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &crcReader

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges || hdr.NumOrigEdges > maxEdges {
		return nil, fmt.Errorf("edge count exceeds limit %d", maxEdges)
	}

	nodeLat, err := readFloat64Slice(r, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("read NodeLat: %w", err)
	}
	nodeLon, err := readFloat64Slice(r, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("read NodeLon: %w", err)
	}

	levels, err := readUint32Slice(r, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("read levels: %w", err)
	}

	from, err := readUint32Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read edge From: %w", err)
	}
	to, err := readUint32Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read edge To: %w", err)
	}
	weight, err := readFloat64Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read edge Weight: %w", err)
	}
	flags := make([]byte, hdr.NumEdges)
	if hdr.NumEdges > 0 {
		if _, err := io.ReadFull(r, flags); err != nil {
			return nil, fmt.Errorf("read edge Flags: %w", err)
		}
	}
	skipped, err := readUint32Slice(r, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("read edge Skipped: %w", err)
	}

	origFirstOut, err := readUint32Slice(r, int(hdr.NumNodes+1))
	if err != nil {
		return nil, fmt.Errorf("read FirstOut: %w", err)
	}
	origHead, err := readUint32Slice(r, int(hdr.NumOrigEdges))
	if err != nil {
		return nil, fmt.Errorf("read Head: %w", err)
	}
	origWeight, err := readUint32Slice(r, int(hdr.NumOrigEdges))
	if err != nil {
		return nil, fmt.Errorf("read Weight: %w", err)
	}
	geoFirstOut, err := readUint32Slice(r, int(hdr.NumOrigEdges+1))
	if err != nil {
		return nil, fmt.Errorf("read GeoFirstOut: %w", err)
	}
	geoShapeLat, err := readFloat64Slice(r, int(hdr.NumGeoPts))
	if err != nil {
		return nil, fmt.Errorf("read GeoShapeLat: %w", err)
	}
	geoShapeLon, err := readFloat64Slice(r, int(hdr.NumGeoPts))
	if err != nil {
		return nil, fmt.Errorf("read GeoShapeLon: %w", err)
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := validateCSR(origFirstOut, origHead, hdr.NumNodes); err != nil {
		return nil, fmt.Errorf("original graph CSR invalid: %w", err)
	}

	lg := NewLevelGraph(hdr.NumNodes)
	for n := uint32(0); n < hdr.NumNodes; n++ {
		lg.SetLevel(n, levels[n])
	}
	for i := uint32(0); i < hdr.NumEdges; i++ {
		id := lg.AddEdge(from[i], to[i], weight[i], Flags(flags[i]))
		if skipped[i] != NoEdge {
			lg.SetSkipped(id, skipped[i])
		}
	}

	orig := &Graph{
		NumNodes:    hdr.NumNodes,
		NumEdges:    hdr.NumOrigEdges,
		FirstOut:    origFirstOut,
		Head:        origHead,
		Weight:      origWeight,
		NodeLat:     nodeLat,
		NodeLon:     nodeLon,
		GeoFirstOut: geoFirstOut,
		GeoShapeLat: geoShapeLat,
		GeoShapeLon: geoShapeLon,
	}

	return &Prepared{LG: lg, Orig: orig}, nil
}

// validateCSR checks CSR invariants.
func validateCSR(firstOut, head []uint32, numNodes uint32) error {
	if uint32(len(firstOut)) != numNodes+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(firstOut), numNodes+1)
	}
	numEdges := firstOut[numNodes]
	if uint32(len(head)) != numEdges {
		return fmt.Errorf("Head length %d != FirstOut[NumNodes] %d", len(head), numEdges)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	for i, h := range head {
		if h >= numNodes {
			return fmt.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, numNodes)
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
