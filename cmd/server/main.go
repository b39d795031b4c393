package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nrstott/chcore/pkg/api"
	"github.com/nrstott/chcore/pkg/graph"
	"github.com/nrstott/chcore/pkg/routing"
)

func main() {
	graphPath := flag.String("graph", "graph.bin", "Path to preprocessed graph binary")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	start := time.Now()

	// Load graph.
	log.Printf("Loading graph from %s...", *graphPath)
	prepared, err := graph.ReadBinary(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	log.Printf("Loaded: %d nodes, %d edges (original + shortcuts)",
		prepared.LG.NumNodes(), len(prepared.LG.AllEdges()))

	// Build routing engine.
	log.Println("Building R-tree spatial index...")
	engine := routing.NewEngine(prepared.LG, prepared.Orig)

	loadTime := time.Since(start)
	log.Printf("Ready in %s", loadTime.Round(time.Millisecond))

	// Setup HTTP server.
	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	var numShortcuts int
	for _, e := range prepared.LG.AllEdges() {
		if e.IsShortcut() {
			numShortcuts++
		}
	}

	stats := api.StatsResponse{
		NumNodes:     prepared.LG.NumNodes(),
		NumEdges:     len(prepared.LG.AllEdges()),
		NumOrigEdges: int(prepared.Orig.NumEdges),
		NumShortcuts: numShortcuts,
	}

	handlers := api.NewHandlers(engine, stats)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
