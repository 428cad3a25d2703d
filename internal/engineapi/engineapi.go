// Package engineapi implements the engine's external request surface (spec
// §6): a transport-agnostic call/response boundary the host shell drives
// directly (in-process), wiring together the coordinator, the record
// reader, the secondary index, and the recent-file list behind one set of
// validated operations. Every public method here is one row of the
// "Request API" table; validation failures are returned as ordinary Go
// errors wrapping internal/enginerr.ErrValidation, ready for
// enginerr.Payload() to render into the {error: "..."} shape.
package engineapi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/dataexplorer/engine/internal/catalog"
	"github.com/dataexplorer/engine/internal/config"
	"github.com/dataexplorer/engine/internal/coordinator"
	"github.com/dataexplorer/engine/internal/enginelog"
	"github.com/dataexplorer/engine/internal/reader"
	"github.com/dataexplorer/engine/internal/searchindex"
	"github.com/dataexplorer/engine/internal/simd"
)

// Engine is the host shell's single entry point into the indexing/query
// engine. One Engine owns one indexDir and one search.db.
type Engine struct {
	cfg      config.EngineConfig
	indexDir string
	log      zerolog.Logger

	idx    *searchindex.Index
	rdr    *reader.Reader
	coord  *coordinator.Coordinator
	recent *catalog.RecentList
}

// Open wires up an Engine rooted at cfg.IndexDir: opens (or creates)
// search.db, constructs the record reader and coordinator, loads
// recent.json, and runs startup housekeeping (legacy sidecar migration,
// then stale-row purge) before marking the reader ready. Startup
// housekeeping runs synchronously so no page/search call can race it; for
// a large backlog of legacy sidecars a host that wants a faster cold start
// can call Open from a background goroutine and hold off issuing requests
// until it returns.
func Open(cfg config.EngineConfig) (*Engine, error) {
	log := enginelog.Component(enginelog.New(), "engineapi")

	if err := os.MkdirAll(cfg.IndexDir, 0755); err != nil {
		return nil, fmt.Errorf("engineapi: create index dir %s: %w", cfg.IndexDir, err)
	}

	idx, err := searchindex.Open(filepath.Join(cfg.IndexDir, "search.db"))
	if err != nil {
		return nil, fmt.Errorf("engineapi: open search index: %w", err)
	}

	recent, err := catalog.OpenRecentList(cfg.IndexDir)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("engineapi: open recent list: %w", err)
	}

	rdr := reader.NewFromConfig(idx, cfg.IndexDir, cfg)
	coord := coordinator.New(idx, rdr, log)

	e := &Engine{cfg: cfg, indexDir: cfg.IndexDir, log: log, idx: idx, rdr: rdr, coord: coord, recent: recent}

	ctx := context.Background()
	if err := catalog.MigrateLegacy(ctx, idx, cfg.IndexDir, log); err != nil {
		idx.Close()
		return nil, fmt.Errorf("engineapi: migrate legacy sidecars: %w", err)
	}
	if err := catalog.PurgeStale(idx, cfg.IndexDir, recent, log); err != nil {
		idx.Close()
		return nil, fmt.Errorf("engineapi: purge stale catalog rows: %w", err)
	}
	rdr.MarkReady()

	log.Info().Str("simd_tier", simd.DetectedTier).Str("index_dir", cfg.IndexDir).Msg("engine ready")
	return e, nil
}

// Close releases the underlying search.db handle.
func (e *Engine) Close() error {
	return e.idx.Close()
}
