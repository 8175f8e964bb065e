// Package engine implements the two core operations of the batch-record
// service: allocating sequential document numbers for a category and date,
// and reconciling scanned label text against the week's pending batches.
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/adiwp/lotno/internal/clock"
	"github.com/adiwp/lotno/internal/storage"
)

// Engine coordinates allocation and reconciliation on top of a storage
// backend. The clock and location are injected so the week window is
// deterministic in tests.
type Engine struct {
	store storage.Storage
	clock clock.Clock
	loc   *time.Location
	log   *zap.Logger
}

// New creates an engine. A nil clock defaults to the system clock, a nil
// location to UTC, and a nil logger to a no-op logger.
func New(store storage.Storage, clk clock.Clock, loc *time.Location, log *zap.Logger) *Engine {
	if clk == nil {
		clk = clock.System()
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store: store,
		clock: clk,
		loc:   loc,
		log:   log,
	}
}
