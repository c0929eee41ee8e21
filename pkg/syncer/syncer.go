// Package syncer runs one full reconciliation: index the catalog, match the
// feed, deduplicate, push quantities, recover provisioning failures, and
// produce the run summary. Stages run strictly in sequence; the bulk write
// and the recovery pass are the only remote mutations.
package syncer

import (
	"context"
	"time"

	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/errors"
	"github.com/shelfsync/shelfsync/pkg/feed"
	"github.com/shelfsync/shelfsync/pkg/logging"
	"github.com/shelfsync/shelfsync/pkg/match"
	"github.com/shelfsync/shelfsync/pkg/push"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
	"github.com/shelfsync/shelfsync/pkg/report"
)

// Backend is the remote catalog collaborator the engine drives. One
// implementation covers listing, bulk writes, activation, and location
// resolution; the engine never sees wire shapes.
type Backend interface {
	catalog.Lister
	push.QuantityWriter
	push.Activator

	// ResolveLocation maps a human-readable location name to its internal
	// identifier. A name with no match must return errors.ErrNotFound.
	ResolveLocation(ctx context.Context, name string) (string, error)
}

// Config is the immutable configuration for one run. The engine performs no
// ambient lookups; everything it needs is here.
type Config struct {
	// LocationID targets the stock location directly. When empty,
	// LocationName is resolved through the backend instead.
	LocationID   string
	LocationName string

	// Mode selects the matching tiers (exact disables normalized lookup).
	Mode match.Mode

	// ChunkSize caps the rows per bulk write call. Zero means the default.
	ChunkSize int

	// FullSweep disables the defensive cap. When false, MaxUpdates bounds
	// the work list positionally after dedup.
	FullSweep  bool
	MaxUpdates int

	// DryRun stops after dedup: no remote mutation, the summary reports
	// what would have been written.
	DryRun bool

	// Delays. Zero takes the package defaults; negative disables the
	// delay entirely.
	ChunkDelay     time.Duration
	FailureBackoff time.Duration
	PageDelay      time.Duration
}

// Engine runs reconciliations against one backend.
type Engine struct {
	backend Backend
	cfg     Config
}

// New creates an Engine. The configuration is validated at run time, not
// here, so a misconfigured engine is still constructible for testing.
func New(backend Backend, cfg Config) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = match.ModeNormalize
	}
	return &Engine{backend: backend, cfg: cfg}
}

// Run executes one full reconciliation over the given feed. It always
// completes and returns a summary in the presence of transport and row
// errors; only configuration problems abort before any remote mutation.
func (e *Engine) Run(ctx context.Context, rows []feed.Row, remap feed.Remap) (*report.Summary, error) {
	log := logging.Ctx(ctx)
	summary := &report.Summary{StartedAt: time.Now()}

	locationID, err := e.resolveLocation(ctx)
	if err != nil {
		return nil, err
	}
	summary.LocationID = locationID
	ctx = logging.WithLocation(ctx, locationID)

	index, err := e.buildIndex(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := match.Match(rows, index, remap, e.cfg.Mode)
	summary.Aggregate(outcomes)

	items := reconcile.Dedupe(reconcile.MatchedOnly(outcomes))
	if !e.cfg.FullSweep {
		capped := reconcile.Cap(items, e.cfg.MaxUpdates)
		if len(capped) < len(items) {
			log.Warn().
				Int("dropped", len(items)-len(capped)).
				Int("cap", e.cfg.MaxUpdates).
				Msg("Work list truncated, full sweep disabled")
		}
		items = capped
	}
	summary.WorkItems = len(items)

	log.Info().
		Int("feed_rows", len(rows)).
		Int("matched", summary.Matched()).
		Int("ambiguous", summary.Ambiguous).
		Int("missed", summary.Missed).
		Int("work_items", len(items)).
		Msg("Reconciliation planned")

	if e.cfg.DryRun {
		log.Info().Msg("Dry run, skipping writes")
		summary.FinishedAt = time.Now()
		return summary, nil
	}

	writer := push.NewWriter(e.backend, locationID, e.writerOptions()...)
	result := writer.Write(ctx, items)

	// Provisioning failures get one structured retry; anything else stays
	// in the final tally.
	remaining := result.RowErrors
	result.RowErrors = nil
	if len(remaining) > 0 {
		recoverer := push.NewRecoverer(writer, e.backend, locationID)
		retry, left := recoverer.Recover(ctx, remaining)
		result.Merge(retry)
		remaining = left
	}

	summary.RecordWrites(result, remaining)
	summary.FinishedAt = time.Now()

	log.Info().
		Int("updated", summary.Updated).
		Int("errored", summary.Errored).
		Msg("Reconciliation finished")

	return summary, nil
}

// resolveLocation returns the target location id, resolving the configured
// name when no id was supplied. Failure here is a ConfigError: fatal, and
// prior to any remote mutation.
func (e *Engine) resolveLocation(ctx context.Context) (string, error) {
	if e.cfg.LocationID != "" {
		return e.cfg.LocationID, nil
	}
	if e.cfg.LocationName == "" {
		return "", errors.NewConfigError("location", "a stock location id or name is required", nil)
	}

	id, err := e.backend.ResolveLocation(ctx, e.cfg.LocationName)
	if err != nil {
		return "", errors.NewConfigError("location", "cannot resolve location "+e.cfg.LocationName, err)
	}
	return id, nil
}

// buildIndex pages the catalog listing source to exhaustion.
func (e *Engine) buildIndex(ctx context.Context) (*catalog.Index, error) {
	var opts []catalog.BuilderOption
	if e.cfg.PageDelay != 0 {
		opts = append(opts, catalog.WithPageDelay(e.cfg.PageDelay))
	}
	return catalog.NewBuilder(e.backend, opts...).Build(ctx)
}

// writerOptions translates the run config into bulk writer options.
func (e *Engine) writerOptions() []push.WriterOption {
	var opts []push.WriterOption
	if e.cfg.ChunkSize > 0 {
		opts = append(opts, push.WithChunkSize(e.cfg.ChunkSize))
	}
	if e.cfg.ChunkDelay != 0 {
		opts = append(opts, push.WithChunkDelay(e.cfg.ChunkDelay))
	}
	if e.cfg.FailureBackoff != 0 {
		opts = append(opts, push.WithFailureBackoff(e.cfg.FailureBackoff))
	}
	return opts
}
