package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/acs-harvest/pkg/assemble"
	"github.com/Sternrassler/acs-harvest/pkg/catalog"
	"github.com/Sternrassler/acs-harvest/pkg/client"
	"github.com/Sternrassler/acs-harvest/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Prometheus metrics for harvest progress.
var (
	acsScopesHarvestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acs_scopes_harvested_total",
		Help: "Total number of scopes fully harvested",
	})

	acsRecordsAssembledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acs_records_assembled_total",
		Help: "Total number of records assembled from batch responses",
	})

	acsScopeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "acs_scope_duration_seconds",
		Help:    "Time to fetch and assemble one scope",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)

var (
	// ErrUnknownScope is returned when a requested scope code is not offered
	// by the API.
	ErrUnknownScope = errors.New("unknown scope")

	// ErrEmptyCatalog is returned when the catalog has no codes to query.
	ErrEmptyCatalog = errors.New("catalog has no codes")
)

// JoinMode selects how batch responses for one scope are combined.
type JoinMode string

const (
	// JoinPosition pairs rows by index.
	JoinPosition JoinMode = "position"

	// JoinKey pairs rows on their geographic identifier columns.
	JoinKey JoinMode = "key"
)

// ParseJoinMode converts s to a JoinMode. Empty selects JoinPosition.
func ParseJoinMode(s string) (JoinMode, error) {
	switch JoinMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", JoinPosition:
		return JoinPosition, nil
	case JoinKey:
		return JoinKey, nil
	default:
		return "", fmt.Errorf("invalid join mode %q (want %q or %q)", s, JoinPosition, JoinKey)
	}
}

// Fetcher is the interface the Census client must implement for harvesting.
type Fetcher interface {
	// Scopes lists the top-level geographic scopes in API order.
	Scopes(ctx context.Context) ([]client.Scope, error)

	// FetchScope returns the response for codes across every unit in scope.
	FetchScope(ctx context.Context, scope client.Scope, codes []string) (assemble.Table, error)
}

// Config holds harvester configuration.
type Config struct {
	// BatchSize is the number of catalog codes per query.
	BatchSize int

	// Concurrency is the number of scopes harvested at the same time.
	Concurrency int

	// ParallelBatches issues a scope's batch queries concurrently.
	ParallelBatches bool

	// Join selects positional or key-based merging.
	Join JoinMode

	// States restricts the run to these scope codes; empty means all.
	States []string

	// ScopeTimeout bounds one scope's fetch and assembly (0 = no limit).
	ScopeTimeout time.Duration
}

// DefaultConfig returns the sequential, positional configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:   catalog.DefaultBatchSize,
		Concurrency: 1,
		Join:        JoinPosition,
	}
}

// Harvester fetches and assembles records for every scope.
type Harvester struct {
	fetcher   Fetcher
	assembler *assemble.Assembler
	batches   [][]string
	config    Config
	logger    zerolog.Logger
}

// New creates a harvester querying the codes of cat.
func New(fetcher Fetcher, cat *catalog.Catalog, cfg Config) (*Harvester, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = catalog.DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Join == "" {
		cfg.Join = JoinPosition
	}
	if _, err := ParseJoinMode(string(cfg.Join)); err != nil {
		return nil, err
	}

	batches := cat.Batches(cfg.BatchSize)
	if len(batches) == 0 {
		return nil, ErrEmptyCatalog
	}

	return &Harvester{
		fetcher:   fetcher,
		assembler: assemble.New(cat),
		batches:   batches,
		config:    cfg,
		logger:    logging.NewLogger("harvest"),
	}, nil
}

// Batches returns the code batches queried for every scope.
func (h *Harvester) Batches() [][]string {
	return h.batches
}

// Run harvests every selected scope and returns all records, ordered by scope
// and then by row. Any error aborts the run and no records are returned.
func (h *Harvester) Run(ctx context.Context) ([]*assemble.Record, error) {
	start := time.Now()

	scopes, err := h.fetcher.Scopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate scopes: %w", err)
	}
	scopes, err = FilterScopes(scopes, h.config.States)
	if err != nil {
		return nil, err
	}

	h.logger.Info().
		Int("scopes", len(scopes)).
		Int("batches", len(h.batches)).
		Int("concurrency", h.config.Concurrency).
		Str("join", string(h.config.Join)).
		Msg("Starting harvest")

	results := make([][]*assemble.Record, len(scopes))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.Concurrency)
	for i, scope := range scopes {
		g.Go(func() error {
			records, err := h.HarvestScope(gctx, scope)
			if err != nil {
				return fmt.Errorf("scope %s (%s): %w", scope.Name, scope.Code, err)
			}
			results[i] = records

			n := done.Add(1)
			h.logger.Debug().
				Int32("done", n).
				Int("total", len(scopes)).
				Float64("progress_pct", float64(n)/float64(len(scopes))*100).
				Msg("Harvest progress")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	records := make([]*assemble.Record, 0, total)
	for _, r := range results {
		records = append(records, r...)
	}

	h.logger.Info().
		Int("scopes", len(scopes)).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Harvest complete")

	return records, nil
}

// HarvestScope issues one query per batch for scope and merges the responses.
func (h *Harvester) HarvestScope(ctx context.Context, scope client.Scope) ([]*assemble.Record, error) {
	start := time.Now()
	h.logger.Info().Str("scope", scope.Name).Str("code", scope.Code).Msg("Harvesting scope")

	if h.config.ScopeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.ScopeTimeout)
		defer cancel()
	}

	tables, err := h.fetchBatches(ctx, scope)
	if err != nil {
		return nil, err
	}

	var records []*assemble.Record
	switch h.config.Join {
	case JoinKey:
		records, err = h.assembler.MergeByKey(assemble.GeoKeys(tables[0]), tables...)
		if err != nil {
			return nil, fmt.Errorf("merge by key: %w", err)
		}
	default:
		records = h.assembler.MergeAll(tables...)
	}

	for i, t := range tables[1:] {
		if t.Len() != tables[0].Len() {
			h.logger.Warn().
				Str("scope", scope.Code).
				Int("batch", i+1).
				Int("rows", t.Len()).
				Int("first_batch_rows", tables[0].Len()).
				Msg("Batch row counts differ")
		}
	}

	acsScopesHarvestedTotal.Inc()
	acsRecordsAssembledTotal.Add(float64(len(records)))
	acsScopeDuration.Observe(time.Since(start).Seconds())

	h.logger.Debug().
		Str("scope", scope.Code).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Scope assembled")

	return records, nil
}

// fetchBatches returns the batch responses in batch order.
func (h *Harvester) fetchBatches(ctx context.Context, scope client.Scope) ([]assemble.Table, error) {
	tables := make([]assemble.Table, len(h.batches))

	if !h.config.ParallelBatches {
		for i, codes := range h.batches {
			t, err := h.fetcher.FetchScope(ctx, scope, codes)
			if err != nil {
				return nil, fmt.Errorf("batch %d: %w", i+1, err)
			}
			tables[i] = t
		}
		return tables, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, codes := range h.batches {
		g.Go(func() error {
			t, err := h.fetcher.FetchScope(gctx, scope, codes)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i+1, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// FilterScopes keeps the scopes whose code is in codes, preserving API order.
// An empty codes list keeps everything. Codes not offered by the API are an
// error.
func FilterScopes(scopes []client.Scope, codes []string) ([]client.Scope, error) {
	if len(codes) == 0 {
		return scopes, nil
	}

	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = false
	}

	filtered := make([]client.Scope, 0, len(codes))
	for _, s := range scopes {
		if _, ok := want[s.Code]; ok {
			want[s.Code] = true
			filtered = append(filtered, s)
		}
	}

	var missing []string
	for _, c := range codes {
		if !want[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, strings.Join(missing, ","))
	}
	return filtered, nil
}
