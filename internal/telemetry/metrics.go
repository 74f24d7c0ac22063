package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ServerMetrics records one duration sample per request and counts
// responses per status class, keyed by chi route pattern.
type ServerMetrics struct {
	Duration  metric.Float64Histogram
	Responses metric.Int64Counter
}

// latency buckets in seconds; game-session initiation dominates the tail
var requestBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10}

func NewServerMetrics() (*ServerMetrics, error) {
	meter := otel.Meter("teroapi/http")
	duration, err := meter.Float64Histogram("tero.http.request.duration",
		metric.WithDescription("Time spent serving a request"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestBuckets...))
	if err != nil {
		return nil, err
	}
	responses, err := meter.Int64Counter("tero.http.responses",
		metric.WithDescription("Responses written, by status class"),
		metric.WithUnit("{response}"))
	if err != nil {
		return nil, err
	}
	return &ServerMetrics{Duration: duration, Responses: responses}, nil
}

// RecordRequest records a finished request.
func (m *ServerMetrics) RecordRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
	)
	m.Duration.Record(ctx, elapsed.Seconds(), attrs)
	m.Responses.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.String(AttrStatusClass, statusClass(status)),
	))
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}

// CacheMetrics counts page-cache lookups and invalidations.
type CacheMetrics struct {
	Hits          metric.Int64Counter
	Misses        metric.Int64Counter
	Invalidations metric.Int64Counter
}

// NewCacheMetrics creates metric instruments for the page cache.
func NewCacheMetrics() (*CacheMetrics, error) {
	meter := otel.Meter("teroapi/pagecache")

	hits, err := meter.Int64Counter("pagecache.hit.count",
		metric.WithDescription("Page cache lookups served from memory"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter("pagecache.miss.count",
		metric.WithDescription("Page cache lookups that ran the database query"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter("pagecache.invalidation.count",
		metric.WithDescription("Entries removed by targeted invalidation"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &CacheMetrics{Hits: hits, Misses: misses, Invalidations: invalidations}, nil
}

// RecordLookup counts a hit or a miss for the given game kind.
func (c *CacheMetrics) RecordLookup(ctx context.Context, kind string, hit bool) {
	if c == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrGameKind, kind))
	if hit {
		c.Hits.Add(ctx, 1, attrs)
		return
	}
	c.Misses.Add(ctx, 1, attrs)
}

// RecordInvalidation counts entries removed for the given game kind.
func (c *CacheMetrics) RecordInvalidation(ctx context.Context, kind string, removed int) {
	if c == nil || removed == 0 {
		return
	}
	c.Invalidations.Add(ctx, int64(removed), metric.WithAttributes(attribute.String(AttrGameKind, kind)))
}

// VaultMetrics tracks game key issuance.
type VaultMetrics struct {
	ActiveKeys metric.Int64UpDownCounter
	Issued     metric.Int64Counter
	Exhausted  metric.Int64Counter
	Reclaimed  metric.Int64Counter
}

// NewVaultMetrics creates metric instruments for the key vault.
func NewVaultMetrics() (*VaultMetrics, error) {
	meter := otel.Meter("teroapi/keyvault")

	active, err := meter.Int64UpDownCounter("keyvault.active_keys",
		metric.WithDescription("Game keys currently registered"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, err
	}

	issued, err := meter.Int64Counter("keyvault.issued.count",
		metric.WithDescription("Game keys issued"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, err
	}

	exhausted, err := meter.Int64Counter("keyvault.full_capacity.count",
		metric.WithDescription("Key requests rejected because every key was taken"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	reclaimed, err := meter.Int64Counter("keyvault.reclaimed.count",
		metric.WithDescription("Keys removed by the sweeper"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return nil, err
	}

	return &VaultMetrics{ActiveKeys: active, Issued: issued, Exhausted: exhausted, Reclaimed: reclaimed}, nil
}

// KeyIssued records a successful issuance.
func (v *VaultMetrics) KeyIssued(ctx context.Context, kind string) {
	if v == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrGameKind, kind))
	v.Issued.Add(ctx, 1, attrs)
	v.ActiveKeys.Add(ctx, 1)
}

// KeysRemoved records keys leaving the vault; reclaimed marks sweeper removals.
func (v *VaultMetrics) KeysRemoved(ctx context.Context, n int, reclaimed bool) {
	if v == nil || n == 0 {
		return
	}
	v.ActiveKeys.Add(ctx, -int64(n))
	if reclaimed {
		v.Reclaimed.Add(ctx, int64(n))
	}
}

// FullCapacity records a rejected issuance.
func (v *VaultMetrics) FullCapacity(ctx context.Context, kind string) {
	if v == nil {
		return
	}
	v.Exhausted.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrGameKind, kind)))
}

// Common metric attribute keys
const (
	AttrHTTPMethod  = "http.request.method"
	AttrHTTPRoute   = "http.route"
	AttrStatusClass = "http.response.status_class"

	AttrGameKind = "game.kind"
)
