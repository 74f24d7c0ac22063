// Package keyvault issues the short two-word keys players use to join
// interactive game sessions.
//
// Keys live only in memory. A key is held from issuance until the session
// service frees it, or until the hourly sweep reclaims it.
package keyvault

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/Amund-Fremming/tero.platform/internal/services/syslog"
	"github.com/Amund-Fremming/tero.platform/internal/telemetry"
)

const (
	// KeyTTL is how long a key may stay registered before the sweep reclaims it.
	KeyTTL = time.Hour
	// SweepInterval is the period of RunSweeper.
	SweepInterval = time.Hour

	randomAttempts = 100
)

// ErrFullCapacity is returned when every prefix/suffix pair is in use.
var ErrFullCapacity = errors.New("key vault at full capacity")

type entry struct {
	kind     games.Kind
	issuedAt int64
}

// Vault is safe for concurrent use.
type Vault struct {
	prefix []string
	suffix []string

	keys sync.Map // Key -> entry
	size atomic.Int64

	rngMu sync.Mutex
	rng   *rand.Rand

	now     func() time.Time
	audit   *syslog.Logger
	metrics *telemetry.VaultMetrics
	log     logrus.FieldLogger
}

// Option configures a Vault.
type Option func(*Vault)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

// WithAudit records capacity exhaustion and reclaimed keys in the system log.
func WithAudit(audit *syslog.Logger) Option {
	return func(v *Vault) { v.audit = audit }
}

func WithMetrics(m *telemetry.VaultMetrics) Option {
	return func(v *Vault) { v.metrics = m }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(v *Vault) { v.log = log }
}

// New builds a vault over the given word lists. The lists are copied.
func New(prefix, suffix []string, opts ...Option) (*Vault, error) {
	if err := ValidateWords(prefix, suffix); err != nil {
		return nil, err
	}

	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("seed key vault rng: %w", err)
	}

	v := &Vault{
		prefix: append([]string(nil), prefix...),
		suffix: append([]string(nil), suffix...),
		rng:    rand.New(rand.NewChaCha8(seed)),
		now:    time.Now,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.log = v.log.WithField("component", "keyvault")
	return v, nil
}

// Capacity is the number of distinct keys the vault can hold.
func (v *Vault) Capacity() int {
	return len(v.prefix) * len(v.suffix)
}

// Len is the number of registered keys.
func (v *Vault) Len() int {
	return int(v.size.Load())
}

// CreateKey registers and returns a free key for kind.
//
// Up to randomAttempts random pairs are tried first; when they all collide the
// pairs are walked in order, so a key is found whenever one is free.
func (v *Vault) CreateKey(ctx context.Context, kind games.Kind) (Key, error) {
	issuedAt := v.now().Unix()
	n := len(v.prefix)

	for range randomAttempts {
		i, j := v.draw(n)
		if key, ok := v.tryInsert(ctx, i, j, kind, issuedAt); ok {
			return key, nil
		}
	}

	for i := range n {
		for j := range n {
			if key, ok := v.tryInsert(ctx, i, j, kind, issuedAt); ok {
				return key, nil
			}
		}
	}

	v.metrics.FullCapacity(ctx, kind.String())
	if v.audit != nil {
		v.audit.Entry().
			Action(models.ActionCreate).
			Severity(models.SeverityCritical).
			Function("create_key").
			Descriptionf("Key vault is at full capacity (%d keys)", v.Capacity()).
			Metadata(map[string]any{"game_kind": kind.String(), "capacity": v.Capacity()}).
			Dispatch()
	}
	return Key{}, ErrFullCapacity
}

func (v *Vault) draw(n int) (int, int) {
	v.rngMu.Lock()
	defer v.rngMu.Unlock()
	return v.rng.IntN(n), v.rng.IntN(n)
}

func (v *Vault) tryInsert(ctx context.Context, i, j int, kind games.Kind, issuedAt int64) (Key, bool) {
	key := Key{Prefix: v.prefix[i], Suffix: v.suffix[j]}
	if _, loaded := v.keys.LoadOrStore(key, entry{kind: kind, issuedAt: issuedAt}); loaded {
		return Key{}, false
	}
	v.size.Add(1)
	v.metrics.KeyIssued(ctx, kind.String())
	return key, true
}

// KeyActive returns the kind the key was issued for. It does not extend the
// key's lifetime.
func (v *Vault) KeyActive(key Key) (games.Kind, bool) {
	val, ok := v.keys.Load(key)
	if !ok {
		return "", false
	}
	return val.(entry).kind, true
}

// RemoveKey frees key. Removing an unknown key is a no-op.
func (v *Vault) RemoveKey(ctx context.Context, key Key) {
	if _, loaded := v.keys.LoadAndDelete(key); loaded {
		v.size.Add(-1)
		v.metrics.KeysRemoved(ctx, 1, false)
	}
}

// Sweep removes keys issued KeyTTL or longer ago and returns how many were
// removed. Keys added while the sweep runs are kept.
func (v *Vault) Sweep(ctx context.Context) int {
	now := v.now().Unix()
	if now <= 0 {
		v.log.WithField("unix", now).Warn("clock unavailable, skipping key sweep")
		return 0
	}
	threshold := now - int64(KeyTTL/time.Second)

	removed := 0
	v.keys.Range(func(k, val any) bool {
		if val.(entry).issuedAt <= threshold && v.keys.CompareAndDelete(k, val) {
			removed++
		}
		return true
	})
	if removed == 0 {
		return 0
	}

	v.size.Add(-int64(removed))
	v.metrics.KeysRemoved(ctx, removed, true)
	// Live sessions free their own keys; anything left here was abandoned.
	if v.audit != nil {
		v.audit.Entry().
			Action(models.ActionDelete).
			Severity(models.SeverityWarning).
			Function("sweep_keys").
			Descriptionf("Reclaimed %d abandoned game keys", removed).
			Metadata(map[string]any{"removed": removed}).
			Dispatch()
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done.
func (v *Vault) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := v.Sweep(ctx); n > 0 {
				v.log.WithField("removed", n).Warn("reclaimed abandoned game keys")
			}
		}
	}
}
