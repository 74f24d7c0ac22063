package keyvault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/games"
	"github.com/Amund-Fremming/tero.platform/internal/logging"
	"github.com/Amund-Fremming/tero.platform/internal/services/syslog"
)

func words(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

type fakeClock struct{ unix atomic.Int64 }

func newFakeClock(t time.Time) *fakeClock {
	c := &fakeClock{}
	c.unix.Store(t.Unix())
	return c
}

func (c *fakeClock) Now() time.Time          { return time.Unix(c.unix.Load(), 0) }
func (c *fakeClock) Advance(d time.Duration) { c.unix.Add(int64(d / time.Second)) }
func (c *fakeClock) Set(t time.Time)         { c.unix.Store(t.Unix()) }

type recordingWriter struct {
	mu      sync.Mutex
	entries []*models.SystemLog
}

func (w *recordingWriter) Create(ctx context.Context, e *models.SystemLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, e)
	return nil
}

type inlineJobs struct{}

func (inlineJobs) Submit(name string, fn func(ctx context.Context) error) bool {
	_ = fn(context.Background())
	return true
}

func newVault(t *testing.T, n int, opts ...Option) (*Vault, *recordingWriter) {
	t.Helper()
	w := &recordingWriter{}
	opts = append([]Option{
		WithAudit(syslog.New(w, inlineJobs{}, logging.Discard())),
		WithLogger(logging.Discard()),
	}, opts...)
	v, err := New(words("p", n), words("s", n), opts...)
	require.NoError(t, err)
	return v, w
}

func TestNew_RejectsBadWordLists(t *testing.T) {
	tests := []struct {
		name           string
		prefix, suffix []string
	}{
		{name: "empty", prefix: nil, suffix: nil},
		{name: "unequal", prefix: words("p", 3), suffix: words("s", 2)},
		{name: "duplicate", prefix: []string{"a", "a"}, suffix: []string{"x", "y"}},
		{name: "blank word", prefix: []string{"a", ""}, suffix: []string{"x", "y"}},
		{name: "space in word", prefix: []string{"a b", "c"}, suffix: []string{"x", "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.prefix, tt.suffix)
			assert.Error(t, err)
		})
	}
}

func TestCreateKey_UniqueUnderConcurrency(t *testing.T) {
	v, _ := newVault(t, 40) // 1600 keys
	const callers = 1000

	var wg sync.WaitGroup
	results := make(chan Key, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k, err := v.CreateKey(context.Background(), games.Quiz)
			if assert.NoError(t, err) {
				results <- k
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for k := range results {
		assert.False(t, seen[k.String()], "duplicate key %s", k)
		seen[k.String()] = true
	}
	assert.Len(t, seen, callers)
	assert.Equal(t, callers, v.Len())
}

func TestCreateKey_FullCapacity(t *testing.T) {
	v, audit := newVault(t, 5)

	for range v.Capacity() {
		_, err := v.CreateKey(context.Background(), games.Duel)
		require.NoError(t, err)
	}

	_, err := v.CreateKey(context.Background(), games.Duel)
	assert.True(t, errors.Is(err, ErrFullCapacity))
	assert.Equal(t, 25, v.Len())

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.SeverityCritical, audit.entries[0].Severity)
	assert.Equal(t, "create_key", audit.entries[0].Function)
}

func TestKeyActiveAndRemove(t *testing.T) {
	v, _ := newVault(t, 3)
	ctx := context.Background()

	k, err := v.CreateKey(ctx, games.Imposter)
	require.NoError(t, err)

	kind, ok := v.KeyActive(k)
	assert.True(t, ok)
	assert.Equal(t, games.Imposter, kind)

	v.RemoveKey(ctx, k)
	_, ok = v.KeyActive(k)
	assert.False(t, ok)
	assert.Zero(t, v.Len())

	assert.NotPanics(t, func() { v.RemoveKey(ctx, k) })
	assert.Zero(t, v.Len())
}

func TestSweep_ReclaimsOldKeys(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	v, audit := newVault(t, 1, WithClock(clock.Now)) // single key: "p0 s0"
	ctx := context.Background()

	old, err := v.CreateKey(ctx, games.Quiz)
	require.NoError(t, err)
	_, err = v.CreateKey(ctx, games.Quiz)
	require.ErrorIs(t, err, ErrFullCapacity)
	audit.entries = nil

	clock.Advance(KeyTTL - time.Second)
	assert.Zero(t, v.Sweep(ctx), "key younger than ttl must survive")

	clock.Advance(time.Second)
	assert.Equal(t, 1, v.Sweep(ctx))
	assert.Zero(t, v.Len())

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.SeverityWarning, audit.entries[0].Severity)

	again, err := v.CreateKey(ctx, games.Quiz)
	require.NoError(t, err)
	assert.Equal(t, old, again)
}

func TestSweep_KeepsFreshKeys(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	v, _ := newVault(t, 4, WithClock(clock.Now))
	ctx := context.Background()

	_, err := v.CreateKey(ctx, games.Quiz)
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	fresh, err := v.CreateKey(ctx, games.Quiz)
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)

	assert.Equal(t, 1, v.Sweep(ctx))
	_, ok := v.KeyActive(fresh)
	assert.True(t, ok)
}

func TestSweep_SkipsWhenClockUnavailable(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	v, audit := newVault(t, 2, WithClock(clock.Now))
	ctx := context.Background()

	_, err := v.CreateKey(ctx, games.Quiz)
	require.NoError(t, err)

	clock.Set(time.Unix(0, 0))
	assert.Zero(t, v.Sweep(ctx))
	assert.Equal(t, 1, v.Len())
	assert.Empty(t, audit.entries)
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	v, _ := newVault(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		v.RunSweeper(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestParseKey(t *testing.T) {
	v, _ := newVault(t, 10)
	for range 50 {
		k, err := v.CreateKey(context.Background(), games.Roulette)
		require.NoError(t, err)
		parsed, err := ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	tests := []struct {
		in      string
		want    Key
		wantErr bool
	}{
		{in: "red fox", want: Key{"red", "fox"}},
		{in: "red fox extra", want: Key{"red", "fox"}},
		{in: "redfox", wantErr: true},
		{in: "", wantErr: true},
		{in: " fox", wantErr: true},
		{in: "red ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubWords struct {
	prefix, suffix []string
	err            error
}

func (s stubWords) PrefixWords(ctx context.Context) ([]string, error) { return s.prefix, s.err }
func (s stubWords) SuffixWords(ctx context.Context) ([]string, error) { return s.suffix, nil }

func TestLoadWords(t *testing.T) {
	p, s, err := LoadWords(context.Background(), stubWords{prefix: []string{"a"}, suffix: []string{"b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, p)
	assert.Equal(t, []string{"b"}, s)

	_, _, err = LoadWords(context.Background(), stubWords{err: errors.New("boom")})
	assert.ErrorContains(t, err, "prefix words")
}
