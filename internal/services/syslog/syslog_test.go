package syslog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryWriter struct {
	mu      sync.Mutex
	entries []*models.SystemLog
	err     error
	written chan struct{}
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{written: make(chan struct{}, 16)}
}

func (w *memoryWriter) Create(ctx context.Context, entry *models.SystemLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.entries = append(w.entries, entry)
	w.written <- struct{}{}
	return nil
}

type inlineJobs struct{ names []string }

func (j *inlineJobs) Submit(name string, fn func(ctx context.Context) error) bool {
	j.names = append(j.names, name)
	_ = fn(context.Background())
	return true
}

func TestBuilder_Defaults(t *testing.T) {
	l := New(newMemoryWriter(), nil, logging.Discard())

	entry := l.Entry().Build()
	assert.Equal(t, models.SubjectSystem, entry.SubjectType)
	assert.Equal(t, "[SYSTEM]", entry.SubjectID)
	assert.Equal(t, models.ActionOther, entry.Action)
	assert.Equal(t, models.SeverityInfo, entry.Severity)
	assert.Equal(t, "Not specified", entry.Function)
	assert.Equal(t, "No description", entry.Description)
	assert.NotEqual(t, uuid.Nil, entry.ID)
}

func TestBuilder_Truncation(t *testing.T) {
	l := New(newMemoryWriter(), nil, logging.Discard())

	tests := []struct {
		name    string
		in      string
		wantLen int
		cut     bool
	}{
		{name: "short", in: "hello", wantLen: 5},
		{name: "exactly limit", in: strings.Repeat("a", 512), wantLen: 512},
		{name: "over limit", in: strings.Repeat("a", 600), wantLen: 512, cut: true},
		{name: "multibyte over limit", in: strings.Repeat("ø", 513), wantLen: 512, cut: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Entry().Description(tt.in).Build().Description
			assert.Equal(t, tt.wantLen, utf8.RuneCountInString(got))
			assert.Equal(t, tt.cut, strings.HasSuffix(got, "..."))
		})
	}
}

func TestBuilder_Log(t *testing.T) {
	w := newMemoryWriter()
	l := New(w, nil, logging.Discard())
	id := uuid.New()

	err := l.Entry().
		For(auth.GuestUser(id)).
		Action(models.ActionCreate).
		Severity(models.SeverityWarning).
		Function("ensure_pseudo_user").
		Descriptionf("ghost user %s", id).
		Metadata(map[string]any{"pseudo_id": id.String()}).
		Log(context.Background())
	require.NoError(t, err)

	require.Len(t, w.entries, 1)
	got := w.entries[0]
	assert.Equal(t, models.SubjectGuestUser, got.SubjectType)
	assert.Equal(t, id.String(), got.SubjectID)
	assert.Equal(t, models.SeverityWarning, got.Severity)
	assert.Equal(t, "ensure_pseudo_user", got.Function)

	w.err = errors.New("db down")
	assert.Error(t, l.Entry().Log(context.Background()))
}

func TestBuilder_Dispatch(t *testing.T) {
	t.Run("through queue", func(t *testing.T) {
		w := newMemoryWriter()
		jobs := &inlineJobs{}
		l := New(w, jobs, logging.Discard())

		l.Entry().For(auth.Integration(auth.IntegrationSession)).Dispatch()

		assert.Equal(t, []string{"system_log"}, jobs.names)
		require.Len(t, w.entries, 1)
		assert.Equal(t, models.SubjectIntegration, w.entries[0].SubjectType)
		assert.Equal(t, "session", w.entries[0].SubjectID)
	})

	t.Run("without queue", func(t *testing.T) {
		w := newMemoryWriter()
		l := New(w, nil, logging.Discard())

		l.Entry().Severity(models.SeverityCritical).Dispatch()

		select {
		case <-w.written:
		case <-time.After(2 * time.Second):
			t.Fatal("dispatched log never written")
		}
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		w := newMemoryWriter()
		w.err = errors.New("db down")
		l := New(w, &inlineJobs{}, logging.Discard())
		assert.NotPanics(t, func() { l.Entry().Dispatch() })
	})
}
