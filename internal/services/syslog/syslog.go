// Package syslog writes structured audit records to the system_log table.
package syslog

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Amund-Fremming/tero.platform/internal/auth"
	"github.com/Amund-Fremming/tero.platform/internal/db/bunx"
	"github.com/Amund-Fremming/tero.platform/internal/db/models"
)

const (
	systemSubject      = "[SYSTEM]"
	defaultFunction    = "Not specified"
	defaultDescription = "No description"
	ellipsis           = "..."

	dispatchTimeout = 10 * time.Second
)

// Writer persists audit records.
type Writer interface {
	Create(ctx context.Context, entry *models.SystemLog) error
}

// Dispatcher runs detached work. Satisfied by *background.Queue.
type Dispatcher interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

// Logger hands out builders bound to a writer.
type Logger struct {
	writer Writer
	jobs   Dispatcher
	log    logrus.FieldLogger
	now    func() time.Time
}

// New creates a Logger. jobs may be nil, in which case Dispatch spawns a goroutine.
func New(writer Writer, jobs Dispatcher, log logrus.FieldLogger) *Logger {
	return &Logger{
		writer: writer,
		jobs:   jobs,
		log:    log.WithField("component", "syslog"),
		now:    time.Now,
	}
}

// Entry starts a new record.
func (l *Logger) Entry() *Builder {
	return &Builder{logger: l}
}

// Builder assembles one audit record.
type Builder struct {
	logger *Logger

	subjectType models.SubjectType
	subjectID   string
	action      models.LogAction
	severity    models.LogSeverity
	function    string
	description string
	metadata    map[string]any
}

// Subject sets who the record is about.
func (b *Builder) Subject(kind models.SubjectType, id string) *Builder {
	b.subjectType, b.subjectID = kind, id
	return b
}

// For sets the subject from a resolved request subject.
func (b *Builder) For(s auth.Subject) *Builder {
	switch s.Kind {
	case auth.SubjectGuest:
		return b.Subject(models.SubjectGuestUser, s.ID.String())
	case auth.SubjectRegistered:
		return b.Subject(models.SubjectRegisteredUser, s.ID.String())
	case auth.SubjectIntegration:
		return b.Subject(models.SubjectIntegration, string(s.Integration))
	}
	return b
}

func (b *Builder) Action(a models.LogAction) *Builder {
	b.action = a
	return b
}

func (b *Builder) Severity(s models.LogSeverity) *Builder {
	b.severity = s
	return b
}

// Function names the code path that produced the record.
func (b *Builder) Function(name string) *Builder {
	b.function = name
	return b
}

func (b *Builder) Description(d string) *Builder {
	b.description = d
	return b
}

// Descriptionf is Description with formatting.
func (b *Builder) Descriptionf(format string, args ...any) *Builder {
	return b.Description(fmt.Sprintf(format, args...))
}

func (b *Builder) Metadata(m map[string]any) *Builder {
	b.metadata = m
	return b
}

// Build applies defaults and returns the record.
func (b *Builder) Build() *models.SystemLog {
	entry := &models.SystemLog{
		ID:          bunx.NewUUIDv7(),
		SubjectType: b.subjectType,
		SubjectID:   b.subjectID,
		Action:      b.action,
		Severity:    b.severity,
		Function:    b.function,
		Description: truncate(b.description),
		Metadata:    b.metadata,
		CreatedAt:   b.logger.now().UTC(),
	}
	if entry.SubjectType == "" {
		entry.SubjectType, entry.SubjectID = models.SubjectSystem, systemSubject
	}
	if entry.Action == "" {
		entry.Action = models.ActionOther
	}
	if entry.Severity == "" {
		entry.Severity = models.SeverityInfo
	}
	if entry.Function == "" {
		entry.Function = defaultFunction
	}
	if entry.Description == "" {
		entry.Description = defaultDescription
	}
	return entry
}

// Log writes the record and returns the write error.
func (b *Builder) Log(ctx context.Context) error {
	entry := b.Build()
	b.logger.mirror(entry)
	if err := b.logger.writer.Create(ctx, entry); err != nil {
		return fmt.Errorf("write system log: %w", err)
	}
	return nil
}

// Dispatch writes the record in the background. Failures are logged only.
func (b *Builder) Dispatch() {
	entry := b.Build()
	l := b.logger
	l.mirror(entry)

	write := func(ctx context.Context) error {
		if err := l.writer.Create(ctx, entry); err != nil {
			return fmt.Errorf("write system log %s: %w", entry.Function, err)
		}
		return nil
	}

	if l.jobs != nil {
		l.jobs.Submit("system_log", write)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := write(ctx); err != nil {
			l.log.WithError(err).Warn("dispatch system log")
		}
	}()
}

// mirror copies the record to the process log.
func (l *Logger) mirror(entry *models.SystemLog) {
	fields := logrus.Fields{
		"subject_type": entry.SubjectType,
		"subject":      entry.SubjectID,
		"action":       entry.Action,
		"function":     entry.Function,
	}
	for k, v := range entry.Metadata {
		fields["meta_"+k] = v
	}
	e := l.log.WithFields(fields)
	switch entry.Severity {
	case models.SeverityCritical:
		e.Error(entry.Description)
	case models.SeverityWarning:
		e.Warn(entry.Description)
	default:
		e.Info(entry.Description)
	}
}

// truncate caps s at models.DescriptionLimit runes, ending in "..." when cut.
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= models.DescriptionLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:models.DescriptionLimit-len(ellipsis)]) + ellipsis
}
