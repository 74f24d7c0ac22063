package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SubjectType identifies who produced an audit record.
type SubjectType string

const (
	SubjectRegisteredUser SubjectType = "registered_user"
	SubjectGuestUser      SubjectType = "guest_user"
	SubjectIntegration    SubjectType = "integration"
	SubjectSystem         SubjectType = "system"
)

// LogAction is the kind of operation being audited.
type LogAction string

const (
	ActionCreate LogAction = "create"
	ActionRead   LogAction = "read"
	ActionUpdate LogAction = "update"
	ActionDelete LogAction = "delete"
	ActionSync   LogAction = "sync"
	ActionOther  LogAction = "other"
)

// LogSeverity ranks audit records.
type LogSeverity string

const (
	SeverityInfo     LogSeverity = "info"
	SeverityWarning  LogSeverity = "warning"
	SeverityCritical LogSeverity = "critical"
)

// DescriptionLimit is the stored length cap for SystemLog.Description.
const DescriptionLimit = 512

// SystemLog is a persisted audit record.
type SystemLog struct {
	bun.BaseModel `bun:"table:system_log,alias:sl"`

	ID          uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	SubjectID   string         `bun:"subject_id,notnull" json:"subject_id"`
	SubjectType SubjectType    `bun:"subject_type,notnull" json:"subject_type"`
	Action      LogAction      `bun:"action,notnull" json:"action"`
	Severity    LogSeverity    `bun:"severity,notnull" json:"severity"`
	Function    string         `bun:"function,notnull" json:"function"`
	Description string         `bun:"description,notnull,type:varchar(512)" json:"description"`
	Metadata    map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `bun:"created_at,notnull" json:"created_at"`
}
