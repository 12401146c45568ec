package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EditingSession is one assessment-editing session. Baseline holds the last
// section tree known to match the server's persisted state; it advances only
// after a successful save.
type EditingSession struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	AssessmentId string    `gorm:"not null;index"`

	CreationTime  time.Time
	LastSavedTime sql.NullTime

	Baseline datatypes.JSON `gorm:"type:jsonb"` // []models.Section

	Tasks []EvaluationTask `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE"`
}

// StatusCancelled marks a task whose polling was stopped locally. The
// service-side job may still run to completion unobserved.
const StatusCancelled = "CANCELLED"

// EvaluationTask mirrors a server-side batch evaluation job tracked by a
// poller. Status carries the wire status strings (WAITING through
// EVALUATION_COMPLETED/FAILED), or CANCELLED once polling is stopped locally.
// Results holds the latest merged per-subject snapshot.
type EvaluationTask struct {
	TaskId    string    `gorm:"primaryKey;size:64"`
	SessionId uuid.UUID `gorm:"type:uuid;index"`

	Status        string `gorm:"size:30;not null"`
	FailureReason sql.NullString

	CreationTime   time.Time
	CompletionTime sql.NullTime

	SubjectCount int            `gorm:"default:0"`
	Results      datatypes.JSON `gorm:"type:jsonb"` // []models.SubjectResult
}
