package api

import (
	"time"

	"assessment-backend/pkg/models"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	AssessmentId string
}

type Session struct {
	Id           uuid.UUID
	AssessmentId string
	Sections     []models.Section
	// SectionTotals holds the derived mark total of each section, as decimal
	// strings, in section order.
	SectionTotals []string
	CreationTime  time.Time
}

type UpdateSectionsRequest struct {
	Sections []models.Section
}

type UpdateQuestionsRequest struct {
	Questions []models.QuestionMarking
}

type UpdateMarkRequest struct {
	Mark string
}

type ApplySchemeRequest struct {
	TotalMarks int
}

type SaveResponse struct {
	Message string
	Added   int
	Updated int
	Deleted int
}

type SubmitEvaluationRequest struct {
	Subjects []models.EvaluationSubject
}

type SubmitEvaluationResponse struct {
	Message string
	TaskId  string
}

type EvaluationTask struct {
	TaskId        string
	Status        string
	FailureReason string                 `json:"FailureReason,omitempty"`
	Results       []models.SubjectResult `json:"Results,omitempty"`
}

type ResultFilter struct {
	Status string `schema:"status"`
}
