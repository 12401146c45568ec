package models

// --- Evaluation Task Statuses ---

const (
	StatusWaiting             string = "WAITING"
	StatusExtractingAnswer    string = "EXTRACTING_ANSWER"
	StatusEvaluating          string = "EVALUATING"
	StatusEvaluationCompleted string = "EVALUATION_COMPLETED"
	StatusFailed              string = "FAILED"
)

// Criterion is a named partial-marks rule attached to a question. Criteria
// are matched by name; duplicate names are allowed within one question.
type Criterion struct {
	Name  string  `json:"name"`
	Marks float64 `json:"marks"`
}

// QuestionMarking carries the marking state of a single question. The mark is
// kept as the raw text the user typed so that in-progress input (e.g. "1.")
// survives a round trip. An empty QuestionID means the question has not been
// persisted yet.
type QuestionMarking struct {
	QuestionID   string      `json:"question_id,omitempty"`
	QuestionName string      `json:"question_name"`
	QuestionMark string      `json:"question_mark"`
	ValidAnswers string      `json:"valid_answers,omitempty"`
	Criteria     []Criterion `json:"criteria,omitempty"`

	// Change markers set by the diff engine on output; always false on
	// questions read back from the persistence API.
	IsAdded   bool `json:"is_added"`
	IsUpdated bool `json:"is_updated"`
	IsDeleted bool `json:"is_deleted"`
}

// Section is a named, ordered group of questions. An empty SectionID marks a
// section that does not exist on the server yet.
type Section struct {
	SectionID string `json:"section_id"`

	// ClientKey is a client-generated identity for sections that have no
	// server id yet, so edits and reorders can be tracked before the first
	// save. Never set by the persistence API.
	ClientKey string `json:"client_key,omitempty"`

	SectionName     string            `json:"section_name"`
	DescriptionHTML string            `json:"description_html,omitempty"`
	DurationMinutes int               `json:"duration_minutes"`
	TotalMarks      float64           `json:"total_marks"`
	CutoffMarks     float64           `json:"cutoff_marks"`
	Randomized      bool              `json:"randomized"`
	SectionOrder    int               `json:"section_order,omitempty"`
	Questions       []QuestionMarking `json:"questions"`
}

// ChangeSet is the incremental upload payload accepted by the persistence
// API. A section appears in at most one of the three lists.
type ChangeSet struct {
	Added   []Section `json:"added_sections"`
	Updated []Section `json:"updated_sections"`
	Deleted []Section `json:"deleted_sections"`
}

func (cs ChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Updated) == 0 && len(cs.Deleted) == 0
}

// --- Evaluation API Payloads ---

type EvaluationSubject struct {
	SubjectID          string `json:"subject_id"`
	ResponseArtifactID string `json:"response_artifact_id"`
	Name               string `json:"name,omitempty"`
	Contact            string `json:"contact,omitempty"`
}

type EvaluationSubmitRequest struct {
	AssessmentID string              `json:"assessment_id"`
	Subjects     []EvaluationSubject `json:"subjects"`
}

type EvaluationSubmitResponse struct {
	TaskID string `json:"task_id"`
}

// TaskStatus is the wire shape of GET /status/{task_id}. Response holds an
// embedded JSON document of per-subject results once the job has produced
// any; it may be a partial snapshot while the job is still running.
type TaskStatus struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Response string `json:"response,omitempty"`
}

// SubjectResult is one subject's evaluation outcome as decoded from the task
// response payload.
type SubjectResult struct {
	SubjectID     string  `json:"subject_id"`
	Name          string  `json:"name,omitempty"`
	Status        string  `json:"status"`
	MarksObtained float64 `json:"marks_obtained"`
	TotalMarks    float64 `json:"total_marks"`
	Feedback      string  `json:"feedback,omitempty"`
}
