package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"assessment-backend/internal/database"
	"assessment-backend/internal/diff"
	"assessment-backend/internal/evaluation"
	"assessment-backend/internal/marking"
	"assessment-backend/internal/upstream"
	"assessment-backend/pkg/api"
	"assessment-backend/pkg/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PersistenceAPI is the slice of the assessment persistence service the
// facade needs; upstream.PersistenceClient is the production implementation.
type PersistenceAPI interface {
	AssessmentTree(ctx context.Context, assessmentID string) ([]models.Section, error)
	SaveChangeSet(ctx context.Context, assessmentID string, cs models.ChangeSet) error
}

var _ PersistenceAPI = (*upstream.PersistenceClient)(nil)
var _ evaluation.TaskAPI = (*upstream.EvaluationClient)(nil)

type MarkingService struct {
	db          *gorm.DB
	persistence PersistenceAPI
	evaluator   evaluation.TaskAPI
	sessions    *sessionManager
	pollOpts    []evaluation.Option
}

func NewMarkingService(db *gorm.DB, persistence PersistenceAPI, evaluator evaluation.TaskAPI, pollOpts ...evaluation.Option) *MarkingService {
	return &MarkingService{
		db:          db,
		persistence: persistence,
		evaluator:   evaluator,
		sessions:    newSessionManager(),
		pollOpts:    pollOpts,
	}
}

func (s *MarkingService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", RestHandler(s.CreateSession))
		r.Route("/{session_id}", func(r chi.Router) {
			r.Get("/", RestHandler(s.GetSession))
			r.Delete("/", RestHandler(s.CloseSession))
			r.Post("/save", RestHandler(s.SaveSession))
			r.Put("/sections", RestHandler(s.UpdateSections))
			r.Route("/sections/{section_index}/questions", func(r chi.Router) {
				r.Put("/", RestHandler(s.UpdateSectionQuestions))
				r.Put("/{question_index}/mark", RestHandler(s.UpdateQuestionMark))
				r.Post("/{question_index}/criteria", RestHandler(s.AddCriterion))
				r.Delete("/{question_index}/criteria/{criteria_name}", RestHandler(s.RemoveCriterion))
				r.Put("/{question_index}/criteria/scheme", RestHandler(s.ApplyScheme))
			})
			r.Route("/evaluations", func(r chi.Router) {
				r.Post("/", RestHandler(s.SubmitEvaluation))
				r.Get("/{task_id}", RestHandler(s.GetEvaluationTask))
				r.Delete("/{task_id}", RestHandler(s.CancelEvaluationTask))
			})
		})
	})
}

func (s *MarkingService) CreateSession(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateSessionRequest](r)
	if err != nil {
		return nil, err
	}
	if req.AssessmentId == "" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "missing required field: assessment_id")
	}

	ctx := r.Context()

	tree, err := s.persistence.AssessmentTree(ctx, req.AssessmentId)
	if err != nil {
		slog.Error("error loading assessment tree", "assessment_id", req.AssessmentId, "error", err)
		return nil, CodedErrorf(http.StatusBadGateway, "failed to load assessment from persistence api")
	}

	baseline, err := json.Marshal(tree)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to encode baseline snapshot")
	}

	session := &database.EditingSession{
		Id:           uuid.New(),
		AssessmentId: req.AssessmentId,
		CreationTime: time.Now(),
		Baseline:     baseline,
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		slog.Error("error creating editing session", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create editing session")
	}

	st := newSessionState(session.Id, req.AssessmentId, tree)
	s.sessions.add(st)

	slog.Info("editing session opened", "session_id", session.Id, "assessment_id", req.AssessmentId, "sections", len(tree))
	return s.sessionView(st), nil
}

func (s *MarkingService) GetSession(r *http.Request) (any, error) {
	st, err := s.session(r)
	if err != nil {
		return nil, err
	}
	return s.sessionView(st), nil
}

func (s *MarkingService) CloseSession(r *http.Request) (any, error) {
	sessionId, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	st, ok := s.sessions.remove(sessionId)
	if !ok {
		return nil, CodedErrorf(http.StatusNotFound, "editing session not found")
	}
	st.close()

	slog.Info("editing session closed", "session_id", sessionId)
	return nil, nil
}

func (s *MarkingService) UpdateSections(r *http.Request) (any, error) {
	st, err := s.session(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.UpdateSectionsRequest](r)
	if err != nil {
		return nil, err
	}

	st.setSections(req.Sections)
	return s.sessionView(st), nil
}

func (s *MarkingService) UpdateSectionQuestions(r *http.Request) (any, error) {
	st, sectionIndex, err := s.sessionSection(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.UpdateQuestionsRequest](r)
	if err != nil {
		return nil, err
	}

	st.drafts.ApplyDraft(sectionIndex, req.Questions)
	return s.sectionTotal(st, sectionIndex), nil
}

func (s *MarkingService) UpdateQuestionMark(r *http.Request) (any, error) {
	st, sectionIndex, questionIndex, err := s.sessionQuestion(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.UpdateMarkRequest](r)
	if err != nil {
		return nil, err
	}

	st.store.UpdateQuestionMark(sectionIndex, questionIndex, req.Mark)
	return s.sectionTotal(st, sectionIndex), nil
}

func (s *MarkingService) AddCriterion(r *http.Request) (any, error) {
	st, sectionIndex, questionIndex, err := s.sessionQuestion(r)
	if err != nil {
		return nil, err
	}

	criterion, err := ParseRequest[models.Criterion](r)
	if err != nil {
		return nil, err
	}
	if criterion.Name == "" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "criterion name is required")
	}

	st.store.AddCriteria(sectionIndex, questionIndex, criterion)
	return st.store.QuestionCriteria(sectionIndex, questionIndex), nil
}

func (s *MarkingService) RemoveCriterion(r *http.Request) (any, error) {
	st, sectionIndex, questionIndex, err := s.sessionQuestion(r)
	if err != nil {
		return nil, err
	}

	name := chi.URLParam(r, "criteria_name")
	if name == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "missing {criteria_name} url parameter")
	}

	st.store.RemoveCriteria(sectionIndex, questionIndex, name)
	return st.store.QuestionCriteria(sectionIndex, questionIndex), nil
}

func (s *MarkingService) ApplyScheme(r *http.Request) (any, error) {
	st, sectionIndex, questionIndex, err := s.sessionQuestion(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.ApplySchemeRequest](r)
	if err != nil {
		return nil, err
	}

	scheme, ok := marking.SchemeFor(req.TotalMarks)
	if !ok {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "no predefined scheme for total marks %d", req.TotalMarks)
	}

	st.store.SetCriteria(sectionIndex, questionIndex, scheme)
	return scheme, nil
}

// SaveSession diffs the working tree against the session's baseline and
// forwards the change-set to the persistence API. A failed save leaves both
// the working tree and the baseline untouched; there is no partial commit.
func (s *MarkingService) SaveSession(r *http.Request) (any, error) {
	st, err := s.session(r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	var session database.EditingSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", st.id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "editing session not found")
		}
		slog.Error("error loading editing session", "session_id", st.id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving editing session record")
	}

	baseline, err := database.SessionBaseline(&session)
	if err != nil {
		slog.Error("error decoding session baseline", "session_id", st.id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "stored baseline snapshot is corrupt")
	}

	current := st.currentTree()
	changes := diff.Compute(baseline, current)
	if changes.Empty() {
		return api.SaveResponse{Message: "No changes to save"}, nil
	}

	if err := s.persistence.SaveChangeSet(ctx, st.assessmentID, changes); err != nil {
		slog.Error("error saving change-set", "session_id", st.id, "assessment_id", st.assessmentID, "error", err)
		return nil, CodedErrorf(http.StatusBadGateway, "failed to save changes to persistence api")
	}

	// Re-fetch so the new baseline carries server-assigned ids for anything
	// just created. If the fetch fails the working copy stands in: it is the
	// last tree known to have been written.
	newBaseline := current
	if tree, err := s.persistence.AssessmentTree(ctx, st.assessmentID); err != nil {
		slog.Error("error refreshing assessment tree after save", "assessment_id", st.assessmentID, "error", err)
	} else {
		newBaseline = tree
		st.resetTree(tree)
	}

	if err := database.SetSessionBaseline(ctx, s.db, st.id, newBaseline); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "saved changes but failed to advance baseline snapshot")
	}

	slog.Info("change-set saved", "session_id", st.id, "assessment_id", st.assessmentID,
		"added", len(changes.Added), "updated", len(changes.Updated), "deleted", len(changes.Deleted))

	return api.SaveResponse{
		Message: "Changes saved",
		Added:   len(changes.Added),
		Updated: len(changes.Updated),
		Deleted: len(changes.Deleted),
	}, nil
}

func (s *MarkingService) SubmitEvaluation(r *http.Request) (any, error) {
	st, err := s.session(r)
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.SubmitEvaluationRequest](r)
	if err != nil {
		return nil, err
	}
	if len(req.Subjects) == 0 {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "at least one subject is required")
	}
	for _, subject := range req.Subjects {
		if subject.SubjectID == "" || subject.ResponseArtifactID == "" {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "missing required fields: subject_id, response_artifact_id")
		}
	}

	ctx := r.Context()

	poller := evaluation.NewPoller(s.evaluator, s.pollOpts...)
	taskId, err := poller.Submit(ctx, models.EvaluationSubmitRequest{
		AssessmentID: st.assessmentID,
		Subjects:     req.Subjects,
	})
	if err != nil {
		slog.Error("error submitting evaluation", "session_id", st.id, "error", err)
		return nil, CodedErrorf(http.StatusBadGateway, "failed to submit evaluation job")
	}

	task := &database.EvaluationTask{
		TaskId:       taskId,
		SessionId:    st.id,
		Status:       models.StatusWaiting,
		CreationTime: time.Now(),
		SubjectCount: len(req.Subjects),
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		slog.Error("error creating evaluation task entry", "task_id", taskId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create evaluation task entry")
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	st.addPoller(taskId, poller, cancel)
	go s.runPoller(pollCtx, st, taskId, poller)

	return api.SubmitEvaluationResponse{Message: "Evaluation job submitted", TaskId: taskId}, nil
}

// runPoller drives one task's polling loop to a terminal state and persists
// the outcome on the task row.
func (s *MarkingService) runPoller(ctx context.Context, st *sessionState, taskId string, poller *evaluation.Poller) {
	pollErr := poller.Poll(ctx, taskId)
	st.stopPoller(taskId)
	defer st.removePoller(taskId)

	persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if results := poller.Results(); len(results) > 0 {
		if err := database.SaveTaskResults(persistCtx, s.db, taskId, results); err != nil {
			slog.Error("error persisting evaluation results", "task_id", taskId, "error", err)
		}
	}

	switch {
	case pollErr == nil:
		database.UpdateEvaluationTaskStatus(persistCtx, s.db, taskId, models.StatusEvaluationCompleted) //nolint:errcheck
	case errors.Is(pollErr, context.Canceled):
		database.UpdateEvaluationTaskStatus(persistCtx, s.db, taskId, database.StatusCancelled) //nolint:errcheck
		slog.Info("evaluation polling cancelled", "task_id", taskId)
	case errors.Is(pollErr, evaluation.ErrPollDeadline):
		database.SaveTaskFailure(persistCtx, s.db, taskId, "polling deadline exceeded before the task finished")
	case errors.Is(pollErr, evaluation.ErrSourceProcessing):
		database.SaveTaskFailure(persistCtx, s.db, taskId, "source file still processing")
	default:
		database.SaveTaskFailure(persistCtx, s.db, taskId, pollErr.Error())
	}
}

func (s *MarkingService) GetEvaluationTask(r *http.Request) (any, error) {
	st, err := s.session(r)
	if err != nil {
		return nil, err
	}

	taskId := chi.URLParam(r, "task_id")
	if taskId == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "missing {task_id} url parameter")
	}

	filter, err := ParseRequestQueryParams[api.ResultFilter](r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	var task database.EvaluationTask
	if err := s.db.WithContext(ctx).First(&task, "task_id = ? AND session_id = ?", taskId, st.id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "evaluation task not found")
		}
		slog.Error("error getting evaluation task", "task_id", taskId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving evaluation task record")
	}

	view := api.EvaluationTask{
		TaskId:        task.TaskId,
		Status:        task.Status,
		FailureReason: task.FailureReason.String,
	}

	if poller, ok := st.poller(taskId); ok {
		// Poll still running: the live merge is fresher than the row.
		view.Results = poller.Results()
		if live := poller.LastStatus(); live != "" {
			view.Status = live
		}
	} else if len(task.Results) > 0 {
		if err := json.Unmarshal(task.Results, &view.Results); err != nil {
			slog.Error("error decoding stored evaluation results", "task_id", taskId, "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "stored evaluation results are corrupt")
		}
	}

	if filter.Status != "" {
		filtered := view.Results[:0:0]
		for _, result := range view.Results {
			if result.Status == filter.Status {
				filtered = append(filtered, result)
			}
		}
		view.Results = filtered
	}

	return view, nil
}

func (s *MarkingService) CancelEvaluationTask(r *http.Request) (any, error) {
	st, err := s.session(r)
	if err != nil {
		return nil, err
	}

	taskId := chi.URLParam(r, "task_id")
	if taskId == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "missing {task_id} url parameter")
	}

	if !st.stopPoller(taskId) {
		return nil, CodedErrorf(http.StatusNotFound, "no running poll for task %s", taskId)
	}

	slog.Info("evaluation polling stopped", "session_id", st.id, "task_id", taskId)
	return nil, nil
}

// --- helpers ---

func (s *MarkingService) session(r *http.Request) (*sessionState, error) {
	sessionId, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	st, ok := s.sessions.get(sessionId)
	if !ok {
		return nil, CodedErrorf(http.StatusNotFound, "editing session not found")
	}
	return st, nil
}

func (s *MarkingService) sessionSection(r *http.Request) (*sessionState, int, error) {
	st, err := s.session(r)
	if err != nil {
		return nil, 0, err
	}
	sectionIndex, err := URLParamInt(r, "section_index")
	if err != nil {
		return nil, 0, err
	}
	return st, sectionIndex, nil
}

func (s *MarkingService) sessionQuestion(r *http.Request) (*sessionState, int, int, error) {
	st, sectionIndex, err := s.sessionSection(r)
	if err != nil {
		return nil, 0, 0, err
	}
	questionIndex, err := URLParamInt(r, "question_index")
	if err != nil {
		return nil, 0, 0, err
	}
	return st, sectionIndex, questionIndex, nil
}

func (s *MarkingService) sessionView(st *sessionState) api.Session {
	sections := st.currentTree()
	totals := make([]string, len(sections))
	for i := range sections {
		totals[i] = st.store.SectionMarks(i).String()
	}
	return api.Session{
		Id:            st.id,
		AssessmentId:  st.assessmentID,
		Sections:      sections,
		SectionTotals: totals,
		CreationTime:  st.creationTime,
	}
}

type sectionTotalResponse struct {
	SectionIndex int
	TotalMarks   string
}

func (s *MarkingService) sectionTotal(st *sessionState, sectionIndex int) sectionTotalResponse {
	return sectionTotalResponse{
		SectionIndex: sectionIndex,
		TotalMarks:   marking.CalculateTotalMarks(st.store.SectionQuestions(sectionIndex)),
	}
}
