package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"assessment-backend/pkg/models"

	"github.com/go-resty/resty/v2"
)

// EvaluationClient speaks the batch evaluation service. It satisfies
// evaluation.TaskAPI.
type EvaluationClient struct {
	client *resty.Client
}

func NewEvaluationClient(baseURL string) *EvaluationClient {
	return &EvaluationClient{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(defaultRequestTimeout),
	}
}

// SubmitEvaluation submits a list of subjects for evaluation and returns the
// opaque task id tracking the job.
func (c *EvaluationClient) SubmitEvaluation(ctx context.Context, req models.EvaluationSubmitRequest) (string, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/evaluations")
	if err != nil {
		return "", fmt.Errorf("submitting evaluation for assessment %s: %w", req.AssessmentID, err)
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("evaluation api returned %d on submit: %s", res.StatusCode(), res.String())
	}

	var submitted models.EvaluationSubmitResponse
	if err := json.Unmarshal(res.Body(), &submitted); err != nil {
		return "", fmt.Errorf("parsing evaluation submit response: %w", err)
	}
	if submitted.TaskID == "" {
		return "", fmt.Errorf("evaluation api returned no task id")
	}
	return submitted.TaskID, nil
}

// TaskStatus fetches the current status of an evaluation task.
func (c *EvaluationClient) TaskStatus(ctx context.Context, taskID string) (models.TaskStatus, error) {
	res, err := c.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/status/%s", taskID))
	if err != nil {
		return models.TaskStatus{}, fmt.Errorf("fetching status for task %s: %w", taskID, err)
	}
	if !res.IsSuccess() {
		return models.TaskStatus{}, fmt.Errorf("evaluation api returned %d for task %s: %s", res.StatusCode(), taskID, res.String())
	}

	var status models.TaskStatus
	if err := json.Unmarshal(res.Body(), &status); err != nil {
		return models.TaskStatus{}, fmt.Errorf("parsing status for task %s: %w", taskID, err)
	}
	return status, nil
}
