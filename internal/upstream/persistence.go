// Package upstream holds the HTTP clients for the two external collaborators
// of the marking core: the assessment persistence API and the batch
// evaluation service.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"assessment-backend/pkg/models"

	"github.com/go-resty/resty/v2"
)

const defaultRequestTimeout = 30 * time.Second

// PersistenceClient speaks the assessment persistence API: it serves the
// last persisted section tree and accepts change-sets produced by the diff
// engine. The API exposes no partial-failure semantics, so a save is treated
// as all-or-nothing.
type PersistenceClient struct {
	client *resty.Client
}

func NewPersistenceClient(baseURL string) *PersistenceClient {
	return &PersistenceClient{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(defaultRequestTimeout),
	}
}

// AssessmentTree fetches the persisted section tree for an assessment.
func (c *PersistenceClient) AssessmentTree(ctx context.Context, assessmentID string) ([]models.Section, error) {
	res, err := c.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/assessments/%s/sections", assessmentID))
	if err != nil {
		return nil, fmt.Errorf("fetching assessment %s: %w", assessmentID, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("persistence api returned %d fetching assessment %s: %s", res.StatusCode(), assessmentID, res.String())
	}

	var sections []models.Section
	if err := json.Unmarshal(res.Body(), &sections); err != nil {
		return nil, fmt.Errorf("parsing assessment %s sections: %w", assessmentID, err)
	}
	return sections, nil
}

// SaveChangeSet posts an incremental change-set for an assessment.
func (c *PersistenceClient) SaveChangeSet(ctx context.Context, assessmentID string, cs models.ChangeSet) error {
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(cs).
		Post(fmt.Sprintf("/assessments/%s/sections", assessmentID))
	if err != nil {
		return fmt.Errorf("saving assessment %s: %w", assessmentID, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("persistence api returned %d saving assessment %s: %s", res.StatusCode(), assessmentID, res.String())
	}
	return nil
}
