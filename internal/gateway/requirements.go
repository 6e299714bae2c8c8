package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/h0rv/reqboard/internal/domain"
)

// flexID accepts the service's integer ids as well as string ids.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("requirement id: %w", err)
	}
	*f = flexID(s)
	return nil
}

// requirementJSON mirrors the fields of the service's requirement payloads
// the board uses. Missing and null fields decode to zero values.
type requirementJSON struct {
	ID                 flexID  `json:"id"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	RequirementType    string  `json:"requirement_type"`
	Scenario           string  `json:"scenario"`
	Problem            string  `json:"problem"`
	Goal               string  `json:"goal"`
	ExpectedSolution   string  `json:"expected_solution"`
	AcceptanceCriteria string  `json:"acceptance_criteria"`
	Source             string  `json:"source"`
	Category           string  `json:"category"`
	Priority           string  `json:"priority"`
	Status             string  `json:"status"`
	EstimatedROI       float64 `json:"estimated_roi"`
}

func (r requirementJSON) toDomain() domain.Requirement {
	return domain.Requirement{
		ID:                 string(r.ID),
		Title:              r.Title,
		Description:        r.Description,
		RequirementType:    r.RequirementType,
		Scenario:           r.Scenario,
		Problem:            r.Problem,
		Goal:               r.Goal,
		ExpectedSolution:   r.ExpectedSolution,
		AcceptanceCriteria: r.AcceptanceCriteria,
		Source:             r.Source,
		Category:           r.Category,
		Priority:           r.Priority,
		Status:             domain.Status(r.Status),
		EstimatedROI:       r.EstimatedROI,
	}
}

// UpdatePath returns the status-update endpoint for a card.
func UpdatePath(cardID string) string {
	return "/api/requirements/" + url.PathEscape(cardID) + "/update"
}

// UpdateStatus sends one transition. Only a JSON true in the success field
// counts as accepted. False, missing or non-boolean values (1, "yes") are
// returned as a rejected result, not an error; a response that is not a JSON
// object is an error.
func (c *Client) UpdateStatus(ctx context.Context, req domain.TransitionRequest) (domain.TransitionResult, error) {
	if err := req.Validate(); err != nil {
		return domain.TransitionResult{}, err
	}

	raw, err := c.Call(ctx, UpdatePath(req.CardID), http.MethodPost, map[string]string{
		"status": string(req.TargetStatus),
	})
	if err != nil {
		return domain.TransitionResult{}, fmt.Errorf("failed to update requirement %s: %w", req.CardID, err)
	}

	return decodeTransitionResult(raw)
}

func decodeTransitionResult(raw json.RawMessage) (domain.TransitionResult, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return domain.TransitionResult{}, fmt.Errorf("%w: transition result is not an object", ErrDecode)
	}

	success, _ := body["success"].(bool)
	errText, _ := body["error"].(string)
	return domain.TransitionResult{Success: success, Error: errText}, nil
}

// ListRequirements fetches every requirement of a project.
func (c *Client) ListRequirements(ctx context.Context, projectID string) ([]domain.Requirement, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("project id: %w", ErrEmptyURL)
	}

	raw, err := c.Call(ctx, "/api/requirements/"+url.PathEscape(projectID), http.MethodGet, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}

	var items []requirementJSON
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: requirement list: %v", ErrDecode, err)
	}

	reqs := make([]domain.Requirement, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		reqs = append(reqs, item.toDomain())
	}
	return reqs, nil
}

// KanbanPageURL is the service's own kanban page for a project.
func (c *Client) KanbanPageURL(projectID string) string {
	return c.BaseURL() + "/project/" + url.PathEscape(projectID) + "/kanban"
}
