package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/introlix/deskflow/core"
)

// deskPath builds the research-desk route prefix for a workspace.
func deskPath(workspaceID string, parts ...string) string {
	p := fmt.Sprintf("/workspace/%s/research-desk", url.PathEscape(workspaceID))
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// CreateDesk creates a new research desk in the workspace and returns its id.
func (c *Client) CreateDesk(ctx context.Context, workspaceID, title string) (string, error) {
	body := map[string]string{"title": title}
	var out struct {
		Message string `json:"message"`
		ID      string `json:"_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, deskPath(workspaceID, "new"), body, &out); err != nil {
		return "", fmt.Errorf("failed to create desk: %w", err)
	}
	return out.ID, nil
}

// GetDesk implements core.DeskReader.
func (c *Client) GetDesk(ctx context.Context, workspaceID, deskID string) (*core.Desk, error) {
	var desk core.Desk
	if err := c.doJSON(ctx, http.MethodGet, deskPath(workspaceID, url.PathEscape(deskID)), nil, &desk); err != nil {
		return nil, fmt.Errorf("failed to get desk: %w", err)
	}
	return &desk, nil
}

// DeskPage is one page of the workspace's desk listing.
type DeskPage struct {
	Items []core.Desk `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// ListDesks pages through the desks of a workspace, most recently updated first.
func (c *Client) ListDesks(ctx context.Context, workspaceID string, page, limit int) (*DeskPage, error) {
	path := fmt.Sprintf("%s/?page=%d&limit=%d", deskPath(workspaceID), page, limit)
	var out DeskPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list desks: %w", err)
	}
	return &out, nil
}

// SetupInitial implements core.StageActions: titles the desk from the prompt
// and advances it to the context-agent stage.
func (c *Client) SetupInitial(ctx context.Context, workspaceID, deskID, prompt string) error {
	body := map[string]string{"prompt": prompt}
	if err := c.doJSON(ctx, http.MethodPatch, deskPath(workspaceID, url.PathEscape(deskID), "setup"), body, nil); err != nil {
		return fmt.Errorf("failed to set up desk: %w", err)
	}
	return nil
}

// SetupContextAgent implements core.StageActions: runs one clarification round.
func (c *Client) SetupContextAgent(ctx context.Context, workspaceID, deskID string, req core.ContextAgentRequest) (*core.ContextAgentResult, error) {
	var out core.ContextAgentResult
	path := deskPath(workspaceID, url.PathEscape(deskID), "setup", "context-agent")
	if err := c.doJSON(ctx, http.MethodPatch, path, req, &out); err != nil {
		return nil, fmt.Errorf("failed to run context agent: %w", err)
	}
	return &out, nil
}

// SetupPlannerAgent implements core.StageActions: builds the research plan.
func (c *Client) SetupPlannerAgent(ctx context.Context, workspaceID, deskID, model string) (*core.PlanResult, error) {
	var out core.PlanResult
	path := deskPath(workspaceID, url.PathEscape(deskID), "setup", "planner-agent") + "?model=" + url.QueryEscape(model)
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to run planner agent: %w", err)
	}
	return &out, nil
}

// EditPlan implements core.StageActions: saves the edited plan and confirms
// it, advancing the desk to the explorer stage.
func (c *Client) EditPlan(ctx context.Context, workspaceID, deskID string, topics []core.PlanTopic) (*core.PlanResult, error) {
	var out core.PlanResult
	path := deskPath(workspaceID, url.PathEscape(deskID), "setup", "planner-agent", "edit")
	if err := c.doJSON(ctx, http.MethodPatch, path, topics, &out); err != nil {
		return nil, fmt.Errorf("failed to edit plan: %w", err)
	}
	return &out, nil
}

// SetupExplorerAgent implements core.StageActions: gathers sources for the
// approved plan and completes the workflow.
func (c *Client) SetupExplorerAgent(ctx context.Context, workspaceID, deskID, model string) error {
	path := deskPath(workspaceID, url.PathEscape(deskID), "setup", "explorer-agent") + "?model=" + url.QueryEscape(model)
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, nil); err != nil {
		return fmt.Errorf("failed to run explorer agent: %w", err)
	}
	return nil
}

// SaveDocument implements core.DocumentStore.
func (c *Client) SaveDocument(ctx context.Context, workspaceID, deskID, content string) error {
	body := map[string]string{"content": content}
	if err := c.doJSON(ctx, http.MethodPatch, deskPath(workspaceID, url.PathEscape(deskID), "docs"), body, nil); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}
