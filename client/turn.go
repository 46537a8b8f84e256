package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/introlix/deskflow/core"
)

// turnRequestBody is the chat submission wire shape.
type turnRequestBody struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	Search      bool   `json:"search"`
	WorkspaceID string `json:"workspace_id"`
}

// chatPath builds the chat route prefix for a workspace.
func chatPath(workspaceID string, parts ...string) string {
	p := fmt.Sprintf("/workspace/%s/chat", url.PathEscape(workspaceID))
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// CreateChat creates a chat in the workspace and returns its id.
func (c *Client) CreateChat(ctx context.Context, workspaceID, title string) (string, error) {
	body := map[string]string{"title": title}
	var out struct {
		Message string `json:"message"`
		ID      string `json:"_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, chatPath(workspaceID, "new"), body, &out); err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}
	return out.ID, nil
}

// Chat is a workspace chat with its full message history.
type Chat struct {
	ID          string         `json:"_id"`
	WorkspaceID string         `json:"workspace_id"`
	Title       string         `json:"title,omitempty"`
	Messages    []core.Message `json:"messages,omitempty"`
}

// GetChat fetches a chat's history.
func (c *Client) GetChat(ctx context.Context, workspaceID, chatID string) (*Chat, error) {
	var out Chat
	if err := c.doJSON(ctx, http.MethodGet, chatPath(workspaceID, url.PathEscape(chatID))+"/", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &out, nil
}

// DeleteChat removes a chat and its history.
func (c *Client) DeleteChat(ctx context.Context, workspaceID, chatID string) error {
	if err := c.doJSON(ctx, http.MethodDelete, chatPath(workspaceID, url.PathEscape(chatID))+"/", nil, nil); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// SubmitTurn implements core.TurnSubmitter. The response body is the turn's
// line-delimited event stream; the returned TurnSource yields it chunk by
// chunk until EOF or context cancellation.
func (c *Client) SubmitTurn(ctx context.Context, workspaceID, chatID string, req core.TurnRequest) (core.TurnSource, error) {
	body := turnRequestBody{
		Prompt:      req.Prompt,
		Model:       req.Model,
		Search:      req.Search,
		WorkspaceID: workspaceID,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode turn request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath(workspaceID, url.PathEscape(chatID))+"/", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build turn request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	// No client-side timeout here: a turn streams for as long as the agent
	// works. Cancellation flows through the request context.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to submit turn: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, decodeAPIError(resp)
	}

	c.logger.Debug("turn opened", "chat_id", chatID)

	return &bodySource{resp: resp}, nil
}

// bodySource adapts a streaming response body to core.TurnSource.
type bodySource struct {
	resp *http.Response

	closeOnce sync.Once
	closeErr  error
}

// Recv returns the next available chunk of the stream. Chunk boundaries are
// whatever the transport delivered; callers accumulate and re-decode, so no
// line alignment is required. Returns io.EOF after the final chunk.
func (s *bodySource) Recv() (string, error) {
	buf := make([]byte, 4096)
	n, err := s.resp.Body.Read(buf)
	return string(buf[:n]), err
}

// Close releases the underlying response body. Safe to call multiple times.
func (s *bodySource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.resp.Body.Close()
	})
	return s.closeErr
}
