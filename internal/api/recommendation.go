package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"go-handshake/internal/models"
)

func (c *Client) Candidates(ctx context.Context, limit int) (*models.Candidates, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var out models.Candidates
	if err := c.do(ctx, "candidates", http.MethodGet, "/recommendation/candidates", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitAction(ctx context.Context, req models.ActionRequest) (*models.ActionResult, error) {
	var out models.ActionResult
	if err := c.do(ctx, "submit_action", http.MethodPost, "/recommendation/actions", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetPreferences(ctx context.Context) error {
	return c.do(ctx, "reset_preferences", http.MethodPost, "/recommendation/preferences/reset", nil, struct{}{}, nil)
}
