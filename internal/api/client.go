package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go-handshake/internal/observability"
)

const defaultTimeout = 15 * time.Second

var tracer = otel.Tracer("chatclient/api")

// Error is a non-2xx response. ErrorCode is the server's application code when present.
type Error struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *Error) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	Message   string          `json:"message"`
	ErrorCode json.RawMessage `json:"errorCode"`
	Data      json.RawMessage `json:"data"`
}

// Client talks to the REST backend on behalf of one user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// do performs one call and decodes the envelope's data into out. out may be nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	ctx, span := tracer.Start(ctx, "api."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer span.End()

	start := time.Now()
	status := 0
	defer func() {
		observability.ObserveAPIRequest(op, status, start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, op+" failed")
		}
	}()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("api: build %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s: %w", op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", status))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s: %w", op, err)
	}

	if status < 200 || status >= 300 {
		apiErr := &Error{StatusCode: status, Message: http.StatusText(status)}
		var env envelope
		if json.Unmarshal(raw, &env) == nil {
			if env.Message != "" {
				apiErr.Message = env.Message
			}
			apiErr.ErrorCode = strings.Trim(string(env.ErrorCode), `"`)
			if apiErr.ErrorCode == "null" {
				apiErr.ErrorCode = ""
			}
		}
		slog.Warn("[API] Request failed", "op", op, "status", status, "errorCode", apiErr.ErrorCode)
		return apiErr
	}

	if out == nil || status == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("api: decode %s: %w", op, err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s data: %w", op, err)
	}
	return nil
}
