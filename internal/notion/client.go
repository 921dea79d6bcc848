package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	APIVersion     = "2022-06-28"

	untitledDatabase = "Untitled Database"
)

var ErrInvalidDatabaseID = errors.New("invalid database id")

// APIError is a non-2xx answer from Notion.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("notion api: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("notion api: status %d", e.StatusCode)
}

// Retryable reports whether repeating the same request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable is true for transport failures and retryable API errors.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return err != nil
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Page is one check-in row of the target database.
type Page struct {
	AttendeeName  string
	AttendeeEmail string
	EventName     string
	Points        int
	CheckedInAt   time.Time
}

type textContent struct {
	Content string `json:"content"`
}

type richText struct {
	Text textContent `json:"text"`
}

func (p Page) body(databaseID string) map[string]any {
	return map[string]any{
		"parent": map[string]string{"database_id": databaseID},
		"properties": map[string]any{
			"Name":   map[string]any{"title": []richText{{Text: textContent{Content: p.AttendeeName}}}},
			"Email":  map[string]any{"email": p.AttendeeEmail},
			"Event":  map[string]any{"rich_text": []richText{{Text: textContent{Content: p.EventName}}}},
			"Points": map[string]any{"number": p.Points},
			"Date":   map[string]any{"date": map[string]string{"start": p.CheckedInAt.UTC().Format(time.RFC3339)}},
		},
	}
}

func (c *Client) CreatePage(ctx context.Context, apiKey, databaseID string, p Page) error {
	payload, err := json.Marshal(p.body(databaseID))
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/pages", apiKey, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// RetrieveDatabaseTitle fetches the database and returns its plain-text title.
func (c *Client) RetrieveDatabaseTitle(ctx context.Context, apiKey, databaseID string) (string, error) {
	if databaseID == "" || databaseID == "." || databaseID == ".." {
		return "", ErrInvalidDatabaseID
	}
	resp, err := c.do(ctx, http.MethodGet, "/v1/databases/"+url.PathEscape(databaseID), apiKey, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var db struct {
		Title []struct {
			PlainText string `json:"plain_text"`
		} `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&db); err != nil {
		return "", fmt.Errorf("decode database: %w", err)
	}
	if len(db.Title) == 0 || db.Title[0].PlainText == "" {
		return untitledDatabase, nil
	}
	return db.Title[0].PlainText, nil
}

func (c *Client) do(ctx context.Context, method, path, apiKey string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Notion-Version", APIVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion request %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&errBody) == nil {
			apiErr.Code = errBody.Code
			apiErr.Message = errBody.Message
		}
		return nil, apiErr
	}
	return resp, nil
}
