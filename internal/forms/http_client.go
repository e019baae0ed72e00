package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nicscott/assessment-reports/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// HTTPClient talks to the forms platform REST API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logging.Logger
}

// NewHTTPClient constructs a forms platform client.
func NewHTTPClient(baseURL, apiKey string, logger *logging.Logger) *HTTPClient {
	if strings.TrimSpace(baseURL) == "" {
		panic("forms: base URL cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

var _ Client = (*HTTPClient)(nil)

// GetSubmission fetches a single entry by its numeric identifier.
func (c *HTTPClient) GetSubmission(ctx context.Context, entryID int64) (*Submission, error) {
	path := fmt.Sprintf("/entries/%d", entryID)

	var sub Submission
	if err := c.doJSON(ctx, http.MethodGet, path, &sub); err != nil {
		return nil, err
	}
	if sub.EntryID == 0 {
		sub.EntryID = entryID
	}
	return &sub, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("forms: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("forms: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSubmissionNotFound
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("forms: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("forms API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return fmt.Errorf("forms: API returned %d: %s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("forms: decode response: %w", err)
	}
	return nil
}
