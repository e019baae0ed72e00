package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nicscott/assessment-reports/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// HTTPClient talks to a CRM REST API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logging.Logger
}

// NewHTTPClient constructs a CRM client.
func NewHTTPClient(baseURL, apiKey string, logger *logging.Logger) *HTTPClient {
	if strings.TrimSpace(baseURL) == "" {
		panic("crm: base URL cannot be empty")
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

// UpsertContact creates or updates a contact keyed by email. The CRM
// fills name fields only when the stored ones are empty.
func (c *HTTPClient) UpsertContact(ctx context.Context, email, firstName, lastName string) (*Contact, error) {
	payload := map[string]string{
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
	}

	var contact Contact
	if err := c.doJSON(ctx, http.MethodPost, "/contacts", payload, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// AttachTag adds a tag to the contact, creating the tag if needed.
func (c *HTTPClient) AttachTag(ctx context.Context, contactID int64, tagSlug string) error {
	if tagSlug == "" {
		return nil
	}
	path := fmt.Sprintf("/contacts/%d/tags", contactID)
	return c.doJSON(ctx, http.MethodPost, path, map[string]string{"slug": tagSlug}, nil)
}

// DetachTag removes a tag from the contact.
func (c *HTTPClient) DetachTag(ctx context.Context, contactID int64, tagSlug string) error {
	if tagSlug == "" {
		return nil
	}
	path := fmt.Sprintf("/contacts/%d/tags/%s", contactID, tagSlug)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// GetMeta reads a contact meta value. Missing keys return empty.
func (c *HTTPClient) GetMeta(ctx context.Context, contactID int64, key string) (string, error) {
	path := fmt.Sprintf("/contacts/%d/meta/%s", contactID, key)

	var out struct {
		Value string `json:"value"`
	}
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return out.Value, nil
}

// SetMeta stores a contact meta value.
func (c *HTTPClient) SetMeta(ctx context.Context, contactID int64, key, value string) error {
	path := fmt.Sprintf("/contacts/%d/meta/%s", contactID, key)
	return c.doJSON(ctx, http.MethodPut, path, map[string]string{"value": value}, nil)
}

type notFoundError struct{ path string }

func (e *notFoundError) Error() string { return "crm: not found: " + e.path }

func isNotFound(err error) bool {
	var nf *notFoundError
	return errors.As(err, &nf)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("crm: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &notFoundError{path: path}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("crm: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(raw)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("CRM API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return fmt.Errorf("crm: API returned %d: %s", resp.StatusCode, msg)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("crm: decode response: %w", err)
	}
	return nil
}
