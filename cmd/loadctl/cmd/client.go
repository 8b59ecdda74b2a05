package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"loadgen/pkg/api"
)

// LoadClient handles API calls to a loadgen instance.
type LoadClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewLoadClient creates a new client with the given base URL.
func NewLoadClient(baseURL string) *LoadClient {
	return &LoadClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// do sends a request and decodes a successful response into out (if non-nil).
func (c *LoadClient) do(method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Add("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(resp.Body)
		message := string(respBody)
		var apiErr api.ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// StartCPU sends POST /load/cpu.
func (c *LoadClient) StartCPU(req api.CPULoadRequest) (*api.StartLoadResponse, error) {
	var result api.StartLoadResponse
	if err := c.do(http.MethodPost, "/load/cpu", req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartMemory sends POST /load/memory.
func (c *LoadClient) StartMemory(req api.MemoryLoadRequest) (*api.StartLoadResponse, error) {
	var result api.StartLoadResponse
	if err := c.do(http.MethodPost, "/load/memory", req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stop sends POST /load/{jobId}/stop.
func (c *LoadClient) Stop(jobID string) error {
	return c.do(http.MethodPost, "/load/"+jobID+"/stop", nil, http.StatusNoContent, nil)
}

// GetJob sends GET /load/{jobId}.
func (c *LoadClient) GetJob(jobID string) (*api.JobStatusResponse, error) {
	var result api.JobStatusResponse
	if err := c.do(http.MethodGet, "/load/"+jobID, nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs sends GET /load/status.
func (c *LoadClient) ListJobs() ([]api.JobStatusResponse, error) {
	var result []api.JobStatusResponse
	if err := c.do(http.MethodGet, "/load/status", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// History sends GET /load/history.
func (c *LoadClient) History() ([]api.JobStatusResponse, error) {
	var result []api.JobStatusResponse
	if err := c.do(http.MethodGet, "/load/history", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Limits sends GET /load/limits.
func (c *LoadClient) Limits() (*api.LimitsResponse, error) {
	var result api.LimitsResponse
	if err := c.do(http.MethodGet, "/load/limits", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
