// Package client implements the agentctl commands that talk to a running
// agentd instance over HTTP.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL       = "HSA_API_URL"
	envSessionToken = "HSA_SESSION_TOKEN"
	envEmbedSecret  = "HSA_EMBED_SECRET"

	defaultAPIURL = "http://localhost:8080"

	embedSecretHeader = "X-Embed-Secret"
)

// APIClient is a thin HTTP client for the agent API.
type APIClient struct {
	baseURL      string
	sessionToken string
	embedSecret  string
	httpClient   *http.Client
}

// NewAPIClient creates an APIClient with config cascade: flag, then env, then default.
// The session token and embed secret are both optional; commands that need
// them fail server-side with a clear error when they are missing.
func NewAPIClient(cmd *cobra.Command) (*APIClient, error) {
	_ = godotenv.Load()

	var baseURL, token, secret string
	if cmd != nil {
		if flagURL, err := cmd.Flags().GetString("api-url"); err == nil && flagURL != "" {
			baseURL = flagURL
		}
		if flagToken, err := cmd.Flags().GetString("session-token"); err == nil && flagToken != "" {
			token = flagToken
		}
		if flagSecret, err := cmd.Flags().GetString("embed-secret"); err == nil && flagSecret != "" {
			secret = flagSecret
		}
	}

	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if token == "" {
		token = os.Getenv(envSessionToken)
	}
	if secret == "" {
		secret = os.Getenv(envEmbedSecret)
	}

	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return &APIClient{
		baseURL:      baseURL,
		sessionToken: token,
		embedSecret:  secret,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request and decodes the response into out.
func (c *APIClient) Get(path string, out interface{}) error {
	return c.do("GET", path, nil, out, false)
}

// Post performs a POST request with a JSON body and decodes the response into out.
func (c *APIClient) Post(path string, body, out interface{}) error {
	return c.do("POST", path, body, out, false)
}

// PostSecret performs a POST request carrying the embed secret header.
func (c *APIClient) PostSecret(path string, body, out interface{}) error {
	return c.do("POST", path, body, out, true)
}

// DeleteSecret performs a DELETE request carrying the embed secret header.
func (c *APIClient) DeleteSecret(path string) error {
	return c.do("DELETE", path, nil, nil, true)
}

func (c *APIClient) do(method, path string, body, out interface{}, withSecret bool) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.sessionToken)
	}
	if withSecret {
		req.Header.Set(embedSecretHeader, c.embedSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
