package visitsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Errors mirroring the server's error classes.
var (
	ErrUnauthorized = errors.New("visitsync: unauthorized")
	ErrNotFound     = errors.New("visitsync: not found")
	ErrValidation   = errors.New("visitsync: validation failed")
	ErrServer       = errors.New("visitsync: server error")
)

// APIClient talks to /api/user-visits with a bearer session token.
type APIClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

type visitsResponse struct {
	envelope
	Visits []struct {
		RegionCode string `json:"region_code"`
	} `json:"visits"`
}

type saveResponse struct {
	envelope
	SaveResult
}

func (c *APIClient) Fetch(ctx context.Context) ([]string, error) {
	var resp visitsResponse
	if err := c.do(ctx, http.MethodGet, "/api/user-visits", nil, &resp); err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(resp.Visits))
	for _, v := range resp.Visits {
		codes = append(codes, v.RegionCode)
	}
	return codes, nil
}

func (c *APIClient) Replace(ctx context.Context, codes []string) (SaveResult, error) {
	if codes == nil {
		codes = []string{}
	}
	body := map[string][]string{"visited_region_codes": codes}
	var resp saveResponse
	if err := c.do(ctx, http.MethodPost, "/api/user-visits", body, &resp); err != nil {
		return SaveResult{}, err
	}
	return resp.SaveResult, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		var env envelope
		_ = json.NewDecoder(res.Body).Decode(&env)
		return statusError(res.StatusCode, env.Message)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func statusError(code int, message string) error {
	var class error
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		class = ErrUnauthorized
	case code == http.StatusNotFound:
		class = ErrNotFound
	case code == http.StatusBadRequest:
		class = ErrValidation
	default:
		class = ErrServer
	}
	if message == "" {
		message = http.StatusText(code)
	}
	return fmt.Errorf("%w: %d %s", class, code, message)
}
