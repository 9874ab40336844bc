// Package client is the HTTP client for the sentinel operations API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/stayops-systems/sentinel/internal/models"
)

// Client talks to one sentinel server.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New builds a client for the given base URL and bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(method, path string, body interface{}, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// MonitorStatus holds the monitor state and active configuration.
type MonitorStatus struct {
	State  string                  `json:"state"`
	Config models.MonitoringConfig `json:"config"`
}

func (c *Client) StartMonitor() error {
	return c.do(http.MethodPost, "/api/v1/monitor/start", nil, nil)
}

func (c *Client) StopMonitor() error {
	return c.do(http.MethodPost, "/api/v1/monitor/stop", nil, nil)
}

func (c *Client) ForceCheck() (*models.MonitoringStats, error) {
	var stats models.MonitoringStats
	if err := c.do(http.MethodPost, "/api/v1/monitor/check", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) GetMonitorStatus() (*MonitorStatus, error) {
	var status MonitorStatus
	if err := c.do(http.MethodGet, "/api/v1/monitor/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) GetMonitorStats() (*models.MonitoringStats, error) {
	var stats models.MonitoringStats
	if err := c.do(http.MethodGet, "/api/v1/monitor/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) ListCorrelationRules() ([]models.CorrelationRule, error) {
	var rules []models.CorrelationRule
	if err := c.do(http.MethodGet, "/api/v1/rules/correlation", nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (c *Client) CreateCorrelationRule(rule *models.CorrelationRule) error {
	return c.do(http.MethodPost, "/api/v1/rules/correlation", rule, nil)
}

func (c *Client) UpdateCorrelationRule(rule *models.CorrelationRule) error {
	return c.do(http.MethodPut, "/api/v1/rules/correlation/"+url.PathEscape(rule.ID), rule, nil)
}

func (c *Client) DeleteCorrelationRule(id string) error {
	return c.do(http.MethodDelete, "/api/v1/rules/correlation/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListResponseRules() ([]models.ResponseRule, error) {
	var rules []models.ResponseRule
	if err := c.do(http.MethodGet, "/api/v1/rules/response", nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (c *Client) CreateResponseRule(rule *models.ResponseRule) error {
	return c.do(http.MethodPost, "/api/v1/rules/response", rule, nil)
}

func (c *Client) UpdateResponseRule(rule *models.ResponseRule) error {
	return c.do(http.MethodPut, "/api/v1/rules/response/"+url.PathEscape(rule.ID), rule, nil)
}

func (c *Client) DeleteResponseRule(id string) error {
	return c.do(http.MethodDelete, "/api/v1/rules/response/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListIncidents(status, severity string) ([]*models.SecurityIncident, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if severity != "" {
		q.Set("severity", severity)
	}
	path := "/api/v1/incidents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var incidents []*models.SecurityIncident
	if err := c.do(http.MethodGet, path, nil, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

func (c *Client) GetIncident(id string) (*models.SecurityIncident, error) {
	var incident models.SecurityIncident
	if err := c.do(http.MethodGet, "/api/v1/incidents/"+url.PathEscape(id), nil, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

func (c *Client) CloseIncident(id, resolution string) (*models.SecurityIncident, error) {
	var incident models.SecurityIncident
	body := map[string]string{"resolution": resolution}
	if err := c.do(http.MethodPost, "/api/v1/incidents/"+url.PathEscape(id)+"/close", body, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

// Login exchanges an API key for a bearer token.
func (c *Client) Login(apiKey, subject string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"api_key": apiKey, "subject": subject}
	if err := c.do(http.MethodPost, "/api/v1/auth/token", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}
