package automatesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal automate HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/automate",
		Timeout:  10 * time.Second,
	}
}

type MethodRef struct {
	Service string `json:"service"`
	Method  string `json:"method"`
}

// Action is a staged or attached action.
type Action struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Method      MethodRef      `json:"method"`
	Args        map[string]any `json:"args"`
	CreatedDate time.Time      `json:"createdDate"`
}

// Flow is an ordered list of actions plus metadata.
type Flow struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Owner            string    `json:"owner,omitempty"`
	Logo             string    `json:"logo,omitempty"`
	Active           bool      `json:"active"`
	Tags             []string  `json:"tags"`
	Triggers         []string  `json:"triggers"`
	Actions          []Action  `json:"actions"`
	CreatedDate      time.Time `json:"createdDate"`
	LastModifiedDate time.Time `json:"lastModifiedDate"`
}

type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

type Method struct {
	Service     string  `json:"service"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Params      []Param `json:"params"`
}

type Service struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Methods     []Method `json:"methods"`
}

// Event represents a change-log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// FlowInput creates a flow. An empty ID lets the server pick one.
type FlowInput struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	Logo        string   `json:"logo,omitempty"`
	Active      bool     `json:"active,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Triggers    []string `json:"triggers,omitempty"`
}

// FlowPatch updates only the non-nil fields.
type FlowPatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Owner       *string   `json:"owner,omitempty"`
	Logo        *string   `json:"logo,omitempty"`
	Active      *bool     `json:"active,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Triggers    *[]string `json:"triggers,omitempty"`
}

type StagedActionInput struct {
	Name    string         `json:"name,omitempty"`
	Service string         `json:"service"`
	Method  string         `json:"method"`
	Args    map[string]any `json:"args,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

type idResponse struct {
	ID string `json:"id"`
}

type engineStatus struct {
	Running bool `json:"running"`
}

func (c *Client) StartEngine(ctx context.Context) (bool, error) {
	var resp engineStatus
	err := c.do(ctx, http.MethodPost, "engine", nil, &resp)
	return resp.Running, err
}

func (c *Client) StopEngine(ctx context.Context) (bool, error) {
	var resp engineStatus
	err := c.do(ctx, http.MethodDelete, "engine", nil, &resp)
	return resp.Running, err
}

// EngineRunning reports whether the automation engine is running.
func (c *Client) EngineRunning(ctx context.Context) (bool, error) {
	var resp engineStatus
	err := c.do(ctx, http.MethodGet, "engine", nil, &resp)
	return resp.Running, err
}

func (c *Client) Services(ctx context.Context) ([]Service, error) {
	var resp []Service
	err := c.do(ctx, http.MethodGet, "services", nil, &resp)
	return resp, err
}

func (c *Client) Methods(ctx context.Context) ([]Method, error) {
	var resp []Method
	err := c.do(ctx, http.MethodGet, "methods", nil, &resp)
	return resp, err
}

func (c *Client) ListFlows(ctx context.Context) ([]Flow, error) {
	var resp []Flow
	err := c.do(ctx, http.MethodGet, "flows", nil, &resp)
	return resp, err
}

// CreateFlow creates a flow and returns its id.
func (c *Client) CreateFlow(ctx context.Context, in FlowInput) (string, error) {
	var resp idResponse
	err := c.do(ctx, http.MethodPost, "flow", in, &resp)
	return resp.ID, err
}

func (c *Client) GetFlow(ctx context.Context, id string) (Flow, error) {
	var resp Flow
	err := c.do(ctx, http.MethodGet, flowPath(id), nil, &resp)
	return resp, err
}

func (c *Client) UpdateFlow(ctx context.Context, id string, patch FlowPatch) (Flow, error) {
	var resp Flow
	err := c.do(ctx, http.MethodPut, flowPath(id), patch, &resp)
	return resp, err
}

func (c *Client) DeleteFlow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, flowPath(id), nil, nil)
}

// RunFlow dispatches a run. It does not wait for the run to finish.
func (c *Client) RunFlow(ctx context.Context, id string, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	return c.do(ctx, http.MethodPost, flowPath(id), args, nil)
}

func (c *Client) AttachAction(ctx context.Context, flowID, actionID string) (Flow, error) {
	var resp Flow
	err := c.do(ctx, http.MethodPost, actionPath(flowID, actionID), nil, &resp)
	return resp, err
}

func (c *Client) GetFlowAction(ctx context.Context, flowID, actionID string) (Action, error) {
	var resp Action
	err := c.do(ctx, http.MethodGet, actionPath(flowID, actionID), nil, &resp)
	return resp, err
}

func (c *Client) MoveAction(ctx context.Context, flowID, actionID string, pos int) (Flow, error) {
	var resp Flow
	endpoint := fmt.Sprintf("%s/position/%d", actionPath(flowID, actionID), pos)
	err := c.do(ctx, http.MethodPut, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) RemoveAction(ctx context.Context, flowID, actionID string) (Flow, error) {
	var resp Flow
	err := c.do(ctx, http.MethodDelete, actionPath(flowID, actionID), nil, &resp)
	return resp, err
}

func (c *Client) ListStagedActions(ctx context.Context) ([]Action, error) {
	var resp []Action
	err := c.do(ctx, http.MethodGet, "staging/actions", nil, &resp)
	return resp, err
}

// CreateStagedAction stages an action and returns its id.
func (c *Client) CreateStagedAction(ctx context.Context, in StagedActionInput) (string, error) {
	var resp idResponse
	err := c.do(ctx, http.MethodPost, "staging/action", in, &resp)
	return resp.ID, err
}

func (c *Client) GetStagedAction(ctx context.Context, id string) (Action, error) {
	var resp Action
	err := c.do(ctx, http.MethodGet, "staging/action/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) DeleteStagedAction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "staging/action/"+url.PathEscape(id), nil, nil)
}

// Events returns recent change-log entries, newest first.
func (c *Client) Events(ctx context.Context, limit int, evtType, entityID string) ([]Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if evtType != "" {
		q.Set("type", evtType)
	}
	if entityID != "" {
		q.Set("entity_id", entityID)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, b)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	return apiErr
}

func flowPath(id string) string {
	return "flow/" + url.PathEscape(id)
}

func actionPath(flowID, actionID string) string {
	return fmt.Sprintf("flow/%s/action/%s", url.PathEscape(flowID), url.PathEscape(actionID))
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
