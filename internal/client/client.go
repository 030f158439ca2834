package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"dalgoctl/internal/config"
	"dalgoctl/internal/logging"
	"dalgoctl/internal/types"
)

const defaultTimeout = 10 * time.Second

var ErrNoToken = errors.New("session token not found; set DALGO_TOKEN or write the token file")

type Client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
}

// New builds a client from the core config. The session token comes from the
// config/env when set, otherwise from the token file, re-read on every call.
func New(cfg config.CoreConfig, logger logging.Logger) (*Client, error) {
	var source oauth2.TokenSource
	if token := cfg.StaticToken(); token != "" {
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	} else {
		path, err := cfg.ResolveTokenPath()
		if err != nil {
			return nil, err
		}
		source = &fileTokenSource{path: path}
	}
	return newClient(cfg.APIBaseURL(), source, cfg.HTTPTimeout(), logger), nil
}

func NewWithBaseURL(baseURL, token string) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return newClient(baseURL, source, defaultTimeout, nil)
}

func newClient(baseURL string, source oauth2.TokenSource, timeout time.Duration, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		http: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: source,
				Base:   http.DefaultTransport,
			},
		},
		logger: logger.With(logging.F("component", "client")),
	}
}

func (c *Client) GetTableColumns(ctx context.Context, schema, inputName string) ([]types.ColumnData, error) {
	schema = strings.TrimSpace(schema)
	inputName = strings.TrimSpace(inputName)
	if schema == "" || inputName == "" {
		return nil, errors.New("schema and input name are required")
	}
	path := fmt.Sprintf("warehouse/table_columns/%s/%s", url.PathEscape(schema), url.PathEscape(inputName))
	var columns []types.ColumnData
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &columns); err != nil {
		return nil, err
	}
	return columns, nil
}

func (c *Client) GetOperation(ctx context.Context, nodeID string) (*types.OperationNodeData, error) {
	path, err := operationPath(nodeID)
	if err != nil {
		return nil, err
	}
	var data types.OperationNodeData
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) CreateOperation(ctx context.Context, payload types.OperationPayload) (*types.OperationNode, error) {
	var node types.OperationNode
	if err := c.doJSON(ctx, http.MethodPost, "transform/dbt_project/model/", payload, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) UpdateOperation(ctx context.Context, nodeID string, payload types.OperationPayload) (*types.OperationNode, error) {
	path, err := operationPath(nodeID)
	if err != nil {
		return nil, err
	}
	var node types.OperationNode
	if err := c.doJSON(ctx, http.MethodPut, path, payload, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp types.UnreadCount
	if err := c.doJSON(ctx, http.MethodGet, "notifications/unread_count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) ListNotifications(ctx context.Context, tab types.NotificationTab, page, limit int) (*types.NotificationPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if status, ok := tab.ReadStatusFilter(); ok {
		query.Set("read_status", status)
	}
	path := "notifications/v1"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp types.NotificationPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MarkNotifications(ctx context.Context, ids []int, readStatus bool) error {
	if len(ids) == 0 {
		return errors.New("notification ids are required")
	}
	req := types.MarkNotificationsRequest{
		NotificationIDs: append([]int{}, ids...),
		ReadStatus:      readStatus,
	}
	return c.doJSON(ctx, http.MethodPut, "notifications/v1", req, nil)
}

func (c *Client) MarkAllAsRead(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPut, "notifications/mark_all_as_read", struct{}{}, nil)
}

func (c *Client) GetPreferences(ctx context.Context) (*types.UserPreferences, error) {
	var resp types.UserPreferencesEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "userpreferences/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Preferences, nil
}

func (c *Client) UpdatePreferences(ctx context.Context, prefs types.UserPreferences) (*types.UserPreferences, error) {
	var resp types.UserPreferencesEnvelope
	if err := c.doJSON(ctx, http.MethodPut, "userpreferences/", prefs, &resp); err != nil {
		return nil, err
	}
	return &resp.Preferences, nil
}

func operationPath(nodeID string) (string, error) {
	nodeID = strings.TrimSpace(nodeID)
	if nodeID == "" {
		return "", errors.New("node id is required")
	}
	return "transform/dbt_project/model/operations/" + url.PathEscape(nodeID) + "/", nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return err
	}
	requestID := logging.NewRequestID()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			logging.F("method", method),
			logging.F("path", path),
			logging.F("request_id", requestID),
			logging.F("error", err.Error()),
		)
		return unwrapTokenError(err)
	}
	defer resp.Body.Close()
	c.logger.Debug("request done",
		logging.F("method", method),
		logging.F("path", path),
		logging.F("status", resp.StatusCode),
		logging.F("request_id", requestID),
		logging.F("duration", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func unwrapTokenError(err error) error {
	if errors.Is(err, ErrNoToken) {
		return ErrNoToken
	}
	return err
}

func decodeAPIError(resp *http.Response) error {
	type errorPayload struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	var payload errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if msg := detailMessage(payload.Detail); msg != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

// detailMessage flattens the backend's detail field, which is either a string
// or a list of validation entries with a "msg" key.
func detailMessage(detail any) string {
	switch v := detail.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, entry := range v {
			if m, ok := entry.(map[string]any); ok {
				if msg, ok := m["msg"].(string); ok && strings.TrimSpace(msg) != "" {
					parts = append(parts, strings.TrimSpace(msg))
				}
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// UserMessage is the text a toast should show for err: the backend message
// when there is one, the raw error otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr := AsAPIError(err); apiErr != nil && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return err.Error()
}
