// Package target implements the REST client for the target SaaS
// account's user and group API. Remote failures come back as error
// values carrying the HTTP status and the remote reason string; the
// caller decides fatal versus recoverable.
package target

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

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/idsync/pkg/domain/interfaces"
	"github.com/secmon-lab/idsync/pkg/domain/model"
	"github.com/secmon-lab/idsync/pkg/domain/types"
	"github.com/secmon-lab/idsync/pkg/utils/safe"
)

// DefaultTimeout bounds each individual API call
const DefaultTimeout = 30 * time.Second

// Client talks to the target system's REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ interfaces.TargetClient = &Client{}

// Option is a functional option for client configuration
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a target-system client for the given API base URL and
// access token.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, goerr.New("target base URL is required")
	}
	if token == "" {
		return nil, goerr.New("target access token is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Validate probes authentication and connectivity
func (c *Client) Validate(ctx context.Context) error {
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.call(ctx, http.MethodGet, "/ping", nil, &resp); err != nil {
		return goerr.Wrap(err, "target system ping failed")
	}
	return nil
}

// ListGroups returns the target's group directory as name → remote ID
func (c *Client) ListGroups(ctx context.Context) (model.GroupTable, error) {
	var resp groupListResponse
	if err := c.call(ctx, http.MethodGet, "/groups", nil, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to list groups")
	}

	table := make(model.GroupTable, len(resp.GroupInfoList))
	for _, g := range resp.GroupInfoList {
		table[g.GroupName] = types.GroupID(g.GroupID)
	}
	return table, nil
}

// CreateGroup creates a group and returns its remote ID. An existing
// name maps to interfaces.ErrGroupExists so the caller can treat it as
// success.
func (c *Client) CreateGroup(ctx context.Context, name string) (types.GroupID, error) {
	var resp createGroupResponse
	err := c.call(ctx, http.MethodPost, "/groups", createGroupRequest{GroupName: name}, &resp)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.isGroupExists() {
			return "", goerr.Wrap(interfaces.ErrGroupExists, "group name taken", goerr.V("group", name))
		}
		return "", goerr.Wrap(err, "failed to create group", goerr.V("group", name))
	}
	return types.GroupID(resp.GroupID), nil
}

// ListUsers returns every user account the target system knows
func (c *Client) ListUsers(ctx context.Context) ([]model.TargetUser, error) {
	var resp userListResponse
	if err := c.call(ctx, http.MethodGet, "/users", nil, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}

	users := make([]model.TargetUser, 0, len(resp.UserInfoList))
	for i := range resp.UserInfoList {
		users = append(users, resp.UserInfoList[i].toModel())
	}
	return users, nil
}

// GetUser fetches one account by remote ID
func (c *Client) GetUser(ctx context.Context, id types.TargetUserID) (*model.TargetUser, error) {
	var resp userInfo
	err := c.call(ctx, http.MethodGet, "/users/"+id.String(), nil, &resp)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound {
			return nil, goerr.Wrap(interfaces.ErrUserNotFound, "no such user", goerr.V("user_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("user_id", id))
	}

	user := resp.toModel()
	if user.ID == "" {
		user.ID = id
	}
	return &user, nil
}

// CreateUser provisions an account and returns its remote ID
func (c *Client) CreateUser(ctx context.Context, payload *model.UserPayload) (types.TargetUserID, error) {
	var resp createUserResponse
	if err := c.call(ctx, http.MethodPost, "/users", payload, &resp); err != nil {
		return "", goerr.Wrap(err, "failed to create user", goerr.V("email", payload.Email))
	}
	return types.TargetUserID(resp.UserID), nil
}

// UpdateUser replaces an account's profile, group placement and roles
func (c *Client) UpdateUser(ctx context.Context, id types.TargetUserID, payload *model.UserPayload) error {
	if err := c.call(ctx, http.MethodPut, "/users/"+id.String(), payload, nil); err != nil {
		return goerr.Wrap(err, "failed to update user",
			goerr.V("user_id", id), goerr.V("email", payload.Email))
	}
	return nil
}

// SetUserStatus flips an account between ACTIVE and INACTIVE
func (c *Client) SetUserStatus(ctx context.Context, id types.TargetUserID, status types.UserStatus) error {
	req := setStatusRequest{UserStatus: status.String()}
	if err := c.call(ctx, http.MethodPut, "/users/"+id.String()+"/status", req, nil); err != nil {
		return goerr.Wrap(err, "failed to set user status",
			goerr.V("user_id", id), goerr.V("status", status))
	}
	return nil
}

// apiError is a non-2xx response from the target system
type apiError struct {
	status int
	code   string
	reason string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("target API error: status=%d reason=%s", e.status, e.reason)
}

func (e *apiError) isGroupExists() bool {
	if e.status == http.StatusConflict {
		return true
	}
	return strings.Contains(strings.ToLower(e.reason), "already exists")
}

// call performs one API request. A non-2xx response becomes an
// apiError carrying the remote reason verbatim.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to encode request body")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return goerr.Wrap(err, "failed to build request", goerr.V("path", path))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "request failed",
			goerr.V("method", method), goerr.V("path", path))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &apiError{status: resp.StatusCode, reason: strings.TrimSpace(string(raw))}

		var eresp errorResponse
		if json.Unmarshal(raw, &eresp) == nil && eresp.Message != "" {
			apiErr.code = eresp.Code
			apiErr.reason = eresp.Message
		}
		return goerr.Wrap(apiErr, "target API call failed",
			goerr.V("method", method), goerr.V("path", path), goerr.V("status", resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return goerr.Wrap(err, "failed to decode response", goerr.V("path", path))
		}
	}
	return nil
}
