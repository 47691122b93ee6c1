// Package client talks to the OEM returns HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/returnsdesk/oem-returns/internal/api/dto"
	"github.com/returnsdesk/oem-returns/internal/domain"
	"github.com/returnsdesk/oem-returns/internal/editsession"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error %s (%d): %s", e.Code, e.Status, e.Message)
}

// Client calls the returns API.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds requests whose context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ editsession.Updater = (*Client)(nil)

// ListParams selects a page of the returns table.
type ListParams struct {
	Statuses []string
	Agent    string
	Priority string
	Search   string
	Page     int
	PageSize int
}

func (p ListParams) query() string {
	q := url.Values{}
	if len(p.Statuses) > 0 {
		q.Set("status", strings.Join(p.Statuses, ","))
	}
	if p.Agent != "" {
		q.Set("agent", p.Agent)
	}
	if p.Priority != "" {
		q.Set("priority", p.Priority)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// List fetches one page of returns.
func (c *Client) List(ctx context.Context, params ListParams) (*dto.ReturnListResponse, error) {
	var out dto.ReturnListResponse
	if err := c.do(ctx, fiber.MethodGet, "/returns"+params.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a single return.
func (c *Client) Get(ctx context.Context, id string) (*domain.OEMReturn, error) {
	var out dto.ReturnEnvelope
	if err := c.do(ctx, fiber.MethodGet, "/returns/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	record := out.Data.Domain()
	return &record, nil
}

// History fetches the audit trail of a return.
func (c *Client) History(ctx context.Context, id string) ([]dto.HistoryResponse, error) {
	var out dto.HistoryListResponse
	if err := c.do(ctx, fiber.MethodGet, "/returns/"+url.PathEscape(id)+"/history", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Update sends a partial update. Nil patch values are sent as JSON null.
func (c *Client) Update(ctx context.Context, returnID string, patch domain.Patch) error {
	return c.do(ctx, fiber.MethodPatch, "/returns/"+url.PathEscape(returnID), patch, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if body != nil {
		agent.JSON(body)
	}
	agent.Timeout(timeout)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("prepare %s %s: %w", method, path, err)
	}

	// Bytes releases the agent.
	status, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(errs...))
	}
	if status < 200 || status >= 300 {
		apiErr := &APIError{Status: status}
		var envelope dto.ErrorBody
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
