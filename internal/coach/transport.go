package coach

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
)

const DefaultTimeout = 30 * time.Second

var (
	ErrNetwork = errors.New("coach unreachable")
	ErrServer  = errors.New("coach server error")
	ErrDecode  = errors.New("coach response undecodable")
	ErrEncode  = errors.New("coach request unencodable")
)

// Sender performs one request/response exchange with the coaching service.
type Sender interface {
	Send(ctx context.Context, req OutboundRequest) (InboundResponse, error)
}

// Client posts envelopes to a single coaching-service endpoint. It never retries.
type Client struct {
	endpoint   string
	token      string
	loc        *time.Location
	httpClient *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		loc:      time.Local,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithToken sends the token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	c.token = strings.TrimSpace(token)
	return c
}

// WithLocation sets the zone requested dates are parsed in.
func (c *Client) WithLocation(loc *time.Location) *Client {
	if loc != nil {
		c.loc = loc
	}
	return c
}

func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Send(ctx context.Context, req OutboundRequest) (InboundResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return InboundResponse{}, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return InboundResponse{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return InboundResponse{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return InboundResponse{}, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return InboundResponse{}, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	}

	parsed, err := Decode(responseBody, c.loc)
	if err != nil {
		return InboundResponse{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return parsed, nil
}
