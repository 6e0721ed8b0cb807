package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/panel"
)

// sessionHeader carries the wallet session id; it matches the server's
// X-Wallet-Session header.
const sessionHeader = "X-Wallet-Session"

// HTTPClient implements CounterClient using the HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	session    string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// SetSession sets the wallet session id sent with every request.
func (c *HTTPClient) SetSession(id string) { c.session = id }

// Session returns the wallet session id in use.
func (c *HTTPClient) Session() string { return c.session }

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) MountPanel(ctx context.Context, network model.Network) (*panel.Snapshot, error) {
	q := url.Values{}
	if network != "" {
		q.Set("network", string(network))
	}
	var snap panel.Snapshot
	if err := c.doJSON(ctx, http.MethodPost, withQuery("/v1/panels", q), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *HTTPClient) GetPanel(ctx context.Context, id string) (*panel.Snapshot, error) {
	var snap panel.Snapshot
	if err := c.doJSON(ctx, http.MethodGet, "/v1/panels/"+url.PathEscape(id), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *HTTPClient) ListPanels(ctx context.Context) ([]panel.Snapshot, error) {
	var resp struct {
		Panels []panel.Snapshot `json:"panels"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/panels", &resp); err != nil {
		return nil, err
	}
	return resp.Panels, nil
}

// RunOperation runs op on the panel. Warnings and failures are returned in
// the result's notification, not as errors.
func (c *HTTPClient) RunOperation(ctx context.Context, panelID string, op model.Operation) (*OperationResult, error) {
	var res OperationResult
	path := "/v1/panels/" + url.PathEscape(panelID) + "/" + url.PathEscape(string(op))
	if err := c.doJSON(ctx, http.MethodPost, path, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ConnectWallet opens a wallet session and uses it for later requests.
func (c *HTTPClient) ConnectWallet(ctx context.Context) (*model.WalletSession, error) {
	var sess model.WalletSession
	if err := c.doJSON(ctx, http.MethodPost, "/v1/wallet/connect", &sess); err != nil {
		return nil, err
	}
	c.session = sess.ID
	return &sess, nil
}

func (c *HTTPClient) GetWallet(ctx context.Context) (*model.WalletSession, error) {
	var sess model.WalletSession
	if err := c.doJSON(ctx, http.MethodGet, "/v1/wallet", &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *HTTPClient) DisconnectWallet(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/wallet", nil); err != nil {
		return err
	}
	c.session = ""
	return nil
}

func (c *HTTPClient) ListNetworks(ctx context.Context) (*NetworksResponse, error) {
	var resp NetworksResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/networks", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetEvents(ctx context.Context, req *GetEventsRequest) ([]*model.Event, error) {
	q := url.Values{}
	if req.Topic != "" {
		q.Set("topic", req.Topic)
	}
	if !req.Since.IsZero() {
		q.Set("since", req.Since.UTC().Format(time.RFC3339))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	path := withQuery("/v1/panels/"+url.PathEscape(req.PanelID)+"/events", q)

	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// StreamEvents calls fn for each server-sent event until ctx ends, the
// server closes the stream, or fn fails.
func (c *HTTPClient) StreamEvents(ctx context.Context, req *StreamRequest, fn func(StreamEvent) error) error {
	q := url.Values{}
	if len(req.Topics) > 0 {
		q.Set("topics", strings.Join(req.Topics, ","))
	}
	if req.PanelID != "" {
		q.Set("panel", req.PanelID)
	}
	httpReq, err := c.newRequest(ctx, http.MethodGet, withQuery("/v1/events/stream", q))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	if req.LastEventID != "" {
		httpReq.Header.Set("Last-Event-ID", req.LastEventID)
	}

	resp, err := c.send(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := readSSE(resp.Body, fn); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

// readSSE parses an event stream. Comment lines, which carry keepalives,
// are ignored.
func readSSE(r io.Reader, fn func(StreamEvent) error) error {
	var (
		evt  StreamEvent
		data []string
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if len(data) > 0 || evt.Topic != "" {
				evt.Data = []byte(strings.Join(data, "\n"))
				if err := fn(evt); err != nil {
					return err
				}
			}
			evt, data = StreamEvent{}, nil
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			evt.ID = value
		case "event":
			evt.Topic = value
		case "data":
			data = append(data, value)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}

func (c *HTTPClient) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// APIError is a non-2xx response. Message is the server's "error" field
// when the body has one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func apiError(status int, body []byte) *APIError {
	var env struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		msg = env.Error
	}
	return &APIError{StatusCode: status, Message: msg}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// newRequest builds a request carrying the bearer token and wallet session.
func (c *HTTPClient) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.session != "" {
		req.Header.Set(sessionHeader, c.session)
	}
	return req, nil
}

// send performs req and turns error statuses into *APIError. On success the
// caller owns resp.Body.
func (c *HTTPClient) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, apiError(resp.StatusCode, body)
	}
	return resp, nil
}

// doJSON sends a bodiless request and decodes the JSON response into out,
// which may be nil when the response has no body worth reading.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, out any) error {
	req, err := c.newRequest(ctx, method, path)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
