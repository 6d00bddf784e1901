// Package api is a typed client for the chess server JSON API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chesscore/internal/client/display"
	httpapi "chesscore/internal/transport/http"
)

type (
	GameResponse      = httpapi.GameResponse
	BoardResponse     = httpapi.BoardResponse
	ErrorResponse     = httpapi.ErrorResponse
	CreateGameRequest = httpapi.CreateGameRequest
)

type HealthResponse struct {
	Status string `json:"status"`
	Time   int64  `json:"time"`
	Games  int    `json:"games"`
}

// APIError is a non-2xx reply
type APIError struct {
	Status   int
	Response ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s", e.Status, e.Response.Error)
	if e.Response.Code != "" {
		msg += " (" + e.Response.Code + ")"
	}
	if e.Response.Details != "" {
		msg += ": " + e.Response.Details
	}
	return msg
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Verbose    bool
	// Trace receives one line per request; nil disables it
	Trace io.Writer
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			// Above the server's long-poll limit
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) tracef(format string, args ...any) {
	if c.Trace != nil {
		fmt.Fprintf(c.Trace, format, args...)
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.tracef("%s[API] %s %s%s\n", display.Blue, method, path, display.Reset)
	if c.Verbose && len(payload) > 0 {
		c.tracef("%sRequest Body:%s\n%s\n", display.Cyan, display.Reset, indent(payload))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	statusColor := display.Green
	if resp.StatusCode >= 400 {
		statusColor = display.Red
	}
	c.tracef("%s[%d %s]%s\n", statusColor, resp.StatusCode, http.StatusText(resp.StatusCode), display.Reset)
	if c.Verbose && len(respBody) > 0 {
		c.tracef("%sResponse Body:%s\n%s\n", display.Cyan, display.Reset, indent(respBody))
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, &apiErr.Response) != nil {
			apiErr.Response.Error = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func indent(raw []byte) string {
	var out bytes.Buffer
	if json.Indent(&out, raw, "", "  ") != nil {
		return string(raw)
	}
	return out.String()
}

func gamePath(gameID string, parts ...string) string {
	return "/api/v1/games/" + gameID + strings.Join(parts, "")
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp)
	return &resp, err
}

func (c *Client) CreateGame(ctx context.Context, req *CreateGameRequest) (*GameResponse, error) {
	var resp GameResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/games", req, &resp)
	return &resp, err
}

func (c *Client) GetGame(ctx context.Context, gameID string) (*GameResponse, error) {
	var resp GameResponse
	err := c.doRequest(ctx, http.MethodGet, gamePath(gameID), nil, &resp)
	return &resp, err
}

// WaitGame long-polls until the game's version moves past version
func (c *Client) WaitGame(ctx context.Context, gameID string, version int) (*GameResponse, error) {
	var resp GameResponse
	path := gamePath(gameID, "/wait?version=", strconv.Itoa(version))
	err := c.doRequest(ctx, http.MethodGet, path, nil, &resp)
	return &resp, err
}

func (c *Client) DeleteGame(ctx context.Context, gameID string) error {
	return c.doRequest(ctx, http.MethodDelete, gamePath(gameID), nil, nil)
}

func (c *Client) MakeMove(ctx context.Context, gameID, move string) (*GameResponse, error) {
	var resp GameResponse
	err := c.doRequest(ctx, http.MethodPost, gamePath(gameID, "/moves"), &httpapi.MoveRequest{Move: move}, &resp)
	return &resp, err
}

func (c *Client) UndoMoves(ctx context.Context, gameID string, count int) (*GameResponse, error) {
	var resp GameResponse
	err := c.doRequest(ctx, http.MethodPost, gamePath(gameID, "/undo"), &httpapi.StepRequest{Count: count}, &resp)
	return &resp, err
}

func (c *Client) RedoMoves(ctx context.Context, gameID string, count int) (*GameResponse, error) {
	var resp GameResponse
	err := c.doRequest(ctx, http.MethodPost, gamePath(gameID, "/redo"), &httpapi.StepRequest{Count: count}, &resp)
	return &resp, err
}

// EngineMove queues an engine turn; the reply arrives through WaitGame
func (c *Client) EngineMove(ctx context.Context, gameID string) (*GameResponse, error) {
	var resp GameResponse
	err := c.doRequest(ctx, http.MethodPost, gamePath(gameID, "/engine"), nil, &resp)
	return &resp, err
}

func (c *Client) GetBoard(ctx context.Context, gameID string) (*BoardResponse, error) {
	var resp BoardResponse
	err := c.doRequest(ctx, http.MethodGet, gamePath(gameID, "/board"), nil, &resp)
	return &resp, err
}
