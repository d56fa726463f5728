// ABOUTME: Adapter mapping semantic board operations onto Miro REST API v2 calls
// ABOUTME: Each operation issues exactly one authenticated JSON request, without retries

package miro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/j4jefferson/miro-mcp-server/internal/metrics"
)

// DefaultBaseURL is the Miro REST API v2 root.
const DefaultBaseURL = "https://api.miro.com/v2"

// MaxResponseBodySize caps how much of a response body is read (4MB).
const MaxResponseBodySize = 4 << 20

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// APIError reports a non-success HTTP status from the Miro API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Miro API error (%d): %s", e.StatusCode, e.Body)
}

// Config holds configuration for the API client.
type Config struct {
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
	// Timeout bounds each request. Zero leaves requests bounded only by ctx.
	Timeout time.Duration
	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// Client talks to the Miro REST API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	timeout    time.Duration
	metrics    metrics.Recorder
	logger     *slog.Logger
}

// NewClient creates a new API client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, errors.New("token source is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     cfg.Tokens,
		httpClient: httpClient,
		timeout:    cfg.Timeout,
		metrics:    recorder,
		logger:     logger,
	}, nil
}

// CreateBoard creates a board editable by all editors of the team.
func (c *Client) CreateBoard(ctx context.Context, name, description string) (*Board, error) {
	req := createBoardRequest{
		Name:        name,
		Description: description,
		Policy: boardPolicy{
			PermissionsPolicy: permissionsPolicy{
				CollaborationToolsStartAccess: "all_editors",
				CopyAccess:                    "anyone",
				SharingAccess:                 "team_members_with_editing_rights",
			},
		},
	}

	var board Board
	if err := c.do(ctx, "create_board", http.MethodPost, "/boards", req, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// ListBoards returns the boards visible to the authorized user.
func (c *Client) ListBoards(ctx context.Context) ([]Board, error) {
	var resp boardList
	if err := c.do(ctx, "list_boards", http.MethodGet, "/boards", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []Board{}, nil
	}
	return resp.Data, nil
}

// CreateStickyNote places a square sticky note on a board.
func (c *Client) CreateStickyNote(ctx context.Context, boardID string, note StickyNote) (*Item, error) {
	req := stickyNoteRequest{
		Data:     stickyNoteData{Content: note.Content, Shape: "square"},
		Style:    stickyStyle{FillColor: note.Color},
		Position: Position{X: note.X, Y: note.Y},
	}

	var item Item
	if err := c.do(ctx, "create_sticky_note", http.MethodPost, boardPath(boardID, "sticky_notes"), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateFrame places a custom-format frame on a board.
func (c *Client) CreateFrame(ctx context.Context, boardID string, frame Frame) (*Item, error) {
	req := frameRequest{
		Data:     frameData{Title: frame.Title, Format: "custom"},
		Position: Position{X: frame.X, Y: frame.Y},
		Geometry: Geometry{Width: frame.Width, Height: frame.Height},
	}

	var item Item
	if err := c.do(ctx, "create_frame", http.MethodPost, boardPath(boardID, "frames"), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateText places a text item on a board.
func (c *Client) CreateText(ctx context.Context, boardID string, text Text) (*Item, error) {
	req := textRequest{
		Data:     textData{Content: text.Content},
		Position: Position{X: text.X, Y: text.Y},
	}

	var item Item
	if err := c.do(ctx, "create_text", http.MethodPost, boardPath(boardID, "texts"), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetBoardItems returns the first page of items on a board.
func (c *Client) GetBoardItems(ctx context.Context, boardID string) ([]Item, error) {
	var resp itemList
	if err := c.do(ctx, "get_board_items", http.MethodGet, boardPath(boardID, "items"), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []Item{}, nil
	}
	return resp.Data, nil
}

// do issues one request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPIRequest(operation, 0, time.Since(start))
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBodySize))
	c.metrics.ObserveAPIRequest(operation, resp.StatusCode, time.Since(start))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", operation, err)
	}

	c.logger.Debug("miro API request",
		"operation", operation,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", operation, err)
	}
	return nil
}

func boardPath(boardID, collection string) string {
	return "/boards/" + url.PathEscape(boardID) + "/" + collection
}
