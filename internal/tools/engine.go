// ABOUTME: Tool invocation engine translating tool calls into board API operations
// ABOUTME: Applies schema defaults, dispatches by tool name and formats text summaries

package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/j4jefferson/miro-mcp-server/internal/metrics"
	"github.com/j4jefferson/miro-mcp-server/internal/miro"
)

// ErrUnknownTool is returned when a call names a tool that is not registered.
var ErrUnknownTool = errors.New("Unknown tool")

// maxItemContent is the number of characters of item content shown by get_board_items.
const maxItemContent = 50

// BoardAPI is the set of board operations the engine needs.
// *miro.Client satisfies it.
type BoardAPI interface {
	CreateBoard(ctx context.Context, name, description string) (*miro.Board, error)
	ListBoards(ctx context.Context) ([]miro.Board, error)
	CreateStickyNote(ctx context.Context, boardID string, note miro.StickyNote) (*miro.Item, error)
	CreateFrame(ctx context.Context, boardID string, frame miro.Frame) (*miro.Item, error)
	CreateText(ctx context.Context, boardID string, text miro.Text) (*miro.Item, error)
	GetBoardItems(ctx context.Context, boardID string) ([]miro.Item, error)
}

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the payload returned for a successful tools/call.
type CallResult struct {
	Content []Content `json:"content"`
}

func textResult(text string) *CallResult {
	return &CallResult{Content: []Content{{Type: "text", Text: text}}}
}

type handler func(ctx context.Context, args map[string]any) (string, error)

// Config holds configuration for the engine.
type Config struct {
	Registry *Registry
	API      BoardAPI
	Metrics  metrics.Recorder
	Logger   *slog.Logger
}

// Engine executes tool calls.
type Engine struct {
	registry *Registry
	api      BoardAPI
	handlers map[Name]handler
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewEngine creates an engine. It fails if the handler set and the registry
// disagree on which tools exist.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.API == nil {
		return nil, errors.New("board API is required")
	}

	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		registry: cfg.Registry,
		api:      cfg.API,
		metrics:  recorder,
		logger:   logger,
	}
	e.handlers = map[Name]handler{
		CreateBoard:       e.createBoard,
		CreateStickyNote:  e.createStickyNote,
		CreateFrame:       e.createFrame,
		CreateText:        e.createText,
		ListBoards:        e.listBoards,
		GetBoardItems:     e.getBoardItems,
		SetupMeetingBoard: e.setupMeetingBoard,
	}

	for _, name := range cfg.Registry.Names() {
		if _, ok := e.handlers[name]; !ok {
			return nil, fmt.Errorf("tool %s has no handler", name)
		}
	}
	for name := range e.handlers {
		if !cfg.Registry.Has(name) {
			return nil, fmt.Errorf("handler %s is not registered", name)
		}
	}
	return e, nil
}

// Definitions returns the registry contents in declaration order.
func (e *Engine) Definitions() []Definition {
	return e.registry.Definitions()
}

// Dispatchable returns the names the engine can execute, sorted.
func (e *Engine) Dispatchable() []Name {
	names := make([]Name, 0, len(e.handlers))
	for name := range e.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Invoke runs the named tool with args. Any failure is returned as an error;
// partial work done by multi-step tools is not undone.
func (e *Engine) Invoke(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	start := time.Now()
	toolName := Name(name)

	h, ok := e.handlers[toolName]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTool, name)
		e.metrics.ObserveToolCall("unknown", time.Since(start), err)
		return nil, err
	}

	merged, err := e.registry.ApplyDefaults(toolName, args)
	if err != nil {
		e.metrics.ObserveToolCall(name, time.Since(start), err)
		return nil, err
	}

	text, err := h(ctx, merged)
	e.metrics.ObserveToolCall(name, time.Since(start), err)
	if err != nil {
		e.logger.Debug("tool failed", "tool", name, "error", err)
		return nil, err
	}
	return textResult(text), nil
}

func (e *Engine) createBoard(ctx context.Context, args map[string]any) (string, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return "", err
	}
	description, err := stringArg(args, "description")
	if err != nil {
		return "", err
	}

	board, err := e.api.CreateBoard(ctx, name, description)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Created board: %s\nBoard ID: %s\nURL: %s", quote(board.Name), board.ID, board.ViewLink), nil
}

func (e *Engine) createStickyNote(ctx context.Context, args map[string]any) (string, error) {
	boardID, content, err := boardAndString(args, "content")
	if err != nil {
		return "", err
	}
	x, y, err := position(args)
	if err != nil {
		return "", err
	}
	color, err := stringArg(args, "color")
	if err != nil {
		return "", err
	}

	item, err := e.api.CreateStickyNote(ctx, boardID, miro.StickyNote{Content: content, X: x, Y: y, Color: color})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Created sticky note: %s\nNote ID: %s", quote(content), item.ID), nil
}

func (e *Engine) createFrame(ctx context.Context, args map[string]any) (string, error) {
	boardID, title, err := boardAndString(args, "title")
	if err != nil {
		return "", err
	}
	x, y, err := position(args)
	if err != nil {
		return "", err
	}
	width, err := numberArg(args, "width")
	if err != nil {
		return "", err
	}
	height, err := numberArg(args, "height")
	if err != nil {
		return "", err
	}

	item, err := e.api.CreateFrame(ctx, boardID, miro.Frame{Title: title, X: x, Y: y, Width: width, Height: height})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Created frame: %s\nFrame ID: %s", quote(title), item.ID), nil
}

func (e *Engine) createText(ctx context.Context, args map[string]any) (string, error) {
	boardID, content, err := boardAndString(args, "content")
	if err != nil {
		return "", err
	}
	x, y, err := position(args)
	if err != nil {
		return "", err
	}

	item, err := e.api.CreateText(ctx, boardID, miro.Text{Content: content, X: x, Y: y})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Created text: %s\nText ID: %s", quote(content), item.ID), nil
}

func (e *Engine) listBoards(ctx context.Context, _ map[string]any) (string, error) {
	boards, err := e.api.ListBoards(ctx)
	if err != nil {
		return "", err
	}
	return formatBoards(boards), nil
}

func (e *Engine) getBoardItems(ctx context.Context, args map[string]any) (string, error) {
	boardID, err := stringArg(args, "board_id")
	if err != nil {
		return "", err
	}

	items, err := e.api.GetBoardItems(ctx, boardID)
	if err != nil {
		return "", err
	}
	return formatItems(items), nil
}

func boardAndString(args map[string]any, key string) (string, string, error) {
	boardID, err := stringArg(args, "board_id")
	if err != nil {
		return "", "", err
	}
	value, err := stringArg(args, key)
	if err != nil {
		return "", "", err
	}
	return boardID, value, nil
}

func position(args map[string]any) (float64, float64, error) {
	x, err := numberArg(args, "x")
	if err != nil {
		return 0, 0, err
	}
	y, err := numberArg(args, "y")
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// quote wraps s in double quotes without escaping, so emoji and newlines
// supplied by the caller are echoed as written.
func quote(s string) string {
	return `"` + s + `"`
}

func formatBoards(boards []miro.Board) string {
	if len(boards) == 0 {
		return "📋 Your Miro boards:\nNo boards found"
	}
	lines := make([]string, len(boards))
	for i, b := range boards {
		lines[i] = fmt.Sprintf("• %s (%s)", b.Name, b.ID)
	}
	return "📋 Your Miro boards:\n" + strings.Join(lines, "\n")
}

func formatItems(items []miro.Item) string {
	if len(items) == 0 {
		return "📊 Board items:\nNo items found"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("• %s: %s", item.Type, truncate(itemContent(item), maxItemContent))
	}
	return "📊 Board items:\n" + strings.Join(lines, "\n")
}

func itemContent(item miro.Item) string {
	switch {
	case item.Data.Content != "":
		return item.Data.Content
	case item.Data.Title != "":
		return item.Data.Title
	default:
		return "No content"
	}
}

// truncate shortens s to limit characters and marks the cut with "...".
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
