package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shirou/gopsutil/v4/process"
	"gopkg.in/yaml.v3"

	"github.com/openjab/jab-cli/internal/driver"
	"github.com/openjab/jab-cli/internal/locator"
	"github.com/openjab/jab-cli/internal/model"
	"github.com/openjab/jab-cli/internal/screenshot"
	"github.com/openjab/jab-cli/internal/tree"
)

// Typed accessors for tool parameters. MCP numbers arrive as float64.

func stringParam(params map[string]interface{}, key, fallback string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return fallback
}

func intParam(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

func floatParam(params map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := params[key].(float64); ok {
		return v
	}
	return fallback
}

func boolParam(params map[string]interface{}, key string, fallback bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return fallback
}

func yamlResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// paramLocator builds a locator from the by/value parameters.
func paramLocator(params map[string]interface{}) (locator.Locator, error) {
	loc := locator.Locator{
		By:          locator.Strategy(stringParam(params, "by", string(locator.ByName))),
		Value:       stringParam(params, "value", ""),
		VisibleOnly: boolParam(params, "visible_only", false),
	}
	return loc, locator.Validate(loc)
}

// elementDoc is the per-element document returned by find and wait.
type elementDoc struct {
	ID          uint64 `yaml:"id"`
	Role        string `yaml:"role"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Bounds      [4]int `yaml:"bounds"`
	States      string `yaml:"states,omitempty"`
}

func describe(e *driver.Element) (elementDoc, error) {
	n, err := e.Node()
	if err != nil {
		return elementDoc{}, err
	}
	return elementDoc{
		ID:          uint64(e.ID()),
		Role:        n.Role,
		Name:        n.Name,
		Description: n.Description,
		Bounds:      [4]int{n.Bounds.X, n.Bounds.Y, n.Bounds.Width, n.Bounds.Height},
		States:      n.States.String(),
	}, nil
}

func (s *Server) handleWindows(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.driverMu.Lock()
	defer s.driverMu.Unlock()

	wins, err := s.driver.Windows()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]model.Window, 0, len(wins))
	for _, w := range wins {
		win := model.Window{Title: w.Title, PID: w.PID, HWND: uint64(w.HWND)}
		if proc, err := process.NewProcess(w.PID); err == nil {
			if name, err := proc.Name(); err == nil {
				win.Process = name
			}
		}
		out = append(out, win)
	}
	return yamlResult(out)
}

// snapshot reads the window's tree, serving from cache when fresh. The
// caller must hold driverMu.
func (s *Server) snapshot(window string, depth int) (model.Element, error) {
	key := cacheKey{Window: window, Depth: depth}
	if el, ok := s.cache.Get(key); ok {
		return el, nil
	}
	root, err := s.bind(window)
	if err != nil {
		return model.Element{}, err
	}
	el, err := s.driver.Snapshot(root, tree.SnapshotOptions{MaxDepth: depth})
	if err != nil {
		return model.Element{}, err
	}
	s.cache.Put(key, el)
	return el, nil
}

func (s *Server) handleRead(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	window := stringParam(params, "window", "")
	depth := intParam(params, "depth", 0)

	s.driverMu.Lock()
	defer s.driverMu.Unlock()

	el, err := s.snapshot(window, depth)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	elements := []model.Element{el}
	if boolParam(params, "dialog", false) {
		modal := model.DetectModalDialog(&el)
		if modal == nil {
			return mcp.NewToolResultError(fmt.Sprintf("no modal dialog is showing in window %q", window)), nil
		}
		elements = []model.Element{*modal}
	}
	if text := stringParam(params, "text", ""); text != "" {
		elements = model.FilterByText(elements, text)
	}
	if boolParam(params, "prune", false) {
		elements = model.PruneAnonymousContainers(elements)
	}
	if boolParam(params, "flat", false) {
		return yamlResult(model.Flatten(elements))
	}
	return yamlResult(elements)
}

func (s *Server) handleFind(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	loc, err := paramLocator(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.driverMu.Lock()
	defer s.driverMu.Unlock()

	if _, err := s.bind(stringParam(params, "window", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var matches []*driver.Element
	if boolParam(params, "all", false) {
		matches, err = s.driver.FindAll(loc)
	} else {
		var el *driver.Element
		el, err = s.driver.Find(loc)
		if el != nil {
			matches = []*driver.Element{el}
		}
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	docs := make([]elementDoc, 0, len(matches))
	for _, m := range matches {
		doc, err := describe(m)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		docs = append(docs, doc)
	}
	return yamlResult(docs)
}

func (s *Server) handleWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	loc, err := paramLocator(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeout := time.Duration(intParam(params, "timeout", 0)) * time.Second

	s.driverMu.Lock()
	defer s.driverMu.Unlock()

	root, err := s.bind(stringParam(params, "window", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	el, err := s.driver.WaitUntilElementExists(ctx, root, loc, timeout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := describe(el)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return yamlResult(doc)
}

// withElement locates the target element and runs fn on it, invalidating the
// window's cached snapshots afterwards.
func (s *Server) withElement(params map[string]interface{}, fn func(*driver.Element) error) (*mcp.CallToolResult, error) {
	loc, err := paramLocator(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	window := stringParam(params, "window", "")

	s.driverMu.Lock()
	defer s.driverMu.Unlock()

	if _, err := s.bind(window); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	el, err := s.driver.Find(loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := fn(el); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.cache.InvalidateWindow(window)
	return mcp.NewToolResultText(fmt.Sprintf("ok: %s", loc)), nil
}

func (s *Server) handleClick(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	pointer := boolParam(params, "pointer", false)
	return s.withElement(params, func(el *driver.Element) error {
		if pointer {
			return el.ClickPointer()
		}
		return el.Click()
	})
}

func (s *Server) handleAction(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	action := stringParam(params, "action", "")
	return s.withElement(params, func(el *driver.Element) error {
		return el.InvokeAction(action)
	})
}

func (s *Server) handleGetText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	loc, err := paramLocator(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.driverMu.Lock()
	defer s.driverMu.Unlock()

	if _, err := s.bind(stringParam(params, "window", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	el, err := s.driver.Find(loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := el.Text()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSetText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	text := stringParam(params, "text", "")
	return s.withElement(params, func(el *driver.Element) error {
		return el.SetText(text)
	})
}

func (s *Server) handleFocus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	return s.withElement(params, func(el *driver.Element) error {
		return el.RequestFocus()
	})
}

func (s *Server) handleScreenshot(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	window := stringParam(params, "window", "")
	annotate := boolParam(params, "annotate", false)
	scale := floatParam(params, "scale", 0.5)

	s.driverMu.Lock()
	defer s.driverMu.Unlock()

	root, err := s.bind(window)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bounds, err := root.Bounds()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if bounds.Empty() {
		return mcp.NewToolResultError(fmt.Sprintf("window %q has no visible area", window)), nil
	}
	img, err := screenshot.CaptureRect(bounds.X, bounds.Y, bounds.Width, bounds.Height)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if annotate {
		el, err := s.driver.Snapshot(root, tree.SnapshotOptions{VisibleOnly: true})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		flat := model.Flatten([]model.Element{el})
		img = screenshot.Annotate(img, flat, image.Pt(bounds.X, bounds.Y))
		scale = 1.0
	}
	data, err := screenshot.Encode(img, screenshot.Options{Format: "png", Scale: scale})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(data)), nil
}
