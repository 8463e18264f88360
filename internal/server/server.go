// Package server exposes the driver's operations over the Model Context
// Protocol. Unlike one-shot CLI invocations, the server keeps the bridge
// session and window binding warm between tool calls.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openjab/jab-cli/internal/bridge"
	"github.com/openjab/jab-cli/internal/config"
	"github.com/openjab/jab-cli/internal/driver"
	"github.com/openjab/jab-cli/internal/input"

	"github.com/mark3labs/mcp-go/mcp"
)

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
	DLLPath   string
	CacheTTL  time.Duration
	Logger    *zap.Logger
}

// Server wraps the MCP server around one long-lived driver session.
type Server struct {
	cfg   Config
	log   *zap.Logger
	cache *snapshotCache
	mcp   *mcpserver.MCPServer

	// driverMu serializes bridge access: tools run one at a time.
	driverMu   sync.Mutex
	driver     *driver.Driver
	boundTitle string
	root       *driver.Element
}

// New starts the bridge and builds the MCP server with all tools registered.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	dllPath, err := config.ResolveBridgeDLL(cfg.DLLPath)
	if err != nil {
		return nil, err
	}
	api, err := bridge.NewAPI(dllPath)
	if err != nil {
		return nil, err
	}
	d := driver.New(api,
		driver.WithLogger(cfg.Logger),
		driver.WithInput(input.New()))
	if err := d.Start(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		log:    cfg.Logger,
		cache:  newSnapshotCache(cfg.CacheTTL),
		driver: d,
	}
	s.mcp = mcpserver.NewMCPServer("jab-cli", "1.0.0")
	s.registerTools()
	return s, nil
}

// Serve blocks running the configured transport until the client disconnects
// or the process receives an interrupt.
func (s *Server) Serve() error {
	defer s.driver.Close()
	switch s.cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := httpServer.Start(fmt.Sprintf(":%d", s.cfg.Port)); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
		return g.Wait()
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", s.cfg.Transport)
	}
}

// bind attaches the driver to the requested window, reusing the current
// binding when the title matches. The caller must hold driverMu.
func (s *Server) bind(title string) (*driver.Element, error) {
	if title == "" {
		return nil, fmt.Errorf("window parameter is required")
	}
	if s.root != nil && s.boundTitle == title {
		return s.root, nil
	}
	if s.root != nil {
		s.root.Release()
		s.root = nil
		s.cache.InvalidateAll()
	}
	root, err := s.driver.Bind(context.Background(), title)
	if err != nil {
		return nil, err
	}
	s.boundTitle = title
	s.root = root
	return root, nil
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("windows",
			mcp.WithDescription("List top-level Java windows on the desktop, with title, PID, and process name"),
		),
		s.handleWindows,
	)

	s.mcp.AddTool(
		mcp.NewTool("read",
			mcp.WithDescription("Read a Java window's accessible element tree. Returns elements with ids, roles, names, bounds, and states."),
			mcp.WithString("window", mcp.Description("Window title substring"), mcp.Required()),
			mcp.WithNumber("depth", mcp.Description("Max depth to traverse (0 = unlimited)")),
			mcp.WithBoolean("flat", mcp.Description("Flatten the tree into a list with role paths")),
			mcp.WithBoolean("prune", mcp.Description("Collapse anonymous single-child containers")),
			mcp.WithString("text", mcp.Description("Only elements whose name or description contains this text")),
			mcp.WithBoolean("dialog", mcp.Description("Read only the active modal dialog")),
		),
		s.handleRead,
	)

	s.mcp.AddTool(
		mcp.NewTool("find",
			mcp.WithDescription("Find elements matching a locator. Use 'name', 'role', or an 'xpath' path like \"dialog/push button[@name='OK']\""),
			mcp.WithString("window", mcp.Description("Window title substring"), mcp.Required()),
			mcp.WithString("by", mcp.Description("Strategy: name, description, role, states, objectdepth, childrencount, indexinparent, xpath")),
			mcp.WithString("value", mcp.Description("Locator value")),
			mcp.WithBoolean("all", mcp.Description("Return every match instead of the first")),
			mcp.WithBoolean("visible_only", mcp.Description("Search only visible children")),
		),
		s.handleFind,
	)

	s.mcp.AddTool(
		mcp.NewTool("wait",
			mcp.WithDescription("Wait until an element matching the locator exists"),
			mcp.WithString("window", mcp.Description("Window title substring"), mcp.Required()),
			mcp.WithString("by", mcp.Description("Locator strategy")),
			mcp.WithString("value", mcp.Description("Locator value")),
			mcp.WithNumber("timeout", mcp.Description("Max seconds to wait (default: 5)")),
		),
		s.handleWait,
	)

	s.mcp.AddTool(
		mcp.NewTool("click",
			mcp.WithDescription("Click an element via its accessible action, or with the real pointer"),
			mcp.WithString("window", mcp.Description("Window title substring"), mcp.Required()),
			mcp.WithString("by", mcp.Description("Locator strategy")),
			mcp.WithString("value", mcp.Description("Locator value")),
			mcp.WithBoolean("pointer", mcp.Description("Use the real mouse pointer")),
		),
		s.handleClick,
	)

	s.mcp.AddTool(
		mcp.NewTool("action",
			mcp.WithDescription("Invoke a named accessible action on an element"),
			mcp.WithString("window", mcp.Description("Window title substring"), mcp.Required()),
			mcp.WithString("by", mcp.Description("Locator strategy")),
			mcp.WithString("value", mcp.Description("Locator value")),
			mcp.WithString("action", mcp.Description("Action name"), mcp.Required()),
		),
		s.handleAction,
	)

	s.mcp.AddTool(
		mcp.NewTool("get_text",
			mcp.WithDescription("Read an element's text content"),
			mcp.WithString("window", mcp.Description("Window title substring"), mcp.Required()),
			mcp.WithString("by", mcp.Description("Locator strategy")),
			mcp.WithString("value", mcp.Description("Locator value")),
		),
		s.handleGetText,
	)

	s.mcp.AddTool(
		mcp.NewTool("set_text",
			mcp.WithDescription("Replace a text component's contents via the accessibility API"),
			mcp.WithString("window", mcp.Description("Window title substring"), mcp.Required()),
			mcp.WithString("by", mcp.Description("Locator strategy")),
			mcp.WithString("value", mcp.Description("Locator value")),
			mcp.WithString("text", mcp.Description("Text to set"), mcp.Required()),
		),
		s.handleSetText,
	)

	s.mcp.AddTool(
		mcp.NewTool("focus",
			mcp.WithDescription("Request keyboard focus for an element"),
			mcp.WithString("window", mcp.Description("Window title substring"), mcp.Required()),
			mcp.WithString("by", mcp.Description("Locator strategy")),
			mcp.WithString("value", mcp.Description("Locator value")),
		),
		s.handleFocus,
	)

	s.mcp.AddTool(
		mcp.NewTool("screenshot",
			mcp.WithDescription("Capture the window as a base64 PNG, optionally annotated with element ids"),
			mcp.WithString("window", mcp.Description("Window title substring"), mcp.Required()),
			mcp.WithBoolean("annotate", mcp.Description("Draw element bounding boxes and ids")),
			mcp.WithNumber("scale", mcp.Description("Scale factor 0.1-1.0 (default: 0.5)")),
		),
		s.handleScreenshot,
	)
}
