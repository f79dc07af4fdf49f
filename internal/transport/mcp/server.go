// Package mcptransport exposes the capture service as an MCP tool over SSE.
package mcptransport

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	domainscreenshot "screamshot-server/internal/domain/screenshot"
	"screamshot-server/internal/platform/errors"
	"screamshot-server/internal/platform/logging"
)

// ToolName is the name clients call.
const ToolName = "take_screenshot"

var credentialKeys = []string{"username", "password", "token_in_header"}

// Options configures the MCP surface.
type Options struct {
	Name     string
	Version  string
	BasePath string
	Service  *domainscreenshot.Service
	Logger   *logging.Logger
}

// Server owns the MCP server and its SSE transport.
type Server struct {
	mcp      *server.MCPServer
	sse      *server.SSEServer
	service  *domainscreenshot.Service
	logger   *logging.Logger
	basePath string
}

// New builds the MCP server and registers the screenshot tool.
func New(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New(errors.KindConfig, "mcp.new", "screenshot service is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Name == "" {
		opts.Name = "screamshot"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	basePath := "/" + strings.Trim(opts.BasePath, "/")
	if basePath == "/" {
		basePath = "/mcp"
	}

	s := &Server{
		service:  opts.Service,
		logger:   opts.Logger,
		basePath: basePath,
	}
	s.mcp = server.NewMCPServer(opts.Name, opts.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.mcp.AddTool(screenshotTool(), s.handleTakeScreenshot)
	s.sse = server.NewSSEServer(s.mcp, server.WithBasePath(basePath))
	return s, nil
}

func screenshotTool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Render a web page in a headless browser and return a PNG screenshot."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Page to capture")),
		mcp.WithNumber("width", mcp.Description("Viewport width in pixels")),
		mcp.WithNumber("height", mcp.Description("Viewport height in pixels")),
		mcp.WithString("wait_until", mcp.Description("Comma separated: load, domcontentloaded, networkidle0, networkidle2")),
		mcp.WithString("selector", mcp.Description("CSS selector of the element to capture")),
		mcp.WithString("wait_for", mcp.Description("CSS selector to wait for before capturing")),
		mcp.WithString("username", mcp.Description("HTTP basic auth user")),
		mcp.WithString("password", mcp.Description("HTTP basic auth password")),
		mcp.WithString("token_in_header", mcp.Description("Authorization header value")),
	)
}

// BasePath is the prefix the SSE server advertises to clients.
func (s *Server) BasePath() string {
	return s.basePath
}

// Mount registers the SSE and message endpoints on routes, which must be
// rooted at BasePath.
func (s *Server) Mount(routes gin.IRoutes) {
	routes.GET("/sse", gin.WrapH(s.sse.SSEHandler()))
	routes.POST("/message", gin.WrapH(s.sse.MessageHandler()))
	s.logger.InfoTag(logging.TagMCP, "mcp endpoints mounted at %s/sse", s.basePath)
}

// Shutdown closes open SSE sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.sse.Shutdown(ctx)
}

// toolParameters maps tool arguments onto capture parameters. Credential
// fields are folded into a single credentials mapping.
func toolParameters(args map[string]any) domainscreenshot.RawParameters {
	raw := domainscreenshot.RawParameters{}
	for _, key := range []string{
		domainscreenshot.ParamURL,
		domainscreenshot.ParamWidth,
		domainscreenshot.ParamHeight,
		domainscreenshot.ParamWaitUntil,
		domainscreenshot.ParamSelector,
		domainscreenshot.ParamWaitFor,
	} {
		if v, ok := args[key]; ok && v != nil {
			raw.Set(key, v)
		}
	}

	creds := map[string]any{}
	for _, key := range credentialKeys {
		if v, ok := args[key]; ok && v != nil {
			creds[key] = v
		}
	}
	if len(creds) > 0 {
		raw.Set(domainscreenshot.ParamCredentials, creds)
	}
	return raw
}

func (s *Server) handleTakeScreenshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serializer := s.service.NewRequestSerializer(toolParameters(req.GetArguments()))
	resp, err := serializer.Serialize(ctx, nil)
	if err != nil {
		s.logger.ErrorTag(logging.TagMCP, "capture of %q failed: %v", serializer.URL(), err)
		return mcp.NewToolResultError("internal error"), nil
	}
	defer resp.Close()

	if resp.File == nil {
		return mcp.NewToolResultError(strings.Join(resp.Errors, "\n")), nil
	}

	data, err := os.ReadFile(resp.File.Path)
	if err != nil {
		s.logger.ErrorTag(logging.TagMCP, "read capture: %v", err)
		return mcp.NewToolResultError("internal error"), nil
	}
	return mcp.NewToolResultImage(
		fmt.Sprintf("Screenshot of %s (%d bytes)", serializer.URL(), len(data)),
		base64.StdEncoding.EncodeToString(data),
		"image/png",
	), nil
}
