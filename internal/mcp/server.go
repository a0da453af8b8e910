// Package mcp exposes Bloomberg Terminal queries as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/lhzou/blpapi-mcp/internal/blp"
	"github.com/lhzou/blpapi-mcp/internal/config"
	"github.com/lhzou/blpapi-mcp/internal/ratelimit"
)

// Server wraps an MCP server and the Bloomberg bridge behind it.
type Server struct {
	mcp     *mcpsrv.MCPServer
	client  blp.Client
	limiter *ratelimit.Counter
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an MCP server backed by the given Bloomberg client. The server
// is populated with all tools but does not start listening until one of the
// Serve* methods is called. limiter may be nil to disable the daily cap.
func New(client blp.Client, limiter *ratelimit.Counter, lg *slog.Logger) *Server {
	if lg == nil {
		lg = slog.Default()
	}
	s := &Server{
		client:  client,
		limiter: limiter,
		logger:  lg,
		now:     func() time.Time { return time.Now().UTC() },
	}

	mcpServer := mcpsrv.NewMCPServer(
		config.ServerName,
		config.ServerVersion,
		mcpsrv.WithToolCapabilities(true),
		mcpsrv.WithInstructions(instructions),
		mcpsrv.WithToolHandlerMiddleware(s.logCalls),
	)

	for _, t := range s.tools() {
		mcpServer.AddTool(t.Tool, t.Handler)
	}

	s.mcp = mcpServer
	return s
}

const instructions = `You are connected to a Bloomberg Terminal via blpapi-mcp.

Available tools query live and historical market data:
- bdp: reference (point-in-time) field values per security
- bds: bulk/block field data (e.g. dividend history rows, index members)
- bdh: historical end-of-day field values over a date range
- bdib: intraday bars for one security and day
- bdtick: intraday tick events for one security and day
- earning: earnings exposure by geography or product segment
- dividend: dividend and split history
- beqs: results of a saved equity screen (EQS)
- turnover: currency-adjusted traded turnover series

Securities use Bloomberg identifiers (e.g. "AAPL US Equity", "USDJPY Curncy").
Fields use Bloomberg mnemonics (e.g. PX_LAST, SECURITY_NAME). Dates are
YYYY-MM-DD or "today". Usage counts against a daily request budget; batch
related securities and fields into single calls where possible.`

// ServeStdio runs the MCP server over stdin/stdout until ctx is cancelled.
// This is the transport used by local agent integrations (Claude, Cursor).
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := mcpsrv.NewStdioServer(s.mcp)
	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	if err := srv.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

// ServeHTTP runs the MCP server on addr until ctx is cancelled, serving both
// HTTP transports on one listener: /sse (legacy SSE, with its /message
// endpoint) and /mcp (Streamable HTTP; GET opens an SSE stream, POST carries
// JSON-RPC). /mcp runs stateless with JSON responses so a plain POST works
// without a session handshake.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := &http.Server{Addr: addr, Handler: s.Handler()}

	s.logger.InfoContext(ctx, "mcp server listening on http", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("mcp http server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "mcp server shutting down")
		if err := httpSrv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("mcp http server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Handler returns the HTTP handler serving both transports; split out so
// tests can drive it without a listener.
func (s *Server) Handler() http.Handler {
	sse := mcpsrv.NewSSEServer(s.mcp)
	stream := mcpsrv.NewStreamableHTTPServer(s.mcp,
		mcpsrv.WithEndpointPath("/mcp"),
		mcpsrv.WithStateLess(true),
	)

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	mux.Handle("/mcp", stream)
	return mux
}

// logCalls is the tool middleware logging every call with its outcome.
func (s *Server) logCalls(next mcpsrv.ToolHandlerFunc) mcpsrv.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		start := time.Now()
		res, err := next(ctx, req)

		attrs := []any{
			"tool", req.Params.Name,
			"duration", time.Since(start).Round(time.Millisecond).String(),
		}
		switch {
		case err != nil:
			s.logger.ErrorContext(ctx, "tool call failed", append(attrs, "error", err)...)
		case res != nil && res.IsError:
			s.logger.WarnContext(ctx, "tool call returned error result", attrs...)
		default:
			s.logger.InfoContext(ctx, "tool call completed", attrs...)
		}
		return res, err
	}
}

// consume charges n hits against the daily budget, returning a user-facing
// error when the budget is exhausted.
func (s *Server) consume(n int) error {
	if s.limiter == nil {
		return nil
	}
	if n < 1 {
		n = 1
	}
	ok, count, err := s.limiter.TryConsume(n)
	if err != nil {
		return fmt.Errorf("rate limit accounting failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("daily bloomberg request limit reached (%d of %d hits used); try again tomorrow",
			count, s.limiter.Limit())
	}
	return nil
}

// resultErr wraps an error in a CallToolResult with IsError set. Tool
// failures are results, not protocol errors, so the agent can see them.
func resultErr(err error) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(err.Error())},
		IsError: true,
	}
}

// resultJSON serialises v into a CallToolResult.
func resultJSON(v any) (*mcplib.CallToolResult, error) {
	return mcplib.NewToolResultJSON(v)
}
