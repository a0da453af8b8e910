// Package cmd wires the CLI: the root command runs the MCP server, with
// doctor and version alongside.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lhzou/blpapi-mcp/internal/blp"
	"github.com/lhzou/blpapi-mcp/internal/config"
	"github.com/lhzou/blpapi-mcp/internal/mcp"
	"github.com/lhzou/blpapi-mcp/internal/ratelimit"
)

var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "blpapi-mcp",
	Short: "MCP server for Bloomberg Terminal market data",
	Long: `blpapi-mcp exposes the local Bloomberg Terminal as MCP tools.

By default the server speaks MCP over stdio, which is what local agent
integrations (Claude, Cursor) expect:

{
  "mcpServers": {
    "bloomberg": {
      "command": "blpapi-mcp"
    }
  }
}

With --sse (or an explicit --host/--port) it serves HTTP instead, with the
Streamable HTTP transport on /mcp and the legacy SSE transport on /sse.

Queries require a running Bloomberg Terminal on this machine. Usage counts
against a daily data-hit budget persisted across restarts.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

var (
	flagSSE     bool
	flagHost    string
	flagPort    int
	flagConfig  string
	versionJSON bool
)

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
	rootCmd.SetVersionTemplate("blpapi-mcp {{.Version}}\n")

	rootCmd.Flags().BoolVar(&flagSSE, "sse", false, "Serve MCP over HTTP instead of stdio")
	rootCmd.Flags().StringVar(&flagHost, "host", "", "HTTP listen host (implies HTTP mode)")
	rootCmd.Flags().IntVar(&flagPort, "port", 0, "HTTP listen port (implies HTTP mode)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file")

	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output version information as JSON")
	rootCmd.AddCommand(doctorCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if versionJSON {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{
				"version": version,
				"commit":  commit,
				"server":  config.ServerVersion,
			})
			return
		}
		fmt.Printf("blpapi-mcp %s (%s)\n", version, commit)
	},
}

// httpMode decides the transport: --sse asks for HTTP explicitly, and giving
// either listen flag implies it.
func httpMode(sse, hostSet, portSet bool) bool {
	return sse || hostSet || portSet
}

func runServer(cmd *cobra.Command) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = flagHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flagPort
	}

	// stdout carries the protocol in stdio mode, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	limiter, err := ratelimit.New(ratelimit.Options{
		StatePath:     cfg.RateLimit.StatePath,
		DailyLimit:    cfg.RateLimit.DailyLimit,
		Timezone:      cfg.RateLimit.Timezone,
		RetentionDays: cfg.RateLimit.RetentionDays,
	})
	if err != nil {
		return fmt.Errorf("rate limit state: %w", err)
	}
	defer func() {
		if err := limiter.ForceSave(); err != nil {
			logger.Error("saving rate limit state", "error", err)
		}
	}()

	client := dialTerminal(cfg, logger)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcp.New(client, limiter, logger)
	if httpMode(flagSSE, cmd.Flags().Changed("host"), cmd.Flags().Changed("port")) {
		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
		return srv.ServeHTTP(ctx, addr)
	}
	return srv.ServeStdio(ctx)
}

// dialTerminal opens the Bloomberg session. A failure does not abort
// startup: the server comes up anyway and tool calls report the problem,
// which beats a client that cannot connect at all.
func dialTerminal(cfg *config.Config, logger *slog.Logger) blp.Client {
	client, err := blp.Dial(blp.Options{
		Host:    cfg.Terminal.Host,
		Port:    cfg.Terminal.Port,
		Timeout: time.Duration(cfg.Terminal.Timeout) * time.Second,
	})
	if err != nil {
		if errors.Is(err, blp.ErrSDKUnavailable) {
			logger.Warn("bloomberg SDK not compiled in; tool calls will fail", "error", err)
		} else {
			logger.Warn("bloomberg terminal not reachable; tool calls will fail",
				"host", cfg.Terminal.Host, "port", cfg.Terminal.Port, "error", err)
		}
		return blp.Unavailable(err)
	}
	return client
}
