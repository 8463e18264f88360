package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openjab/jab-cli/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing jab-cli tools",
	Long: `Start a Model Context Protocol (MCP) server that exposes jab-cli
operations as tools, so agents can drive Java applications without shell
overhead. The bridge session stays warm between calls, which makes repeated
reads much faster than one-shot CLI invocations.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  jab-cli serve
  jab-cli serve --transport streamable-http --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
	serveCmd.Flags().Int("cache-ttl", 500, "Snapshot cache TTL in milliseconds (0 to disable)")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	cacheTTLMs, _ := cmd.Flags().GetInt("cache-ttl")
	dllFlag, _ := rootCmd.PersistentFlags().GetString("dll")

	srv, err := server.New(server.Config{
		Transport: transport,
		Port:      port,
		DLLPath:   dllFlag,
		CacheTTL:  time.Duration(cacheTTLMs) * time.Millisecond,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return srv.Serve()
}
