package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"arxivmcp/internal/mcp"

	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		transport string
		listen    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server.

With the default stdio transport the server reads JSON-RPC requests from stdin
and writes responses to stdout; it should be launched by an MCP client. With the
http transport it listens on --listen and serves the Streamable HTTP endpoint at
` + mcp.EndpointPath + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, mcp.Transport(transport), listen)
		},
	}
	cmd.Flags().StringVarP(&transport, "transport", "t", string(mcp.TransportStdio), "transport: stdio or http")
	cmd.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:8765", "listen `address` for the http transport")
	return cmd
}

func (a *app) serve(ctx context.Context, transport mcp.Transport, listen string) error {
	srv := mcp.New(
		mcp.WithDownloader(a.downloader),
		mcp.WithStore(a.store),
		mcp.WithSearcher(a.client, a.cfg.MaxResults),
		mcp.WithLogger(a.logger),
	)

	a.logger.Info("Starting MCP server", "transport", transport, "storage", a.resolver.Root())
	var err error
	switch transport {
	case mcp.TransportStdio:
		err = srv.ServeStdio(ctx)
	case mcp.TransportHTTP:
		err = srv.ServeHTTP(ctx, listen)
	default:
		return fmt.Errorf("unknown transport %q, expected %q or %q", transport, mcp.TransportStdio, mcp.TransportHTTP)
	}

	a.logger.Info("Waiting for conversions to finish")
	a.downloader.Wait()
	return err
}
