package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/showdex/internal/config"
	"github.com/showdex/pkg/healthcheck"
)

var healthFlag bool

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "showdex",
		Short:         "Showdex suggests the next move of a Pokémon Showdown battle.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if healthFlag {
				return runHealthCheck(cmd.Context())
			}
			return runServe(cmd.Context())
		},
	}
	// Health check flag for Docker
	cmd.Flags().BoolVar(&healthFlag, "health", false, "probe the running service and exit")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newReplayCmd())
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runHealthCheck performs a quick health check against the local server.
func runHealthCheck(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	url, err := healthURL(cfg.Addr)
	if err != nil {
		return err
	}
	return healthcheck.Probe(ctx, url)
}

// healthURL builds the local /health URL for a listen address. Wildcard
// and empty hosts are probed on localhost.
func healthURL(addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid SHOWDEX_ADDR %q: %w", addr, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/health", nil
}
