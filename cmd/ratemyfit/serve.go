package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hurttlocker/ratemyfit/internal/api"
	mcpserver "github.com/hurttlocker/ratemyfit/internal/mcp"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			apiOpts := []api.Option{
				api.WithLogger(a.logger),
				api.WithHealthCheck(func(ctx context.Context) error {
					return a.store.GetDB().PingContext(ctx)
				}),
			}
			if len(origins) > 0 {
				apiOpts = append(apiOpts, api.WithAllowedOrigins(origins...))
			}

			srv := &http.Server{
				Addr:              a.cfg.ListenAddr.Value,
				Handler:           api.NewServer(a.service, a.pipeline, apiOpts...),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      90 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.Info("server started", "addr", srv.Addr, "strategy", string(a.pipeline.Strategy()))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "listen address (default :8080)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allowed CORS origins (default: any)")
	return cmd
}

func mcpCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve RateMyFit tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcpserver.NewServer(mcpserver.ServerConfig{
				Service:  a.service,
				Pipeline: a.pipeline,
				Store:    a.store,
				Version:  version,
			})
			return server.ServeStdio(srv)
		},
	}
}
