package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/vista"
	"github.com/aretw0/vista/internal/cli"
	"github.com/aretw0/vista/internal/presentation/tui"
	httpadapter "github.com/aretw0/vista/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP session server",
	Long: `Starts vista in server mode: each session owns a document and a
transitioner, driven through a JSON API with completion events over SSE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		stack, err := cli.NewStack(sigCtx, cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		srv := &http.Server{
			Addr: cfg.Addr,
			Handler: httpadapter.NewHandler(stack.Sessions,
				httpadapter.WithLogger(logger),
				httpadapter.WithGatherer(stack.Registry),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			tui.PrintBanner(os.Stderr, vista.Version)
		}

		g, ctx := errgroup.WithContext(sigCtx)
		g.Go(func() error {
			logger.Info("Starting vista server", "addr", srv.Addr, "platform", cfg.Platform)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			logger.Info("Start shutdown", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("Vista server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for distributed locks and completion events")
	serveCmd.Flags().String("sqlite", "", "SQLite file for the transition journal")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
