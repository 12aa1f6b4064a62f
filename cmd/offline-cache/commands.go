package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// opts holds the file locations given on the command line
var opts Options

// rootCmd is the base command of the offline cache.
var rootCmd = &cobra.Command{
	Use:   "offline-cache",
	Short: "Cache-first offline proxy for a static site",
	Long: `offline-cache sits in front of a static site and answers every page request
from the active cache generation first. Generations are pre-populated from a
precache manifest; activating a generation deletes every older one. Navigations
that fail while the site is unreachable receive the pre-cached offline document.`,
	SilenceUsage: true,
}

// serveCmd runs the proxy.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the offline cache proxy",
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := NewCompositionRoot(opts)
		if err != nil {
			return err
		}
		defer func() {
			if err := root.Cleanup(); err != nil {
				root.Logger.Error("Failed to cleanup resources", zap.Error(err))
			}
		}()

		return serve(root)
	},
}

// generationsCmd lists the stored cache generations.
var generationsCmd = &cobra.Command{
	Use:   "generations",
	Short: "List stored cache generations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := NewCompositionRoot(opts)
		if err != nil {
			return err
		}
		defer func() { _ = root.Cleanup() }()

		names, err := root.Storage.Names()
		if err != nil {
			return fmt.Errorf("failed to list generations: %w", err)
		}
		for _, name := range names {
			marker := " "
			if name == root.Manifest.Generation {
				marker = "*"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
		}
		return nil
	},
}

// purgeCmd deletes every stored generation except one.
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every stored generation except the kept one",
	RunE: func(cmd *cobra.Command, _ []string) error {
		keep, _ := cmd.Flags().GetString("keep")

		root, err := NewCompositionRoot(opts)
		if err != nil {
			return err
		}
		defer func() { _ = root.Cleanup() }()

		if keep == "" {
			keep = root.Manifest.Generation
		}

		purged, err := root.Registry.Purge(keep)
		if err != nil {
			return err
		}
		for _, name := range purged {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "configuration file (default $CACHE_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&opts.ManifestFile, "manifest", "", "precache manifest file (default $CACHE_MANIFEST_FILE)")

	purgeCmd.Flags().String("keep", "", "generation to keep (default: the manifest generation)")

	rootCmd.AddCommand(serveCmd, generationsCmd, purgeCmd)
}

// serve runs the HTTP server until SIGINT or SIGTERM
func serve(root *CompositionRoot) error {
	addr := root.Config.Server.ListenAddr

	serverErr := make(chan error, 1)
	root.Logger.Info("Starting offline cache server", zap.String("address", addr))
	go func() {
		serverErr <- root.HTTPServer.Start(addr)
	}()

	bootstrapCtx, cancelBootstrap := context.WithCancel(context.Background())
	defer cancelBootstrap()
	go root.Bootstrap(bootstrapCtx)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	root.Logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), root.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := root.HTTPServer.Stop(ctx); err != nil {
		root.Logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	root.Logger.Info("Server exited")
	return nil
}
