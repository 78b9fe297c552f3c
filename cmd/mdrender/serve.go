package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ay/mdrender/internal/server"
	"github.com/ay/mdrender/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var (
		contentDir string
		sitePath   string
		port       int
		noWatch    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a directory of Markdown pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mod, site, err := activate(sitePath)
			if err != nil {
				return err
			}
			defer func() { _ = mod.Deactivate() }()

			srv, err := server.New(mod, contentDir, sitePath, site)
			if err != nil {
				return err
			}
			defer func() { _ = srv.Close() }()

			addr := fmt.Sprintf("127.0.0.1:%d", port)
			return serve(ctx, srv, addr, contentDir, sitePath, !noWatch)
		},
	}

	cmd.Flags().StringVarP(&contentDir, "content", "c", ".", "Directory of Markdown pages")
	cmd.Flags().StringVarP(&sitePath, "site", "s", "", "Site config file (YAML or TOML)")
	cmd.Flags().IntVarP(&port, "port", "p", 6333, "Port to run the server on")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable live reload")
	return cmd
}

// serve runs the HTTP server and, if enabled, the content watcher until
// ctx is cancelled or either fails.
func serve(ctx context.Context, srv *server.Server, addr, contentDir, sitePath string, watch bool) error {
	var w *watcher.Watcher
	if watch {
		var err error
		w, err = watcher.New(contentDir, sitePath, watcher.Handlers{
			OnContent: srv.NotifyPage,
			OnSite:    srv.ReloadSite,
		})
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// open event streams end with the server
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		log.Printf("Serving %s at http://%s%s", contentDir, addr, srv.Site().ContextPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if w != nil {
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	return g.Wait()
}
