package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyStringConfig(cmd, "addr", &addr, a.config.Server.ApiAddr)
			return a.runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	return cmd
}

// runServe serves the API until ctx is cancelled, then shuts down gracefully.
func (a *app) runServe(ctx context.Context, addr string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	api, err := NewAPI(store, a.config, a.logger)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	apiHttpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting api server", "address", apiHttpServer.Addr)
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err = <-errChan:
		if err != nil {
			a.logger.Error("Api server failed", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Stopping api server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = apiHttpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Api server shutdown failed", "error", err)
		return err
	}
	a.logger.Info("Api server stopped.")
	return nil
}
