// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aibor/virtsup/internal/api"
	"github.com/aibor/virtsup/internal/config"
	"github.com/aibor/virtsup/internal/metrics"
	"github.com/aibor/virtsup/internal/registry"
)

const readHeaderTimeout = 10 * time.Second

func newServeCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP control API",
		Long: `Serve the HTTP control API. Virtual machines launched through the API are
shut down when the server stops.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return st.serve(cmd.Context())
		},
	}

	cmd.Flags().String("listen", config.ListenDefault, "address to listen on")

	return cmd
}

func (st *state) serve(ctx context.Context) error {
	sup, err := st.newSupervisor()
	if err != nil {
		return err
	}

	err = st.ensureSocketDir()
	if err != nil {
		return err
	}

	m := metrics.New()
	m.EmitBuildInfo(version())

	reg := registry.New(sup, registry.Options{
		SocketDir:   st.config.SocketDir,
		GracePeriod: st.config.GracePeriod,
		Metrics:     m,
	})

	var listenConfig net.ListenConfig

	listener, err := listenConfig.Listen(ctx, "tcp", st.config.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", errors.Join(err, reg.Close()))
	}

	server := &http.Server{
		Handler:           api.NewRouter(reg, m),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	slog.Info("Serving control API", slog.String("address", listener.Addr().String()))

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err //nolint:wrapcheck
	})

	eg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), st.gracePeriod())
		defer cancel()

		return errors.Join(server.Shutdown(shutdownCtx), reg.Close())
	})

	return eg.Wait() //nolint:wrapcheck
}
