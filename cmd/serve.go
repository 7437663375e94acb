package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dq-cli/internal/server"
)

var (
	servePort    int
	serveOffline bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the validation HTTP API",
	Long: `Serves the validation, audit, building and run-history endpoints under /v1.
Endpoints whose backing service is not configured answer 503.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		check := *cfg
		check.Server.Port = port
		if err := check.Validate("serve"); err != nil {
			return err
		}

		srv, cleanup, err := buildServer(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "use a stub geocoder (no API keys needed)")
	rootCmd.AddCommand(serveCmd)
}

// buildServer wires whatever services the config allows. A missing geocoder
// key or estimator key disables that endpoint rather than failing startup.
func buildServer(ctx context.Context) (*server.Server, func(), error) {
	r, err := resolveRules("")
	if err != nil {
		return nil, nil, err
	}

	opts := []server.Option{
		server.WithRules(r),
		server.WithBatchOptions(batchOptions(cfg.Batch, cfg.Rules.H3Resolution)),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		server.WithMaxUpload(int64(cfg.Server.MaxUploadMB) << 20),
	}

	if err := cfg.Validate("validate"); err != nil && !serveOffline {
		zap.L().Warn("serve: geocoding disabled", zap.Error(err))
	} else {
		client, err := initGeocoder(cfg.Geocode, serveOffline)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, server.WithGeocoder(client))
	}

	if cfg.Anthropic.Key != "" {
		opts = append(opts, server.WithEstimator(initEstimator(cfg.Anthropic, r.Country)))
	} else {
		zap.L().Warn("serve: building estimates disabled, anthropic.key not set")
	}

	cleanup := func() {}
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("serve: run history disabled", zap.Error(err))
	} else {
		opts = append(opts, server.WithStore(st))
		cleanup = func() { _ = st.Close() }
	}

	return server.New(opts...), cleanup, nil
}
