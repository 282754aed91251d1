package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/centy-io/centy-daemon/internal/server"
	"github.com/centy-io/centy-daemon/internal/watcher"
	"github.com/centy-io/centy-daemon/pkg/constants"
	"github.com/centy-io/centy-daemon/pkg/logging"
	"github.com/centy-io/centy-daemon/pkg/reconcile"
)

const defaultAddr = "127.0.0.1:50051"

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the centy daemon HTTP API",
		Long: `Start the daemon and serve the local HTTP API.

The daemon binds to loopback by default. Address and CORS origins can
also be set through the environment:

  CENTY_DAEMON_ADDR    Bind address (default ` + defaultAddr + `)
  CENTY_CORS_ORIGINS   Comma-separated allowed CORS origins`,
		Example: `  centyd serve
  centyd serve --addr 127.0.0.1:9000
  centyd serve --watch /path/to/project`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", defaultAddr, "Bind address (host:port)")
	cmd.Flags().Bool("cors", false, "Enable CORS")
	cmd.Flags().StringSlice("cors-origins", nil, "Allowed CORS origins")
	cmd.Flags().StringSlice("watch", nil, "Project paths to watch for drift")
	cmd.Flags().Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	cmd.Flags().Duration("idle-timeout", 120*time.Second, "HTTP idle timeout")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	v.SetEnvPrefix("CENTY")
	v.AutomaticEnv()
	v.SetDefault("daemon_addr", defaultAddr)

	_ = v.BindPFlag("daemon_addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("cors_origins", cmd.Flags().Lookup("cors-origins"))

	addr := v.GetString("daemon_addr")
	host, port, err := splitAddr(addr)
	if err != nil {
		return err
	}

	corsEnabled, _ := cmd.Flags().GetBool("cors")
	corsOrigins := v.GetStringSlice("cors_origins")
	if len(corsOrigins) > 0 {
		corsEnabled = true
	}
	watchPaths, _ := cmd.Flags().GetStringSlice("watch")
	readTimeout, _ := cmd.Flags().GetDuration("read-timeout")
	writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")
	idleTimeout, _ := cmd.Flags().GetDuration("idle-timeout")

	cfg := server.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.CORSEnabled = corsEnabled
	cfg.CORSOrigins = corsOrigins
	cfg.ReadTimeout = readTimeout
	cfg.WriteTimeout = writeTimeout
	cfg.IdleTimeout = idleTimeout

	logger := logging.Default()
	logger.Info().
		Str("addr", addr).
		Bool("cors", cfg.CORSEnabled).
		Strs("watch", watchPaths).
		Msg("Starting centy daemon")

	reconciler := reconcile.NewService()
	srv := server.New(reconciler, cfg, logger)
	srv.Start()

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx := cmd.Context()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	for _, path := range watchPaths {
		w := watcher.New(path, reconciler, srv.Broker(), logger)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("Daemon stopped")
	return nil
}

// splitAddr parses host:port into its parts.
func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
