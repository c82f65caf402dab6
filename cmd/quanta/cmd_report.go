package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/quanta/api"
)

var errNoConfig = errors.New("a report configuration is required (--config)")

func (c *cli) reportCmd() *cobra.Command {
	var describe bool
	cmd := &cobra.Command{
		Use:   "report [KEY]",
		Short: "Compute a key of the configured report",
		Long: `Builds the report described by --config and prints KEY. Without KEY, lists
the keys the report defines.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.configPath == "" {
				return errNoConfig
			}
			r, err := c.cfg.NewReporter(c.logger)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(r.Keys(), "\n"))
				return err
			}
			if describe {
				if err := r.Check(args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), r.Describe(args[0]))
				return err
			}

			start := time.Now()
			q, err := r.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.logger.Info("report computed",
				zap.String("key", args[0]),
				zap.Int("entries", q.Len()),
				zap.Duration("took", time.Since(start)))
			return c.emit(cmd, q)
		},
	}
	cmd.Flags().BoolVar(&describe, "describe", false, "Print the computation tree instead of the result")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the quantity operations and the configured report over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}

			h := api.NewHandler(nil, c.logger)
			e := api.NewServer(h)
			e.HidePort = true
			e.Use(middleware.Recover())
			e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
				LogURI:    true,
				LogStatus: true,
				LogMethod: true,
				LogError:  true,
				LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
					c.logger.Info("request",
						zap.String("method", v.Method),
						zap.String("uri", v.URI),
						zap.Int("status", v.Status),
						zap.Error(v.Error))
					return nil
				},
			}))

			// The API is live at once; report routes answer 503 until the
			// inputs are loaded.
			if c.configPath != "" {
				go func() {
					t0 := time.Now()
					r, err := c.cfg.NewReporter(c.logger)
					if err != nil {
						c.logger.Error("report failed to load", zap.Error(err))
						return
					}
					h.SetReporter(r)
					c.logger.Info("report loaded",
						zap.Strings("keys", r.Keys()),
						zap.Duration("took", time.Since(t0)))
				}()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				c.logger.Info("server ready", zap.String("addr", addr))
				errc <- e.Start(addr)
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, else :8080)")
	return cmd
}
