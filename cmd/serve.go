package main

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/briefer/internal/server"
	"github.com/mohammad-safakhou/briefer/internal/sources"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the web console and the briefing scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = a.Close(closeCtx)
			}()

			addr := a.cfg.Server.Address
			if serveAddr != "" {
				addr = serveAddr
			}
			e := server.New(server.Options{
				Registry: a.registry,
				Vault:    a.vault,
				Runner:   a,
				Logger:   a.logger.Named("http"),
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return server.Serve(gctx, e, addr, a.logger) })

			if spec := a.cfg.Schedule.Cron; spec != "" {
				var rdb *redis.Client
				if a.cfg.Storage.Redis.Enabled() {
					rdb, err = sources.Conn(ctx, a.cfg.Storage.Redis)
					if err != nil {
						return err
					}
					defer rdb.Close()
				}
				sched, err := server.NewScheduler(spec, a, rdb, a.logger.Named("scheduler"))
				if err != nil {
					return err
				}
				g.Go(func() error { return sched.Run(gctx) })
			} else {
				a.logger.Info("no schedule.cron configured, scheduler disabled")
			}

			err = g.Wait()
			a.logger.Info("server stopped", zap.Error(err))
			return err
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.address, :8787)")
	return serve
}
