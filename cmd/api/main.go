package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"fandom-explainer/config"
	"fandom-explainer/logging"
	"fandom-explainer/pipeline"
	"fandom-explainer/queue"
	"fandom-explainer/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	withWorker := flag.Bool("with-worker", false, "also consume the job queue in this process")
	noQueue := flag.Bool("no-queue", false, "serve without Redis; /jobs answers 503")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}
	logging.Configure()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("failed to create dirs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise pipeline")
	}
	defer p.Close()

	var (
		jobs *queue.Queue
		rdb  *redis.Client
	)
	if !*noQueue {
		rdb, err = queue.NewClient()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure redis")
		}
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis unreachable")
		}
		jobs = queue.New(rdb, cfg.Queue)
	}

	var srv *server.Server
	if jobs != nil {
		srv = server.New(cfg, p, jobs)
	} else {
		srv = server.New(cfg, p, nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if *withWorker && jobs != nil {
		g.Go(func() error { return jobs.Listen(gctx, pipeline.JobHandler(p, cfg.Paths.Output)) })
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("api stopped")
	}
	log.Info().Msg("api shut down")
}
