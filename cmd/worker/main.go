package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"fandom-explainer/config"
	"fandom-explainer/logging"
	"fandom-explainer/pipeline"
	"fandom-explainer/queue"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
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

	rdb, err := queue.NewClient()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure redis")
	}
	defer rdb.Close()

	q := queue.New(rdb, cfg.Queue)
	if err := q.Listen(ctx, pipeline.JobHandler(p, cfg.Paths.Output)); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
	log.Info().Msg("worker shut down")
}
