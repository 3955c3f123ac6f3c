package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	upload "fandom-explainer/07_upload"
	"fandom-explainer/config"
	"fandom-explainer/logging"
	"fandom-explainer/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	concept := flag.String("concept", "", "educational concept to explain (required)")
	fandom := flag.String("fandom", "Harry Potter", "fandom theme for the narration")
	flag.Parse()

	// Load .env (local dev only)
	_ = godotenv.Load()
	logging.Configure()

	if *concept == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("failed to create dirs")
	}

	runID := uuid.NewString()[:8]
	runDir := filepath.Join(cfg.Paths.Output, runID)
	log.Info().Str("run", runID).Str("dir", runDir).Str("concept", *concept).Str("fandom", *fandom).Msg("pipeline starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise pipeline")
	}
	defer p.Close()

	state := pipeline.NewState(runID)
	runErr := p.Run(ctx, *concept, *fandom, state)
	if state.Script != nil {
		pipeline.SaveJSON(filepath.Join(runDir, "script.json"), state.Script)
	}
	pipeline.SaveState(state, runDir)

	if runErr != nil {
		log.Error().Err(runErr).Str("run", runID).Msg("pipeline failed")
		p.Close()
		os.Exit(1)
	}
	if state.YouTubeURL != "" {
		meta := upload.BuildMetadata(state.Script.Title, state.Script.Concept, state.Script.Description, state.Script.Theme, cfg.Upload)
		if err := upload.LogUpload(state.YouTubeID, state.YouTubeURL, state.Video.VideoPath, runDir, meta); err != nil {
			log.Warn().Err(err).Msg("could not write upload log")
		}
	}
	log.Info().Str("video", state.Video.VideoPath).Str("youtube", state.YouTubeURL).Msg("pipeline complete")
}
