// Package bootstrap builds the long-lived components from a loaded config.
// Both commands go through it so the server and the CLI render identically.
package bootstrap

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"storyreel/config"
	"storyreel/internal/appdirs"
	"storyreel/internal/composition"
	"storyreel/internal/progress"
	"storyreel/internal/render"
	"storyreel/internal/service"
	"storyreel/internal/storage"
	"storyreel/internal/storygen"
	"storyreel/log"
	"storyreel/pkg/fal"
	"storyreel/pkg/imagegen"
	"storyreel/pkg/objectstore"
	"storyreel/pkg/openai"
	"storyreel/pkg/tts"
)

var appDirsResolver = appdirs.Resolve

// ApplyDirDefaults points content and output dirs left at their default
// names into the resolved app dir layout.
func ApplyDirDefaults(cfg *config.Config) {
	paths, err := appDirsResolver()
	if err != nil {
		log.GetLogger().Warn("resolve app dirs failed, keeping configured paths", zap.Error(err))
		return
	}
	if dir := strings.TrimSpace(cfg.App.ContentDir); (dir == "" || dir == appdirs.ContentRootName) && paths.ContentDir != "" {
		cfg.App.ContentDir = paths.ContentDir
	}
	if dir := strings.TrimSpace(cfg.App.OutputDir); (dir == "" || dir == appdirs.RenderRootName) && paths.OutputDir != "" {
		cfg.App.OutputDir = paths.OutputDir
	}
}

func NewRegistry(cfg *config.Config) (*composition.Registry, error) {
	return composition.NewDefaultRegistry(composition.Options{
		ContentDir:  cfg.App.ContentDir,
		Fps:         cfg.App.Fps,
		IntroFrames: cfg.App.IntroFrames,
		Width:       cfg.App.Width,
		Height:      cfg.App.Height,
	})
}

func NewRenderer(cfg *config.Config) (*render.Renderer, error) {
	return render.New(render.Options{
		Concurrency: cfg.Render.Concurrency,
		Encode: render.EncodeOptions{
			FfmpegPath: cfg.Render.FfmpegPath,
			VideoCodec: cfg.Render.VideoCodec,
			Preset:     cfg.Render.Preset,
			Crf:        cfg.Render.Crf,
			AudioCodec: cfg.Render.AudioCodec,
		},
	})
}

// NewStoryGenerator returns nil when a provider key is missing; the service
// then rejects story requests instead of failing each one upstream.
func NewStoryGenerator(cfg *config.Config) *storygen.Generator {
	if cfg.Llm.ApiKey == "" || cfg.Fal.ApiKey == "" {
		log.GetLogger().Warn("story generation disabled, set OPENAI_API_KEY and FAL_KEY to enable it")
		return nil
	}
	falClient := fal.NewClient(cfg.Fal)
	return storygen.New(
		openai.NewClient(cfg.Llm),
		imagegen.New(falClient, cfg.Fal, cfg.Image),
		tts.NewSynthesizer(falClient, cfg.Fal),
		cfg.App.ContentDir,
	)
}

// NewService wires the service without a dispatcher; the caller attaches
// one with UseDispatcher.
func NewService(ctx context.Context, cfg *config.Config, store *storage.Store) (*service.Service, error) {
	registry, err := NewRegistry(cfg)
	if err != nil {
		return nil, err
	}
	renderer, err := NewRenderer(cfg)
	if err != nil {
		return nil, err
	}
	uploader, err := objectstore.New(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	deps := service.Deps{
		Config:   cfg,
		Registry: registry,
		Store:    store,
		Broker:   progress.NewBroker(),
		Renderer: renderer,
		Uploader: uploader,
	}
	// a nil *Generator stored in the interface would not compare equal to nil
	if gen := NewStoryGenerator(cfg); gen != nil {
		deps.Stories = gen
	}
	return service.New(deps), nil
}
