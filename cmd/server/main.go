package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"storyreel/config"
	"storyreel/internal/appcore"
	"storyreel/internal/bootstrap"
	"storyreel/internal/deps"
	"storyreel/internal/handler"
	"storyreel/internal/queue"
	"storyreel/internal/server"
	"storyreel/internal/storage"
	"storyreel/internal/taskrunner"
	"storyreel/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.toml")
	flag.Parse()

	// secrets can live in a .env next to the binary
	envErr := godotenv.Load()

	log.InitLogger()
	defer log.GetLogger().Sync()
	if envErr == nil {
		log.GetLogger().Info("loaded environment from .env")
	}

	cfg, created, err := config.LoadOrCreate(*configPath)
	if err != nil {
		log.GetLogger().Error("load config failed", zap.Error(err))
		return err
	}
	if created {
		log.GetLogger().Info("wrote default config")
	}
	bootstrap.ApplyDirDefaults(cfg)

	store, err := storage.Open("")
	if err != nil {
		log.GetLogger().Error("open database failed", zap.Error(err))
		return err
	}
	defer store.Close()

	// jobs still marked running were interrupted by the last shutdown
	if count, err := store.MarkStaleJobs(); err != nil {
		log.GetLogger().Warn("mark stale jobs failed", zap.Error(err))
	} else if count > 0 {
		log.GetLogger().Info("marked stale jobs as failed", zap.Int64("count", count))
	}

	if err = deps.CheckDependency(&cfg.Render); err != nil {
		log.GetLogger().Error("dependency check failed", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.NewService(ctx, cfg, store)
	if err != nil {
		log.GetLogger().Error("build service failed", zap.Error(err))
		return err
	}

	dispatcher, closeDispatcher, err := newDispatcher(cfg, svc)
	if err != nil {
		return err
	}
	defer closeDispatcher()
	svc.UseDispatcher(dispatcher)

	log.GetLogger().Info("storyreel server starting",
		zap.String("content_dir", cfg.App.ContentDir),
		zap.String("output_dir", cfg.App.OutputDir),
		zap.Bool("redis_queue", cfg.Queue.Enabled))
	if err = server.Run(ctx, cfg.Server, server.NewEngine(handler.NewHandler(svc))); err != nil {
		log.GetLogger().Error("server failed", zap.Error(err))
		return err
	}
	return nil
}

// newDispatcher runs jobs on asynq workers when the redis queue is enabled,
// and in process otherwise.
func newDispatcher(cfg *config.Config, exec appcore.Executor) (appcore.Dispatcher, func(), error) {
	if cfg.Queue.Enabled {
		q := queue.NewQueue(cfg.Queue)
		if err := q.Start(exec); err != nil {
			log.GetLogger().Error("start queue worker failed", zap.Error(err))
			_ = q.Close()
			return nil, nil, err
		}
		return q, func() { _ = q.Close() }, nil
	}

	runner := taskrunner.New(exec, taskrunner.Config{
		QueueSize:   cfg.Render.QueueSize,
		Concurrency: 1,
	})
	return runner, runner.Close, nil
}
