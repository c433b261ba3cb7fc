// Command storyreel-render renders one composition to an mp4 without the
// HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"storyreel/config"
	"storyreel/internal/bootstrap"
	"storyreel/internal/composition"
	"storyreel/internal/deps"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, opts, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, opts cliOptions, stdout io.Writer) int {
	if opts.version {
		printVersion(stdout)
		if !opts.diagnose {
			return 0
		}
		fmt.Fprintln(stdout)
	}

	log.InitLogger()
	defer log.GetLogger().Sync()

	cfg, _, err := config.LoadOrCreate(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	bootstrap.ApplyDirDefaults(cfg)

	if opts.diagnose {
		printDiagnose(stdout, cfg)
		return 0
	}

	registry, err := bootstrap.NewRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load compositions: %v\n", err)
		return 1
	}
	if opts.list {
		printCompositions(stdout, registry.List(ctx))
		return 0
	}
	if opts.composition == "" {
		fmt.Fprintln(os.Stderr, "-composition is required (use -list to see the ids)")
		return 2
	}

	if err = deps.CheckDependency(&cfg.Render); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", apperrors.GetMessage(err), apperrors.GetDetail(err))
		return 1
	}
	out, err := renderOne(ctx, cfg, registry, opts)
	if err != nil {
		log.GetLogger().Error("render failed", zap.String("composition", opts.composition), zap.Error(err))
		fmt.Fprintln(os.Stderr, describeError(err))
		return 1
	}
	fmt.Fprintln(stdout, out)
	return 0
}

func renderOne(ctx context.Context, cfg *config.Config, registry *composition.Registry, opts cliOptions) (string, error) {
	res, err := registry.Resolve(ctx, opts.composition)
	if err != nil {
		return "", err
	}
	renderer, err := bootstrap.NewRenderer(cfg)
	if err != nil {
		return "", err
	}

	out := opts.out
	if out == "" {
		out = filepath.Join(cfg.App.OutputDir, res.ID+".mp4")
	}
	last := -1
	err = renderer.Render(ctx, res, out, func(done, total int) {
		if pct := done * 100 / max(total, 1); pct/10 != last/10 {
			last = pct
			fmt.Fprintf(os.Stderr, "\rrendering %s: %3d%% (%d/%d frames)", res.ID, pct, done, total)
		}
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return out, nil
}

func printCompositions(w io.Writer, comps []composition.Composition) {
	for _, c := range comps {
		fmt.Fprintf(w, "%-24s %-8s %4dx%-4d %3dfps %6d frames\n", c.ID, c.Kind, c.Width, c.Height, c.Fps, c.DurationInFrames)
	}
}

func describeError(err error) string {
	if detail := apperrors.GetDetail(err); detail != "" {
		return fmt.Sprintf("%s: %s", apperrors.GetMessage(err), detail)
	}
	return err.Error()
}
