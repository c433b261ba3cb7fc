package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"storyreel/config"
	"storyreel/internal/appdirs"
	"storyreel/internal/deps"
	"storyreel/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type cliOptions struct {
	configPath  string
	list        bool
	composition string
	out         string
	version     bool
	diagnose    bool
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	flags := flag.NewFlagSet("storyreel-render", flag.ContinueOnError)
	flags.SetOutput(stderr)

	flags.StringVar(&opts.configPath, "config", "", "path to config.toml")
	flags.BoolVar(&opts.list, "list", false, "list the available compositions")
	flags.StringVar(&opts.composition, "composition", "", "composition id to render")
	flags.StringVar(&opts.out, "out", "", "output mp4 path (default <output_dir>/<composition>.mp4)")
	flags.BoolVar(&opts.version, "version", false, "print version information")
	flags.BoolVar(&opts.diagnose, "diagnose", false, "print runtime diagnostics")

	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	if flags.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	return opts, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func printDiagnose(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "version: %s\n", version)

	if wd, err := os.Getwd(); err == nil {
		fmt.Fprintf(w, "working_dir: %s\n", wd)
	} else {
		fmt.Fprintf(w, "working_dir: <error: %v>\n", err)
	}

	if paths, err := appdirs.Resolve(); err == nil {
		printPath(w, "config", paths.ConfigFile)
		printPath(w, "cache", paths.CacheDir)
	} else {
		fmt.Fprintf(w, "path.app_dirs: <error: %v>\n", err)
	}
	if logDir, err := log.ResolveLogDir(); err == nil {
		printPath(w, "log", logDir)
	}
	printPath(w, "content", cfg.App.ContentDir)
	printPath(w, "output", cfg.App.OutputDir)

	fmt.Fprintln(w, deps.FormatDependencyReport(deps.ResolveDependencyInventory(cfg.Render)))
}

func printPath(w io.Writer, name, value string) {
	absPath, err := filepath.Abs(value)
	if err != nil {
		fmt.Fprintf(w, "path.%s: %s (abs_error=%v)\n", name, value, err)
		return
	}

	if _, err = os.Stat(absPath); err == nil {
		fmt.Fprintf(w, "path.%s: %s (exists)\n", name, absPath)
		return
	}
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "path.%s: %s (missing)\n", name, absPath)
		return
	}

	fmt.Fprintf(w, "path.%s: %s (error=%v)\n", name, absPath, err)
}
