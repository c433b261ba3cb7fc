// Package appdirs decides where config, logs, the job database, story content
// and rendered videos live.
package appdirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// HomeEnv roots every directory under one data dir, e.g. a mounted volume.
	HomeEnv = "STORYREEL_HOME"
	// PortableEnv keeps everything in a data dir next to the executable.
	PortableEnv = "STORYREEL_PORTABLE"

	appName        = "StoryReel"
	configFileName = "config.toml"
)

// Paths is the on-disk layout used by the server and the render CLI.
type Paths struct {
	Portable   bool
	ConfigDir  string
	ConfigFile string
	LogDir     string
	OutputDir  string
	CacheDir   string
	ContentDir string
}

type resolveDeps struct {
	goos          string
	getenv        func(string) string
	executable    func() (string, error)
	userConfigDir func() (string, error)
	userCacheDir  func() (string, error)
}

func Resolve() (Paths, error) {
	return resolve(resolveDeps{})
}

// resolve picks the first layout that applies: an explicit home, a portable
// install, per-user dirs on windows, then paths relative to the working dir.
func resolve(rawDeps resolveDeps) (Paths, error) {
	deps := withDefaults(rawDeps)

	if home := strings.TrimSpace(deps.getenv(HomeEnv)); home != "" {
		return layoutUnder(filepath.Clean(home)), nil
	}
	if isPortableEnabled(deps.getenv(PortableEnv)) {
		exe, err := deps.executable()
		if err != nil {
			return Paths{}, err
		}
		p := layoutUnder(filepath.Join(filepath.Dir(exe), "data"))
		p.Portable = true
		return p, nil
	}
	if deps.goos == "windows" {
		return resolveUserDirs(deps)
	}
	return defaultRelativePaths(), nil
}

func withDefaults(deps resolveDeps) resolveDeps {
	if deps.goos == "" {
		deps.goos = runtime.GOOS
	}
	if deps.getenv == nil {
		deps.getenv = os.Getenv
	}
	if deps.executable == nil {
		deps.executable = os.Executable
	}
	if deps.userConfigDir == nil {
		deps.userConfigDir = os.UserConfigDir
	}
	if deps.userCacheDir == nil {
		deps.userCacheDir = os.UserCacheDir
	}
	return deps
}

func layoutUnder(dataDir string) Paths {
	configDir := filepath.Join(dataDir, "config")
	return Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     filepath.Join(dataDir, "logs"),
		OutputDir:  filepath.Join(dataDir, RenderRootName),
		CacheDir:   filepath.Join(dataDir, "cache"),
		ContentDir: filepath.Join(dataDir, ContentRootName),
	}
}

func userRoot(lookup func() (string, error), what string) (string, error) {
	root, err := lookup()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(root) == "" {
		return "", errors.New("user " + what + " dir is empty")
	}
	return filepath.Join(root, appName), nil
}

// Config goes to the roaming profile; everything regenerable goes to the
// local cache root.
func resolveUserDirs(deps resolveDeps) (Paths, error) {
	configDir, err := userRoot(deps.userConfigDir, "config")
	if err != nil {
		return Paths{}, err
	}
	cacheBase, err := userRoot(deps.userCacheDir, "cache")
	if err != nil {
		return Paths{}, err
	}

	p := layoutUnder(cacheBase)
	p.ConfigDir = configDir
	p.ConfigFile = filepath.Join(configDir, configFileName)
	return p, nil
}

// Relative to the working directory, matching the content/<storyId> layout
// the content pipeline writes.
func defaultRelativePaths() Paths {
	configDir := "config"
	return Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, configFileName),
		LogDir:     ".",
		OutputDir:  RenderRootName,
		CacheDir:   "cache",
		ContentDir: ContentRootName,
	}
}

func isPortableEnabled(value string) bool {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
