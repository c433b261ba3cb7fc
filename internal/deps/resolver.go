// Package deps locates the external executables rendering needs and reports
// on them.
package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"storyreel/config"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

type DependencyTier string

const (
	DependencyTierMust   DependencyTier = "must"
	DependencyTierShould DependencyTier = "should"
)

type DependencyStatus string

const (
	DependencyStatusOK      DependencyStatus = "ok"
	DependencyStatusMissing DependencyStatus = "missing"
	DependencyStatusError   DependencyStatus = "error"
)

type DependencySource string

const (
	DependencySourceConfig   DependencySource = "config"
	DependencySourceLookPath DependencySource = "lookpath"
)

type DependencySpec struct {
	ID             string
	Command        string
	Tier           DependencyTier
	ConfiguredPath string
	Hint           string
}

type DependencyState struct {
	DependencySpec
	ResolvedPath string
	Status       DependencyStatus
	Source       DependencySource
	Error        string
}

func (s DependencyState) OK() bool {
	return s.Status == DependencyStatusOK
}

type PathResolver struct {
	LookPath func(file string) (string, error)
	AbsPath  func(path string) (string, error)
	Stat     func(name string) (os.FileInfo, error)
}

func NewPathResolver() PathResolver {
	return PathResolver{
		LookPath: exec.LookPath,
		AbsPath:  filepath.Abs,
		Stat:     os.Stat,
	}
}

// Resolve checks the configured path first; PATH is searched only when none
// is configured.
func (r PathResolver) Resolve(spec DependencySpec) DependencyState {
	state := DependencyState{DependencySpec: spec}
	configured := strings.TrimSpace(spec.ConfiguredPath)

	if configured != "" {
		state.Source = DependencySourceConfig
		resolvedPath, err := r.resolveConfiguredPath(configured)
		if err == nil {
			state.Status = DependencyStatusOK
			state.ResolvedPath = resolvedPath
			return state
		}

		if absPath, absErr := r.AbsPath(configured); absErr == nil {
			state.ResolvedPath = absPath
		} else {
			state.ResolvedPath = configured
		}
		state.Error = err.Error()
		state.Status = statusFor(err)
		return state
	}

	state.Source = DependencySourceLookPath
	resolvedPath, err := r.LookPath(spec.Command)
	if err == nil {
		state.Status = DependencyStatusOK
		state.ResolvedPath = resolvedPath
		return state
	}
	state.Error = err.Error()
	state.Status = statusFor(err)
	return state
}

func (r PathResolver) resolveConfiguredPath(configuredPath string) (string, error) {
	if resolvedPath, err := r.LookPath(configuredPath); err == nil {
		return resolvedPath, nil
	}

	absPath, err := r.AbsPath(configuredPath)
	if err != nil {
		return "", err
	}
	info, err := r.Stat(absPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", absPath)
	}
	return absPath, nil
}

func ResolveDependencyStates(specs []DependencySpec, resolver PathResolver) []DependencyState {
	resolved := make([]DependencyState, 0, len(specs))
	for _, spec := range specs {
		resolved = append(resolved, resolver.Resolve(spec))
	}
	return resolved
}

func BuildDependencyInventory(cfg config.Render) []DependencySpec {
	return []DependencySpec{
		{
			ID:             "ffmpeg",
			Command:        "ffmpeg",
			Tier:           DependencyTierMust,
			ConfiguredPath: cfg.FfmpegPath,
			Hint:           "Required to encode rendered frames and mix narration audio.",
		},
		{
			ID:             "ffprobe",
			Command:        "ffprobe",
			Tier:           DependencyTierShould,
			ConfiguredPath: cfg.FfprobePath,
			Hint:           "Used to measure narration clips when the speech service reports no duration.",
		},
	}
}

func ResolveDependencyInventory(cfg config.Render) []DependencyState {
	return ResolveDependencyStates(BuildDependencyInventory(cfg), NewPathResolver())
}

// CheckDependency resolves the inventory, logs every state and fails only
// when a must-tier executable is unusable. Resolved paths are written back to
// cfg so the encoder and prober use them.
func CheckDependency(cfg *config.Render) error {
	states := ResolveDependencyInventory(*cfg)
	return applyStates(cfg, states)
}

func applyStates(cfg *config.Render, states []DependencyState) error {
	var missing []string
	for _, state := range states {
		fields := []zap.Field{
			zap.String("dependency", state.ID),
			zap.String("status", string(state.Status)),
			zap.String("path", state.ResolvedPath),
		}
		switch {
		case state.OK():
			log.GetLogger().Info("dependency ready", fields...)
		case state.Tier == DependencyTierMust:
			log.GetLogger().Error("required dependency unavailable", append(fields, zap.String("error", state.Error))...)
			missing = append(missing, state.ID)
			continue
		default:
			log.GetLogger().Warn("optional dependency unavailable", append(fields, zap.String("hint", state.Hint))...)
			continue
		}

		switch state.ID {
		case "ffmpeg":
			cfg.FfmpegPath = state.ResolvedPath
		case "ffprobe":
			cfg.FfprobePath = state.ResolvedPath
		}
	}
	if len(missing) > 0 {
		return apperrors.WrapWithDetail(apperrors.CodeFfmpegMissing, "Required executables not found", strings.Join(missing, ", "), nil)
	}
	return nil
}

func FormatDependencyReport(states []DependencyState) string {
	if len(states) == 0 {
		return "No dependencies to diagnose."
	}

	var builder strings.Builder
	builder.WriteString("Dependency status")

	for _, state := range states {
		resolvedPath := strings.TrimSpace(state.ResolvedPath)
		if resolvedPath == "" {
			resolvedPath = "unknown"
		}

		source := strings.TrimSpace(string(state.Source))
		if source == "" {
			source = "n/a"
		}

		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("- %s [%s]: %s | path=%s | source=%s", state.ID, strings.ToUpper(string(state.Tier)), state.Status, resolvedPath, source))
		if state.Error != "" {
			builder.WriteString("\n  error: ")
			builder.WriteString(state.Error)
		}
		if !state.OK() && state.Hint != "" {
			builder.WriteString("\n  hint: ")
			builder.WriteString(state.Hint)
		}
	}

	return builder.String()
}

func statusFor(err error) DependencyStatus {
	if isMissingPathError(err) {
		return DependencyStatusMissing
	}
	return DependencyStatusError
}

func isMissingPathError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
		return true
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "not found") || strings.Contains(message, "cannot find")
}
