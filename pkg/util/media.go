package util

import (
	"encoding/json"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseProbeDuration reads format.duration from ffprobe JSON output.
func ParseProbeDuration(probeJSON string) (float64, error) {
	var p probeFormat
	if err := json.Unmarshal([]byte(probeJSON), &p); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	if p.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe output has no duration")
	}
	d, err := strconv.ParseFloat(p.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", p.Format.Duration, err)
	}
	return d, nil
}

// ProbeDurationSeconds asks ffprobe for a media file's duration.
func ProbeDurationSeconds(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return ParseProbeDuration(out)
}
