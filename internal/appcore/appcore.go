// Package appcore holds the job vocabulary shared by the service, the
// in-process runner and the asynq queue.
package appcore

import (
	"context"
	"fmt"
	"time"
)

type JobKind string

const (
	JobKindRender JobKind = "render"
	JobKindStory  JobKind = "story"
)

type JobStage uint8

const (
	JobStageQueued JobStage = iota + 1
	JobStagePreparing
	JobStageProcessing
	JobStageFinalizing
	JobStageSucceeded
	JobStageFailed
	JobStageCanceled
)

func (s JobStage) String() string {
	switch s {
	case JobStageQueued:
		return "queued"
	case JobStagePreparing:
		return "preparing"
	case JobStageProcessing:
		return "processing"
	case JobStageFinalizing:
		return "finalizing"
	case JobStageSucceeded:
		return "succeeded"
	case JobStageFailed:
		return "failed"
	case JobStageCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (s JobStage) IsTerminal() bool {
	return s == JobStageSucceeded || s == JobStageFailed || s == JobStageCanceled
}

// MarshalText keeps API payloads readable; the database stores the number.
func (s JobStage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *JobStage) UnmarshalText(b []byte) error {
	for c := JobStageQueued; c <= JobStageCanceled; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown job stage %q", string(b))
}

type JobProgress struct {
	Stage     JobStage  `json:"stage"`
	Current   int64     `json:"current"`
	Total     int64     `json:"total"`
	Percent   float64   `json:"percent"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProgress fills Percent from current and total, 0 when total is unknown.
func NewProgress(stage JobStage, current, total int64, message string) *JobProgress {
	p := &JobProgress{Stage: stage, Current: current, Total: total, Message: message, UpdatedAt: time.Now()}
	if total > 0 {
		p.Percent = float64(current) * 100 / float64(total)
	}
	return p
}

type JobEvent struct {
	JobID      string       `json:"jobId"`
	Kind       JobKind      `json:"kind"`
	Stage      JobStage     `json:"stage"`
	Progress   *JobProgress `json:"progress,omitempty"`
	Message    string       `json:"message,omitempty"`
	Error      string       `json:"error,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// RenderPayload is what a worker needs to run one render job.
type RenderPayload struct {
	JobID         string `json:"job_id"`
	CompositionID string `json:"composition_id"`
	OutputPath    string `json:"output_path"`
}

// StoryPayload is what a worker needs to run one story generation job.
type StoryPayload struct {
	JobID       string `json:"job_id"`
	StoryID     string `json:"story_id"`
	Title       string `json:"title"`
	ShortTitle  string `json:"short_title,omitempty"`
	Topic       string `json:"topic"`
	PhraseChars int    `json:"phrase_chars,omitempty"`
}

// Executor runs jobs; the service implements it.
type Executor interface {
	ExecuteRender(ctx context.Context, p RenderPayload) error
	ExecuteStory(ctx context.Context, p StoryPayload) error
}

// Dispatcher puts jobs somewhere an Executor will pick them up.
type Dispatcher interface {
	SubmitRender(p RenderPayload) error
	SubmitStory(p StoryPayload) error
	Cancel(jobID string) bool
}
