// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"storyreel/internal/composition"
	"storyreel/internal/render"
	"storyreel/internal/wordtiming"
)

// MockCompleter is a mock implementation of openai.Completer. The first
// return value is a JSON document decoded into out when non-empty.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) StructuredCompletion(ctx context.Context, prompt string, out any) error {
	args := m.Called(ctx, prompt)
	if raw := args.String(0); raw != "" {
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return err
		}
	}
	return args.Error(1)
}

// MockImageGenerator is a mock implementation of imagegen.ImageGenerator
type MockImageGenerator struct {
	mock.Mock
}

func (m *MockImageGenerator) Generate(ctx context.Context, prompt, path string, onRetry func(attempt int)) error {
	args := m.Called(ctx, prompt, path)
	return args.Error(0)
}

// MockSpeechSynthesizer is a mock implementation of tts.SpeechSynthesizer
type MockSpeechSynthesizer struct {
	mock.Mock
}

func (m *MockSpeechSynthesizer) Synthesize(ctx context.Context, text, path string) (*wordtiming.CharacterAlignment, float64, error) {
	args := m.Called(ctx, text, path)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*wordtiming.CharacterAlignment), args.Get(1).(float64), args.Error(2)
}

// MockRenderer is a mock implementation of service.VideoRenderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, res *composition.Resolved, out string, progress render.Progress) error {
	args := m.Called(ctx, res, out)
	if progress != nil && res != nil {
		progress(res.DurationInFrames, res.DurationInFrames)
	}
	return args.Error(0)
}

// MockUploader is a mock implementation of objectstore.Uploader
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, localPath, key string) (string, error) {
	args := m.Called(ctx, localPath, key)
	return args.String(0), args.Error(1)
}
