package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storyreel/config"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
	"storyreel/pkg/util"
)

const jsonOnlySuffix = "\n\nRespond with valid JSON only."

// Completer is what the story generator needs from a text model.
type Completer interface {
	StructuredCompletion(ctx context.Context, prompt string, out any) error
}

type Client struct {
	client   *openai.Client
	model    string
	validate *validator.Validate
}

// NewClient builds a client from the llm section; the key is never read from
// a global.
func NewClient(cfg config.Llm) *Client {
	oc := openai.DefaultConfig(cfg.ApiKey)
	if cfg.BaseUrl != "" {
		oc.BaseURL = cfg.BaseUrl
	}
	oc.HTTPClient = &http.Client{Timeout: 5 * time.Minute}

	model := cfg.Model
	if model == "" {
		model = "gpt-4.1"
	}
	return &Client{
		client:   openai.NewClientWithConfig(oc),
		model:    model,
		validate: validator.New(),
	}
}

// StructuredCompletion asks for a JSON object, decodes it into out and runs
// the validate struct tags on it. It does not retry.
func (c *Client) StructuredCompletion(ctx context.Context, prompt string, out any) error {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt + jsonOnlySuffix},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		log.GetLogger().Error("chat completion failed", zap.String("model", c.model), zap.Error(err))
		return apperrors.WrapWithDetail(apperrors.CodeTextCompletionFailed, "Text completion failed", statusDetail(err), err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return apperrors.ErrNoCompletionContent
	}
	content := util.ExtractJsonFromText(resp.Choices[0].Message.Content)

	if err = json.Unmarshal([]byte(content), out); err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeUpstreamInvalidPayload, "Completion is not valid JSON", content, err)
	}
	if err = c.validate.Struct(out); err != nil {
		return apperrors.WrapWithDetail(apperrors.CodeUpstreamInvalidPayload, "Completion does not match schema", content, err)
	}

	log.GetLogger().Debug("chat completion ok",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return nil
}

func statusDetail(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("status %d", reqErr.HTTPStatusCode)
	}
	return ""
}
