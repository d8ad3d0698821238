// Package openai generates the optional AI-insight recommendation from
// aggregated sprint summaries.
package openai

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"github.com/sprintsight/sprintsight/internal/config"
)

type Client struct {
	key   string
	model string
	cli   openai.Client
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	model := cfg.OpenAIModel
	if strings.TrimSpace(model) == "" {
		model = "gpt-4.1-mini"
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.OpenAIKey))
	return &Client{key: cfg.OpenAIKey, model: model, cli: cli, log: log}
}

// Enabled reports whether a key is configured; callers skip the insight
// prompt entirely when it is not.
func (c *Client) Enabled() bool { return strings.TrimSpace(c.key) != "" }

// Insight asks for one concise, actionable recommendation over the given
// per-sprint summary lines.
func (c *Client) Insight(ctx context.Context, sprintSummaries []string) (string, error) {
	if !c.Enabled() {
		return "", errors.New("openai: missing key")
	}
	c.log.Info().Str("model", c.model).Msg("openai insight call")
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a sprint analytics expert. Provide brief, actionable recommendations in 1-2 sentences."),
			openai.UserMessage("Analyze these sprint metrics and provide ONE concise recommendation for the team:\n\n" +
				strings.Join(sprintSummaries, "\n") +
				"\n\nProvide a single actionable insight in 1 sentence."),
		},
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
