package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-haiku-4-5"

// Anthropic translates through the Messages API. The model is instructed
// to return only the translated text, no commentary.
type Anthropic struct {
	client *anthropic.Client
	model  string
}

func NewAnthropic(apiKey, apiBase, model string) *Anthropic {
	opts := []option.RequestOption{option.WithAuthToken(apiKey)}
	if apiBase != "" {
		opts = append(opts, option.WithBaseURL(apiBase))
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	client := anthropic.NewClient(opts...)
	return &Anthropic{client: &client, model: model}
}

func (a *Anthropic) Translate(ctx context.Context, text, targetLang string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{{
			Text: translationPrompt(targetLang),
		}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("%w: empty model response", ErrTranslation)
	}
	return out, nil
}

func translationPrompt(targetLang string) string {
	return fmt.Sprintf(
		"You are a translation engine. Translate the user's message into %s. "+
			"Preserve formatting, mentions and emoji. Reply with the translation only.",
		targetLang)
}
