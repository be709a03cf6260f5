package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

var errNoChatClient = errors.New("openai chat client not configured")

func (c *GraphOpenAIClient) buildMessages(prompt string, options ai.GenerateOptions) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	return append(msgs, openai.UserMessage(prompt))
}

func (c *GraphOpenAIClient) applyThinking(body *openai.ChatCompletionNewParams, options ai.GenerateOptions) {
	if options.Thinking == "" {
		return
	}
	// reasoning models on the public API only accept temperature 1.0
	if c.chatURL == "" {
		body.Temperature = openai.Float(1.0)
	}
	body.ReasoningEffort = shared.ReasoningEffort(options.Thinking)
}

func (c *GraphOpenAIClient) complete(ctx context.Context, body openai.ChatCompletionNewParams) (string, error) {
	if c.ChatClient == nil {
		return "", errNoChatClient
	}
	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	c.modifyMetrics(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
		Requests:     1,
	})

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response from model", ai.ErrInvalidResponse)
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return "", fmt.Errorf("%w: empty response from model (finish_reason: %s)", ai.ErrInvalidResponse, response.Choices[0].FinishReason)
	}
	return message, nil
}

// GenerateCompletion sends a single-turn prompt to the chat model and
// returns the generated completion as plain text.
//
// Example:
//
//	resp, err := client.GenerateCompletion(ctx, "Summarize this text...")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(resp)
func (c *GraphOpenAIClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.3,
	}
	for _, o := range opts {
		o(&options)
	}

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    c.buildMessages(prompt, options),
		Temperature: openai.Float(options.Temperature),
	}
	c.applyThinking(&body, options)

	return c.complete(ctx, body)
}

// GenerateCompletionWithFormat sends a prompt to the chat model and
// unmarshals the response into out, using a strict JSON schema derived
// from out's type to enforce structure.
//
// Example:
//
//	var out ai.ReliabilityResponse
//	err := client.GenerateCompletionWithFormat(ctx, "reliability_score", "Score a source", prompt, &out)
func (c *GraphOpenAIClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String(description),
		Schema:      ai.GenerateSchema(out),
		Strict:      openai.Bool(true),
	}

	options := ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(options.Model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages:    c.buildMessages(prompt, options),
		Temperature: openai.Float(options.Temperature),
	}
	c.applyThinking(&body, options)

	message, err := c.complete(ctx, body)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(message, out)
}
