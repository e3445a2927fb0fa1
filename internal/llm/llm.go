// Package llm wraps an OpenAI-compatible API for paper generation and
// tutoring chat.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"prepdeck/internal/llm/prompts"
	"prepdeck/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.Variant
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName, variant string) (*Client, error) {
	if !prompts.IsValidVariant(variant) {
		return nil, fmt.Errorf("invalid prompt variant %q", variant)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.Variant(variant),
	}, nil
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

type generatedPaper struct {
	Questions []struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
		Answer   int      `json:"answer"`
		Topic    string   `json:"topic"`
	} `json:"questions"`
}

// GeneratePaper asks the LLM for a mock-test paper. The returned questions
// carry the given subject/paper identity; the caller decides where to cache them.
func (c *Client) GeneratePaper(ctx context.Context, subject, paperID, topic string, count int) ([]model.Question, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.Generation(subject, topic, count, c.variant)},
			{Role: openai.ChatMessageRoleUser, Content: "Generate the paper now."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM paper response", "raw", raw)

	var paper generatedPaper
	if err := json.Unmarshal([]byte(raw), &paper); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}

	questions := make([]model.Question, 0, len(paper.Questions))
	for i, gq := range paper.Questions {
		if len(gq.Options) != model.OptionCount {
			return nil, fmt.Errorf("question %d has %d options, want %d", i, len(gq.Options), model.OptionCount)
		}
		if gq.Answer < 0 || gq.Answer >= model.OptionCount {
			return nil, fmt.Errorf("question %d has answer index %d out of range", i, gq.Answer)
		}
		questions = append(questions, model.Question{
			Subject: subject,
			PaperID: paperID,
			Text:    gq.Question,
			Options: gq.Options,
			Answer:  gq.Answer,
			Topic:   gq.Topic,
		})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("LLM produced an empty paper")
	}
	return questions, nil
}

// TutorMessage is one turn of the tutoring conversation.
type TutorMessage struct {
	Role    string `json:"role"` // "student" or "assistant"
	Content string `json:"content"`
}

// TutorReply sends the conversation to the LLM and returns its reply.
func (c *Client) TutorReply(ctx context.Context, subject string, messages []TutorMessage) (string, error) {
	chatMsgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompts.Tutor(subject)},
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMsgs,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
