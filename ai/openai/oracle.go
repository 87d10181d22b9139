// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/newsproc/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Oracle implements ai.Oracle using OpenAI-compatible chat APIs.
type Oracle struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
	closed      atomic.Bool
}

var _ ai.Oracle = (*Oracle)(nil)

// newOracle is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newOracle(config *ai.Config) (*Oracle, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token()),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}

	return newOracleWithModel(client, config), nil
}

func newOracleWithModel(client llms.Model, config *ai.Config) *Oracle {
	return &Oracle{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-oracle"),
	}
}

// NewOracle creates a new oracle using the provided configuration.
//
// Returns ai.Oracle interface to enforce abstraction.
func NewOracle(config *ai.Config) (ai.Oracle, error) {
	return newOracle(config)
}

// Complete sends instruction as the system message and input as the user message.
// A closed oracle returns ai.ErrOracleClosed without calling the model.
func (o *Oracle) Complete(ctx context.Context, instruction, input string) (string, error) {
	if o.closed.Load() {
		return "", ai.ErrOracleClosed
	}
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(instruction),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(input),
			},
		},
	}

	opts := []llms.CallOption{llms.WithTemperature(o.temperature)}
	if o.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(o.maxTokens))
	}

	o.logger.Debug("requesting completion", "input_length", len(input))

	response, err := o.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		o.logger.Warn("completion failed", "err", err)
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(response.Choices) < 1 {
		o.logger.Debug("no choices returned from model")
		return "", ai.ErrEmptyResponse
	}

	answer := cleanResponse(response.Choices[0].Content)
	if answer == "" {
		return "", ai.ErrEmptyResponse
	}
	return answer, nil
}
