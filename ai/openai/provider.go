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
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/newsproc/ai"
)

// Provider owns the oracle built from one ai.Config.
type Provider struct {
	config *ai.Config
	oracle *Oracle
	logger *slog.Logger
}

// NewProvider validates config and builds the oracle. The model endpoint is not
// contacted until the first Complete call.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if config == nil {
		return nil, errors.New("ai config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	oracle, err := newOracle(config)
	if err != nil {
		return nil, fmt.Errorf("create oracle for %s: %w", config.Model, err)
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Debug("oracle ready", "host", config.Host, "model", config.Model)
	return &Provider{config: config, oracle: oracle, logger: logger}, nil
}

// Oracle returns the provider's oracle.
func (p *Provider) Oracle() ai.Oracle {
	return p.oracle
}

// Close makes every later Complete call fail with ai.ErrOracleClosed.
// In-flight calls are not interrupted.
func (p *Provider) Close() error {
	if p.oracle.closed.CompareAndSwap(false, true) {
		p.logger.Debug("closed OpenAI provider")
	}
	return nil
}
