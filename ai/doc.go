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


// Package ai provides abstractions for the language model services used by the
// article pipeline.
//
// Enrichment stages depend on the Oracle interface rather than on a concrete client,
// so the pipeline can be exercised against test doubles and pointed at any
// OpenAI-compatible server.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible chat APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewOracle) return INTERFACE types
// to prevent accidental coupling to a concrete client.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockOracle) return CONCRETE types to enable
// assertions and behavior injection via the mock's public methods.
//
//	oracle := mock.NewMockOracle()          // returns *mock.MockOracle
//	oracle.WithCompleteFunc(...)
//	calls := oracle.CallCount()
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithModel("gpt-4o-mini"), ai.WithAPIKey(key))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	category, err := provider.Oracle().Complete(ctx, "Classify this article.", text)
package ai
