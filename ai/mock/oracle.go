package mock

import (
	"context"
	"sync"

	"github.com/poiesic/newsproc/ai"
)

// Call records the arguments of a single Complete invocation.
type Call struct {
	Instruction string
	Input       string
}

// MockOracle is a test double for ai.Oracle.
// It allows custom behavior injection via function fields and is safe for concurrent use.
type MockOracle struct {
	// CompleteFunc is called by Complete if set.
	// If nil, the input is echoed back with an "ENRICHED:" prefix.
	CompleteFunc func(ctx context.Context, instruction, input string) (string, error)

	mu    sync.Mutex
	calls []Call
}

var _ ai.Oracle = (*MockOracle)(nil)

// NewMockOracle creates a mock oracle with default echo behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockOracle() *MockOracle {
	return &MockOracle{}
}

// WithCompleteFunc sets custom behavior and returns the mock for chaining.
func (m *MockOracle) WithCompleteFunc(fn func(ctx context.Context, instruction, input string) (string, error)) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteFunc = fn
	return m
}

// Complete records the call and returns the injected or default answer.
func (m *MockOracle) Complete(ctx context.Context, instruction, input string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Instruction: instruction, Input: input})
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, instruction, input)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "ENRICHED:" + input, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockOracle) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls in invocation order.
func (m *MockOracle) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls and custom functions.
func (m *MockOracle) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.CompleteFunc = nil
}
