// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Oracle and ai.AIProvider for
// use in unit tests. The mocks allow tests to run without an external model and
// enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Default behavior echoes the input
//	oracle := mock.NewMockOracle()
//	out, _ := oracle.Complete(ctx, "Rewrite", "A")  // "ENRICHED:A"
//
//	// Custom behavior injection
//	oracle.WithCompleteFunc(func(ctx context.Context, instruction, input string) (string, error) {
//	    return "", errors.New("rate limited")
//	})
//
//	// Check call counts
//	count := oracle.CallCount()
package mock
