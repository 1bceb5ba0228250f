// Package llm defines the language-model capability consumed by the
// decomposition engine and atomic detector, plus the Anthropic-backed
// implementation. The core never opens HTTP sockets outside this package.
package llm

import "context"

// Format tells the provider what output shape the caller expects.
type Format string

const (
	// FormatJSON requests machine-parseable JSON output.
	FormatJSON Format = "json"
	// FormatMarkdown requests human-readable markdown output.
	FormatMarkdown Format = "markdown"
)

// Request is a single language-model invocation.
type Request struct {
	// LogicalTask names the operation for logging and prompt selection,
	// e.g. "decomposition" or "atomic_detection".
	LogicalTask string
	// Prompt is the user-role prompt text.
	Prompt string
	// SystemPrompt is the system-role prompt text.
	SystemPrompt string
	// Temperature is the sampling temperature, in [0,1].
	Temperature float64
	// Format is the expected output shape.
	Format Format
}

// Provider is the language-model capability. Implementations must honor
// context cancellation; calls are the slowest operations in the system.
type Provider interface {
	// Invoke performs one model call and returns the raw text response.
	Invoke(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

// Invoke implements Provider.
func (f ProviderFunc) Invoke(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
