package providers

import "context"

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider sends one chat completion request and returns the text of the
// single generated candidate
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Options are the fixed sampling parameters used for every request
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// Candidates is the number of generated choices requested; only the first is used
	Candidates int
}

// DefaultOptions mirrors the parameters the ordering assistant has always used
func DefaultOptions() Options {
	return Options{
		Model:       "gpt-4",
		MaxTokens:   1000,
		Temperature: 0,
		Candidates:  1,
	}
}
