package providers

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// LangChainProvider implements Provider on top of any langchaingo model
type LangChainProvider struct {
	client llms.Model
	opts   Options
}

// NewOpenAIProvider creates a provider for the OpenAI chat completion API. An
// empty baseURL uses the public endpoint.
func NewOpenAIProvider(apiKey, baseURL string, opts Options) (*LangChainProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("an API key is required for the OpenAI provider")
	}

	clientOpts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(opts.Model),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return NewLangChainProvider(client, opts), nil
}

// NewLangChainProvider wraps an existing model
func NewLangChainProvider(client llms.Model, opts Options) *LangChainProvider {
	return &LangChainProvider{client: client, opts: opts}
}

// Complete implements the Provider interface
func (p *LangChainProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		var msgType schema.ChatMessageType
		switch msg.Role {
		case "system":
			msgType = schema.ChatMessageTypeSystem
		case "assistant":
			msgType = schema.ChatMessageTypeAI
		case "user":
			msgType = schema.ChatMessageTypeHuman
		default:
			return "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}
		content[i] = llms.TextParts(msgType, msg.Content)
	}

	response, err := p.client.GenerateContent(ctx, content, p.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("failed to generate chat completion: %w", err)
	}

	if response == nil || len(response.Choices) == 0 {
		return "", fmt.Errorf("empty response from model %s", p.opts.Model)
	}

	return response.Choices[0].Content, nil
}

// callOptions never sets stop words; the model decides where to end
func (p *LangChainProvider) callOptions() []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithModel(p.opts.Model),
		llms.WithMaxTokens(p.opts.MaxTokens),
		llms.WithTemperature(p.opts.Temperature),
	}
	if p.opts.Candidates > 0 {
		opts = append(opts, llms.WithN(p.opts.Candidates))
	}
	return opts
}
