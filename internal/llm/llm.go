package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is used when no model list is configured.
const DefaultModel = "gemini-2.5-flash"

// Provider is the text generation backend used by the generation engine.
type Provider interface {
	Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// GenerateOptions contains options for a single generation call
type GenerateOptions struct {
	JSONMode        bool    // ask the model for an application/json response
	Temperature     float32 // zero leaves the model default
	MaxOutputTokens int32
}

// ModelInfo describes a model offered by the provider.
type ModelInfo struct {
	Name               string `json:"name"`
	DisplayName        string `json:"displayName,omitempty"`
	Description        string `json:"description,omitempty"`
	InputTokenLimit    int32  `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit   int32  `json:"outputTokenLimit,omitempty"`
	SupportsGeneration bool   `json:"supportsGeneration"`
}

// Client talks to Google Gemini through the genai SDK.
type Client struct {
	gClient     *genai.Client
	temperature float32
}

// NewClient creates a Gemini client. The key is checked here; no request is made.
// A positive timeout bounds every request.
func NewClient(ctx context.Context, apiKey string, temperature float32, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file.\nGet your API key from: https://aistudio.google.com/app/apikey")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if timeout > 0 {
		cc.HTTPOptions.Timeout = &timeout
	}
	gClient, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{gClient: gClient, temperature: temperature}, nil
}

// Generate sends a single-turn prompt to model. Provider failures are returned as *ProviderError.
func (c *Client) Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	if temperature > 0 {
		config.Temperature = genai.Ptr(temperature)
	}
	if opts.MaxOutputTokens > 0 {
		config.MaxOutputTokens = opts.MaxOutputTokens
	}
	if opts.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", normalize(err)
	}

	text := resp.Text()
	if text == "" {
		return "", &ProviderError{Kind: KindOther, Message: "empty response from model " + model}
	}
	return text, nil
}

// Chat roles understood by Gemini.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatMessage is one earlier turn of a conversation.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Chat continues a conversation: history is replayed into a genai chat session with
// system as its instruction, and message is sent as the next user turn.
func (c *Client) Chat(ctx context.Context, model, system string, history []ChatMessage, message string) (string, error) {
	if message == "" {
		return "", fmt.Errorf("message cannot be empty")
	}

	config := &genai.GenerateContentConfig{}
	if c.temperature > 0 {
		config.Temperature = genai.Ptr(c.temperature)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	session, err := c.gClient.Chats.Create(ctx, model, config, chatContents(history))
	if err != nil {
		return "", fmt.Errorf("failed to start chat session: %w", err)
	}
	resp, err := session.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", normalize(err)
	}

	text := resp.Text()
	if text == "" {
		return "", &ProviderError{Kind: KindOther, Message: "empty chat response from model " + model}
	}
	return text, nil
}

// chatContents maps history onto genai contents. Any role other than model is sent as user.
func chatContents(history []ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	return contents
}

// ListModels returns every model visible to the API key.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	for m, err := range c.gClient.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", normalize(err))
		}
		models = append(models, ModelInfo{
			Name:               strings.TrimPrefix(m.Name, "models/"),
			DisplayName:        m.DisplayName,
			Description:        m.Description,
			InputTokenLimit:    m.InputTokenLimit,
			OutputTokenLimit:   m.OutputTokenLimit,
			SupportsGeneration: supportsGeneration(m.SupportedActions),
		})
	}
	return models, nil
}

func supportsGeneration(actions []string) bool {
	for _, a := range actions {
		if a == "generateContent" {
			return true
		}
	}
	return false
}
